package http

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"finsight/internal/core"
)

// formatEuros formats cents as a Euro currency string (e.g., "€12.34").
func formatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	euros := cents / 100
	rem := cents % 100
	s := strconv.FormatInt(euros, 10) + "." + fmt.Sprintf("%02d", rem)
	if neg {
		return "-€" + s
	}
	return "€" + s
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// barWidth clamps a percentage for progress bars; tiny shares stay visible.
func barWidth(pct float64) int {
	if pct <= 0 || math.IsNaN(pct) {
		return 0
	}
	w := int(math.Round(pct))
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

func templateFuncs(catalog *core.Catalog) template.FuncMap {
	return template.FuncMap{
		"euros":    func(m core.Money) string { return formatEuros(m.Cents) },
		"money":    func(f float64) string { return formatEuros(core.MoneyFromFloat(f).Cents) },
		"negative": func(m core.Money) bool { return m.Cents < 0 },
		"pct":      func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
		"width":    barWidth,
		"label":    catalog.Label,
	}
}

type monthRef struct {
	Year  int
	Month int
}

// adjacentMonths returns the months before and after year/month.
func adjacentMonths(year int, month time.Month) (prev, next monthRef) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	p := first.AddDate(0, -1, 0)
	n := first.AddDate(0, 1, 0)
	return monthRef{p.Year(), int(p.Month())}, monthRef{n.Year(), int(n.Month())}
}
