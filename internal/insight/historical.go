package insight

import (
	"fmt"
	"sort"
	"strings"

	"finsight/internal/core"
)

const topCategories = 3

// HistoricalSummary describes total expense spending over txs and names the
// largest expense categories. It is the freeform context sent alongside the
// transactions. Amounts are taken as magnitudes.
func HistoricalSummary(txs []core.Transaction) string {
	abs := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.Amount = tx.Amount.Abs()
		abs[i] = tx
	}
	summary := core.Aggregate(abs, core.AllTime, core.Expense, nil)

	var b strings.Builder
	fmt.Fprintf(&b, "The user's total spending in the observed period is %s", summary.TotalExpense.String())

	if first, last, ok := dateRange(txs); ok {
		fmt.Fprintf(&b, " between %s and %s", first, last)
	}
	b.WriteString(".")

	rows := append([]core.CategoryTotal(nil), summary.PerCategory...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Total.Cents > rows[j].Total.Cents })
	if len(rows) > topCategories {
		rows = rows[:topCategories]
	}
	if len(rows) > 0 {
		parts := make([]string, 0, len(rows))
		for _, r := range rows {
			parts = append(parts, fmt.Sprintf("%s (%.1f%%)", strings.ToLower(r.Label), r.Percentage))
		}
		fmt.Fprintf(&b, " The largest spending categories are %s.", strings.Join(parts, ", "))
	}
	return b.String()
}

func dateRange(txs []core.Transaction) (first, last core.Date, ok bool) {
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		if !ok || tx.Date.Before(first.Time) {
			first = tx.Date
		}
		if !ok || tx.Date.After(last.Time) {
			last = tx.Date
		}
		ok = true
	}
	return first, last, ok
}
