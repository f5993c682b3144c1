package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WindowPredicate selects the transactions that belong to a reporting period.
type WindowPredicate func(Transaction) bool

// AllTime accepts every transaction.
func AllTime(Transaction) bool { return true }

// InMonth accepts transactions dated in the given calendar month and year.
func InMonth(year int, month time.Month) WindowPredicate {
	return func(t Transaction) bool {
		return t.Date.Year() == year && t.Date.Month() == int(month)
	}
}

// SameMonthAs accepts transactions in the same calendar month and year as now.
func SameMonthAs(now time.Time) WindowPredicate {
	return InMonth(now.Year(), now.Month())
}

var hundred = decimal.NewFromInt(100)

// Aggregate computes income and expense totals, the balance and the
// per-category breakdown for transactions of breakdownType inside window.
//
// Breakdown rows follow catalog order; categories the catalog does not know
// come last in order of first appearance, labelled with their key. Categories
// without activity are omitted, so the breakdown is empty when the type total
// is zero. The input slice is not modified.
func Aggregate(txs []Transaction, window WindowPredicate, breakdownType TransactionType, catalog *Catalog) Summary {
	if window == nil {
		window = AllTime
	}
	if catalog == nil {
		catalog = DefaultCatalog
	}

	s := Summary{BreakdownType: breakdownType, PerCategory: []CategoryTotal{}}
	groups := make(map[string]int64)
	var unknown []string

	for _, tx := range txs {
		if !window(tx) {
			continue
		}
		switch tx.Type {
		case Income:
			s.TotalIncome.Cents += tx.Amount.Cents
		case Expense:
			s.TotalExpense.Cents += tx.Amount.Cents
		default:
			continue
		}
		if tx.Type != breakdownType {
			continue
		}
		if _, seen := groups[tx.Category]; !seen {
			if _, known := catalog.Lookup(tx.Category); !known {
				unknown = append(unknown, tx.Category)
			}
		}
		groups[tx.Category] += tx.Amount.Cents
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	typeTotal := s.TotalOf(breakdownType).Cents
	if typeTotal == 0 {
		return s
	}

	order := make([]string, 0, len(catalog.entries)+len(unknown))
	for _, cat := range catalog.entries {
		order = append(order, cat.Value)
	}
	order = append(order, unknown...)

	for _, key := range order {
		cents, ok := groups[key]
		if !ok || cents == 0 {
			continue
		}
		s.PerCategory = append(s.PerCategory, CategoryTotal{
			Category:   key,
			Label:      catalog.Label(key),
			Total:      Money{Cents: cents},
			Percentage: Percentage(cents, typeTotal),
		})
	}
	return s
}

// Percentage returns part/whole*100 rounded to one decimal. It returns 0
// when whole is zero.
func Percentage(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(part).
		Mul(hundred).
		Div(decimal.NewFromInt(whole)).
		Round(1).
		InexactFloat64()
}

// Recent returns up to n transactions ordered by date, newest first.
// Transactions sharing a date keep their input order.
func Recent(txs []Transaction, n int) []Transaction {
	if n <= 0 {
		return []Transaction{}
	}
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// OfType returns the transactions of type t in input order. An empty t
// keeps every transaction.
func OfType(txs []Transaction, t TransactionType) []Transaction {
	if t == "" {
		return txs
	}
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// MonthlyTotals groups transactions by calendar month, oldest month first.
func MonthlyTotals(txs []Transaction) []MonthTotals {
	byKey := make(map[int]*MonthTotals)
	for _, tx := range txs {
		key := tx.Date.Year()*100 + tx.Date.Month()
		m, ok := byKey[key]
		if !ok {
			m = &MonthTotals{Year: tx.Date.Year(), Month: tx.Date.Month()}
			byKey[key] = m
		}
		switch tx.Type {
		case Income:
			m.Income = m.Income.Add(tx.Amount)
		case Expense:
			m.Expense = m.Expense.Add(tx.Amount)
		}
	}

	keys := make([]int, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]MonthTotals, 0, len(keys))
	for _, k := range keys {
		m := byKey[k]
		m.Balance = m.Income.Sub(m.Expense)
		out = append(out, *m)
	}
	return out
}
