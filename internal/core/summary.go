package core

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	Category   string  `json:"category"`
	Label      string  `json:"label"`
	Total      Money   `json:"total"`
	Percentage float64 `json:"percentageOfType"`
}

// Summary is the result of Aggregate over one window.
type Summary struct {
	TotalIncome   Money           `json:"totalIncome"`
	TotalExpense  Money           `json:"totalExpense"`
	Balance       Money           `json:"balance"`
	BreakdownType TransactionType `json:"breakdownType"`
	PerCategory   []CategoryTotal `json:"perCategory"`
}

// MonthTotals is a compact summary for a specific year+month.
type MonthTotals struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"` // 1-12
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// TotalOf returns the total for the given type; zero for anything else.
func (s Summary) TotalOf(t TransactionType) Money {
	switch t {
	case Income:
		return s.TotalIncome
	case Expense:
		return s.TotalExpense
	}
	return Money{}
}
