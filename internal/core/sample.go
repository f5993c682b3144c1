package core

import "time"

// SampleTransactions returns the fixed fallback data set, dated in now's month.
// It is served when the transaction backend is unreachable or unconfigured.
func SampleTransactions(now time.Time) []Transaction {
	y, m := now.Year(), int(now.Month())
	day := func(d int) Date { return NewDate(y, m, d) }
	return []Transaction{
		{ID: "1", Date: day(1), Description: "Monthly salary", Amount: Money{Cents: 500000}, Type: Income, Category: "salary"},
		{ID: "2", Date: day(2), Description: "Supermarket shopping", Amount: Money{Cents: 7550}, Type: Expense, Category: "groceries"},
		{ID: "3", Date: day(1), Description: "Apartment rent", Amount: Money{Cents: 150000}, Type: Expense, Category: "rent"},
		{ID: "4", Date: day(5), Description: "Electricity bill", Amount: Money{Cents: 6500}, Type: Expense, Category: "utilities"},
		{ID: "5", Date: day(7), Description: "Freelance project A", Amount: Money{Cents: 75000}, Type: Income, Category: "freelance"},
		{ID: "6", Date: day(8), Description: "Dinner with friends", Amount: Money{Cents: 12000}, Type: Expense, Category: "dining-out"},
		{ID: "7", Date: day(10), Description: "Monthly bus pass", Amount: Money{Cents: 5500}, Type: Expense, Category: "transportation"},
		{ID: "8", Date: day(12), Description: "Cinema tickets", Amount: Money{Cents: 3000}, Type: Expense, Category: "entertainment"},
		{ID: "9", Date: day(14), Description: "New shoes", Amount: Money{Cents: 9500}, Type: Expense, Category: "shopping"},
		{ID: "10", Date: day(15), Description: "Stock dividends", Amount: Money{Cents: 12500}, Type: Income, Category: "investment"},
		{ID: "11", Date: day(16), Description: "Pharmacy", Amount: Money{Cents: 2550}, Type: Expense, Category: "health"},
		{ID: "12", Date: day(18), Description: "More groceries", Amount: Money{Cents: 6025}, Type: Expense, Category: "groceries"},
	}
}
