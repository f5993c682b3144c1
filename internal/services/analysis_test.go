package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finsight/internal/core"
	"finsight/internal/insight"
	"finsight/internal/ledger/memory"
)

const validAnalysis = `{"summary":"Rent dominates.","categorizedInsights":[{"category":"Housing","totalAmount":1000,"percentageOfTotal":100,"examples":["Rent"]}],"suggestions":["Review the lease."]}`

func TestAnalysisService_UsesLedgerWhenNoTransactionsGiven(t *testing.T) {
	store := memory.NewSeeded([]core.Transaction{
		{ID: "a", Date: core.NewDate(2024, 1, 3), Description: "Rent", Amount: core.Money{Cents: 100000}, Type: core.Expense, Category: "rent"},
	})
	var seen insight.Prompt
	gen := insight.GeneratorFunc(func(_ context.Context, p insight.Prompt) ([]byte, error) {
		seen = p
		return []byte(validAnalysis), nil
	})
	svc := NewAnalysisService(insight.NewRequester(gen, discard()), NewTransactionService(store, discard()), discard())

	res, err := svc.Analyze(context.Background(), AnalysisRequest{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Summary != "Rent dominates." {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.Contains(seen.Text, "Rent") || !strings.Contains(seen.Text, "1000.00") {
		t.Errorf("prompt should carry the stored transaction and derived history:\n%s", seen.Text)
	}
}

func TestAnalysisService_ExplicitInput(t *testing.T) {
	var seen insight.Prompt
	gen := insight.GeneratorFunc(func(_ context.Context, p insight.Prompt) ([]byte, error) {
		seen = p
		return []byte(validAnalysis), nil
	})
	svc := NewAnalysisService(insight.NewRequester(gen, discard()), NewTransactionService(memory.New(), discard()), discard())

	hist := "Spent 50 last year."
	_, err := svc.Analyze(context.Background(), AnalysisRequest{
		Transactions:      []core.Transaction{{Date: core.NewDate(2024, 2, 1), Description: "Gym", Amount: core.Money{Cents: -3000}, Type: core.Expense, Category: "health"}},
		HistoricalSummary: &hist,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.Contains(seen.Text, hist) {
		t.Errorf("prompt should carry the supplied history:\n%s", seen.Text)
	}
}

func TestAnalysisService_Unavailable(t *testing.T) {
	svc := NewAnalysisService(nil, NewTransactionService(memory.New(), discard()), discard())
	if svc.Available() {
		t.Fatal("service without generator should be unavailable")
	}
	_, err := svc.Analyze(context.Background(), AnalysisRequest{Transactions: []core.Transaction{{ID: "x"}}})
	if !errors.Is(err, insight.ErrAnalysisFailed) || err.Error() != "analysis failed" {
		t.Fatalf("err = %v, want analysis failed", err)
	}
}
