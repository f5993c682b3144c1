package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/auth"
	"finsight/internal/cache"
	"finsight/internal/core"
	"finsight/internal/ledger"
	"finsight/internal/ledger/memory"
	"finsight/internal/log"
)

func discard() *log.Logger { return log.New(log.Config{Output: io.Discard}) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func groceries() core.Transaction {
	return core.Transaction{
		Date:        core.NewDate(2024, 5, 2),
		Description: "  Weekly shop ",
		Amount:      core.Money{Cents: 6420},
		Type:        core.Expense,
		Category:    "groceries",
	}
}

func newService(t *testing.T, opts ...Option) (*TransactionService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	ids := 0
	opts = append([]Option{
		WithPublisher(pub),
		WithIDGenerator(func() string { ids++; return fmt.Sprintf("tx-%d", ids) }),
	}, opts...)
	return NewTransactionService(memory.New(), discard(), opts...), pub
}

func TestTransactionService_Create(t *testing.T) {
	svc, pub := newService(t)
	ctx := auth.WithSession(context.Background(), auth.Session{UserID: "user-1"})

	in := groceries()
	in.ID = "client-chosen"
	got, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != "tx-1" {
		t.Errorf("ID = %q, want server-assigned tx-1", got.ID)
	}
	if got.Description != "Weekly shop" {
		t.Errorf("description not trimmed: %q", got.Description)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != amqp.EventCreated || ev.OwnerID != "user-1" || ev.Transaction == nil || ev.Transaction.ID != "tx-1" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestTransactionService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.Transaction)
		want   error
	}{
		{"zero amount", func(tx *core.Transaction) { tx.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"negative amount", func(tx *core.Transaction) { tx.Amount = core.Money{Cents: -5} }, core.ErrInvalidAmount},
		{"blank description", func(tx *core.Transaction) { tx.Description = "   " }, core.ErrEmptyDescription},
		{"bad type", func(tx *core.Transaction) { tx.Type = "transfer" }, core.ErrInvalidType},
		{"missing category", func(tx *core.Transaction) { tx.Category = "" }, core.ErrEmptyCategory},
		{"category of other type", func(tx *core.Transaction) { tx.Category = "salary" }, core.ErrCategoryTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub := newService(t)
			tx := groceries()
			tt.mutate(&tx)
			_, err := svc.Create(context.Background(), tx)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if len(pub.events) != 0 {
				t.Error("rejected write must not publish")
			}
		})
	}
}

func TestTransactionService_UpdatePatchDelete(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, groceries())
	if err != nil {
		t.Fatal(err)
	}

	upd := created
	upd.Amount = core.Money{Cents: 7000}
	if _, err := svc.Update(ctx, created.ID, upd); err != nil {
		t.Fatalf("Update: %v", err)
	}

	desc := "Market"
	patched, err := svc.Patch(ctx, created.ID, core.TransactionPatch{Description: &desc})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched.Description != "Market" || patched.Amount.Cents != 7000 {
		t.Errorf("unexpected patched transaction %+v", patched)
	}

	if _, err := svc.Patch(ctx, created.ID, core.TransactionPatch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("empty patch err = %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, "missing", groceries()); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("update missing err = %v, want ErrNotFound", err)
	}

	want := []amqp.EventType{amqp.EventCreated, amqp.EventUpdated, amqp.EventUpdated, amqp.EventDeleted}
	got := pub.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if pub.events[3].Transaction != nil {
		t.Error("deleted event should not carry a transaction")
	}
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc, pub := newService(t)
	pub.err = errors.New("circuit breaker is open")

	if _, err := svc.Create(context.Background(), groceries()); err != nil {
		t.Fatalf("Create should succeed when publishing fails: %v", err)
	}
	res, err := svc.List(context.Background())
	if err != nil || len(res.Transactions) != 1 {
		t.Fatalf("List = %v, %v", res, err)
	}
}

type failingStore struct{ ledger.Store }

func (failingStore) List(context.Context) ([]core.Transaction, error) {
	return nil, errors.New("backend down")
}

func TestTransactionService_ListFallback(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	svc := NewTransactionService(failingStore{memory.New()}, discard(),
		WithFallback(ledger.WithClock(func() time.Time { return now })))

	res, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !res.FromFallback() || len(res.Transactions) == 0 {
		t.Fatalf("expected sample data, got %+v", res)
	}

	svc = NewTransactionService(failingStore{memory.New()}, discard(),
		WithFallback(ledger.WithFallbackEnabled(false)))
	if _, err := svc.List(context.Background()); err == nil {
		t.Fatal("expected error with fallback disabled")
	}
}

func TestTransactionService_Dashboard(t *testing.T) {
	dashboards := cache.NewLRUCache[Dashboard](10, time.Minute)
	svc, _ := newService(t, WithDashboardCache(dashboards))
	ctx := context.Background()

	for _, tx := range []core.Transaction{
		{Date: core.NewDate(2024, 5, 1), Description: "Salary", Amount: core.Money{Cents: 300000}, Type: core.Income, Category: "salary"},
		{Date: core.NewDate(2024, 5, 3), Description: "Rent", Amount: core.Money{Cents: 90000}, Type: core.Expense, Category: "rent"},
		{Date: core.NewDate(2024, 5, 9), Description: "Food", Amount: core.Money{Cents: 10000}, Type: core.Expense, Category: "groceries"},
		{Date: core.NewDate(2024, 4, 9), Description: "Food", Amount: core.Money{Cents: 5000}, Type: core.Expense, Category: "groceries"},
	} {
		if _, err := svc.Create(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	d, err := svc.Dashboard(ctx, 2024, time.May)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Summary.TotalIncome.Cents != 300000 || d.Summary.TotalExpense.Cents != 100000 || d.Summary.Balance.Cents != 200000 {
		t.Errorf("unexpected totals %+v", d.Summary)
	}
	if len(d.Summary.PerCategory) != 2 || d.Summary.PerCategory[0].Percentage+d.Summary.PerCategory[1].Percentage != 100 {
		t.Errorf("unexpected breakdown %+v", d.Summary.PerCategory)
	}
	if len(d.Recent) != 4 || d.Recent[0].Description != "Food" || d.Recent[0].Date.Day() != 9 {
		t.Errorf("unexpected recent %+v", d.Recent)
	}
	if len(d.Trend) != 2 {
		t.Errorf("trend months = %d, want 2", len(d.Trend))
	}
	if d.Source != ledger.SourcePrimary || d.Warning != "" {
		t.Errorf("unexpected source %q warning %q", d.Source, d.Warning)
	}
	if dashboards.Size() != 1 {
		t.Errorf("dashboard should be cached, size = %d", dashboards.Size())
	}

	// a write makes the cached dashboard unreachable
	if _, err := svc.Create(ctx, core.Transaction{Date: core.NewDate(2024, 5, 20), Description: "Cinema", Amount: core.Money{Cents: 1500}, Type: core.Expense, Category: "entertainment"}); err != nil {
		t.Fatal(err)
	}
	d, err = svc.Dashboard(ctx, 2024, time.May)
	if err != nil {
		t.Fatal(err)
	}
	if d.Summary.TotalExpense.Cents != 101500 {
		t.Errorf("stale dashboard served: %+v", d.Summary)
	}

	if _, err := svc.Dashboard(ctx, 2024, 13); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("month 13 err = %v", err)
	}
}
