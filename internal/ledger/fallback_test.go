package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"finsight/internal/core"
)

type listerFunc func(ctx context.Context) ([]core.Transaction, error)

func (f listerFunc) List(ctx context.Context) ([]core.Transaction, error) { return f(ctx) }

var fixedNow = time.Date(2025, 4, 20, 12, 0, 0, 0, time.UTC)

func TestFallbackReader_PrimaryServes(t *testing.T) {
	want := []core.Transaction{{ID: "p1"}}
	r := NewFallbackReader(listerFunc(func(context.Context) ([]core.Transaction, error) { return want, nil }))

	got, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Source != SourcePrimary || got.Cause != nil || got.FromFallback() {
		t.Fatalf("expected primary result, got %+v", got)
	}
	if len(got.Transactions) != 1 || got.Transactions[0].ID != "p1" {
		t.Fatalf("unexpected transactions %+v", got.Transactions)
	}
}

func TestFallbackReader_PrimaryFails(t *testing.T) {
	boom := errors.New("connection refused")
	r := NewFallbackReader(
		listerFunc(func(context.Context) ([]core.Transaction, error) { return nil, boom }),
		WithClock(func() time.Time { return fixedNow }),
	)

	got, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.FromFallback() || !errors.Is(got.Cause, boom) {
		t.Fatalf("expected fallback with cause, got %+v", got)
	}
	if len(got.Transactions) != 12 {
		t.Fatalf("expected sample set, got %d transactions", len(got.Transactions))
	}
	for _, tx := range got.Transactions {
		if !core.SameMonthAs(fixedNow)(tx) {
			t.Fatalf("sample %s not dated in the current month", tx.ID)
		}
	}
}

func TestFallbackReader_NotConfigured(t *testing.T) {
	r := NewFallbackReader(nil, WithFallbackData(func(time.Time) []core.Transaction {
		return []core.Transaction{{ID: "s"}}
	}))
	got, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(got.Cause, ErrNotConfigured) || got.Transactions[0].ID != "s" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestFallbackReader_Disabled(t *testing.T) {
	boom := errors.New("boom")
	r := NewFallbackReader(
		listerFunc(func(context.Context) ([]core.Transaction, error) { return nil, boom }),
		WithFallbackEnabled(false),
	)
	if _, err := r.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected primary error, got %v", err)
	}
}

func TestFallbackReader_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewFallbackReader(listerFunc(func(ctx context.Context) ([]core.Transaction, error) { return nil, ctx.Err() }))
	if _, err := r.List(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
