package memory

import (
	"context"
	"testing"

	"finsight/internal/core"
)

func TestMirror_UpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	m := New()

	tx := core.Transaction{ID: "a", Description: "Rent", Amount: core.Money{Cents: 1000}, Type: core.Expense, Category: "rent"}
	_ = m.Upsert(ctx, "u1", tx)
	_ = m.Upsert(ctx, "u1", core.Transaction{ID: "b"})

	tx.Description = "Rent March"
	_ = m.Upsert(ctx, "u1", tx)

	rows := m.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Transaction.Description != "Rent March" {
		t.Errorf("upsert should replace in place, got %q", rows[0].Transaction.Description)
	}

	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Remove(ctx, "a"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if rows := m.Rows(); len(rows) != 1 || rows[0].Transaction.ID != "b" {
		t.Errorf("unexpected rows after remove: %+v", rows)
	}
}
