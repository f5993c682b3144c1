package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2025-03-14"`), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != NewDate(2025, 3, 14) {
		t.Fatalf("got %v", d)
	}

	if err := json.Unmarshal([]byte(`"2025-03-14T23:10:00Z"`), &d); err != nil {
		t.Fatalf("rfc3339: unexpected error: %v", err)
	}
	if d != NewDate(2025, 3, 14) {
		t.Fatalf("rfc3339: got %v", d)
	}

	b, _ := json.Marshal(NewDate(2024, 2, 29))
	if string(b) != `"2024-02-29"` {
		t.Fatalf("marshal: got %s", b)
	}

	if err := json.Unmarshal([]byte(`"14/03/2025"`), &d); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          "t1",
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		Type:        Expense,
		Category:    "groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	unknownCategory := good
	unknownCategory.Category = "pets"
	if err := unknownCategory.Validate(); err != nil {
		t.Fatalf("unknown category should be accepted, got %v", err)
	}

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'x'
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"empty description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"long description", func(tx *Transaction) { tx.Description = string(long) }, ErrDescriptionTooLong},
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"empty category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"type mismatch", func(tx *Transaction) { tx.Category = "salary" }, ErrCategoryTypeMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestTransactionPatchApply(t *testing.T) {
	base := Transaction{ID: "a", Date: NewDate(2025, 1, 1), Description: "old", Amount: Money{Cents: 100}, Type: Expense, Category: "rent"}

	var p TransactionPatch
	if !p.Empty() {
		t.Fatalf("zero patch should be empty")
	}
	if got := p.Apply(base); got != base {
		t.Fatalf("empty patch changed the transaction: %+v", got)
	}

	desc := "  new  "
	amt := Money{Cents: 250}
	p = TransactionPatch{Description: &desc, Amount: &amt}
	got := p.Apply(base)
	if got.Description != "new" || got.Amount.Cents != 250 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.ID != "a" || got.Category != "rent" {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}

func TestParseTransactionType(t *testing.T) {
	if tt, err := ParseTransactionType(" income "); err != nil || tt != Income {
		t.Fatalf("got %q, %v", tt, err)
	}
	if _, err := ParseTransactionType("Income"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}
