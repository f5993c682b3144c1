package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"1e3", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		out   string
	}{
		{`40`, 4000, `40`},
		{`75.5`, 7550, `75.5`},
		{`"12.345"`, 1235, `12.35`},
		{`-5`, -500, `-5`},
	}
	for _, tc := range cases {
		var m Money
		if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if m.Cents != tc.cents {
			t.Fatalf("%s: expected %d cents, got %d", tc.in, tc.cents, m.Cents)
		}
		b, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.out {
			t.Errorf("%s: expected %s, got %s", tc.in, tc.out, b)
		}
	}

	for _, bad := range []string{`null`, `"abc"`, `true`} {
		var m Money
		if err := json.Unmarshal([]byte(bad), &m); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}

func TestMoneyHelpers(t *testing.T) {
	if got := (Money{Cents: -250}).Abs(); got.Cents != 250 {
		t.Fatalf("Abs: got %d", got.Cents)
	}
	if got := (Money{Cents: 7550}).String(); got != "75.50" {
		t.Fatalf("String: got %q", got)
	}
	if got := (Money{Cents: 1999}).Euros(); got != 19.99 {
		t.Fatalf("Euros: got %v", got)
	}
	if got := MoneyFromFloat(0.125); got.Cents != 13 {
		t.Fatalf("MoneyFromFloat: got %d", got.Cents)
	}
}
