package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const maxDescriptionLen = 200

type (
	TransactionType string

	// Date is a calendar day. The time-of-day component is always zero UTC.
	Date struct {
		time.Time
	}

	// Money is an amount in cents.
	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
	}

	// TransactionPatch carries a partial update. Nil fields are left untouched.
	TransactionPatch struct {
		Date        *Date            `json:"date,omitempty"`
		Description *string          `json:"description,omitempty"`
		Amount      *Money           `json:"amount,omitempty"`
		Type        *TransactionType `json:"type,omitempty"`
		Category    *string          `json:"category,omitempty"`
	}
)

var (
	ErrInvalidDay           = errors.New("invalid day")
	ErrInvalidMonth         = errors.New("invalid month")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidType          = errors.New("invalid transaction type")
	ErrEmptyDescription     = errors.New("empty description")
	ErrDescriptionTooLong   = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrEmptyCategory        = errors.New("empty category")
	ErrCategoryTypeMismatch = errors.New("category does not belong to transaction type")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts the lowercase wire names only.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.TrimSpace(s))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time-of-day of t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate accepts "2006-01-02" and RFC3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("%w: expected string", ErrInvalidDate)
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate rejects non-positive amounts. Use it for user submitted records.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a stored or fetched transaction. Amounts may be zero but
// never negative; the category must match the type when the catalog knows it.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if c, ok := DefaultCatalog.Lookup(t.Category); ok && c.Type != t.Type {
		return ErrCategoryTypeMismatch
	}
	return nil
}

// Apply returns a copy of t with the non-nil fields of p set.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	return t
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Date == nil && p.Description == nil && p.Amount == nil && p.Type == nil && p.Category == nil
}
