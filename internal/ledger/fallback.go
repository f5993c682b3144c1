package ledger

import (
	"context"
	"errors"
	"time"

	"finsight/internal/core"
	"finsight/internal/log"
)

// Source tells which tier served a read.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// ListResult is the outcome of a two-tier read. Cause is set when the
// fallback tier served the data and explains why the primary did not.
type ListResult struct {
	Transactions []core.Transaction
	Source       Source
	Cause        error
}

// FromFallback reports whether the sample set was substituted.
func (r ListResult) FromFallback() bool { return r.Source == SourceFallback }

// FallbackReader reads from a primary Lister and substitutes the static
// sample set when the primary is unconfigured or fails. It only serves
// reads; writes must go to the primary store directly.
type FallbackReader struct {
	primary  Lister
	enabled  bool
	now      func() time.Time
	fallback func(time.Time) []core.Transaction
}

type FallbackOption func(*FallbackReader)

// WithFallbackEnabled turns the fallback tier on or off. It is on by default.
func WithFallbackEnabled(enabled bool) FallbackOption {
	return func(r *FallbackReader) { r.enabled = enabled }
}

// WithClock overrides time.Now, which dates the sample set.
func WithClock(now func() time.Time) FallbackOption {
	return func(r *FallbackReader) { r.now = now }
}

// WithFallbackData replaces the sample set.
func WithFallbackData(f func(time.Time) []core.Transaction) FallbackOption {
	return func(r *FallbackReader) { r.fallback = f }
}

func NewFallbackReader(primary Lister, opts ...FallbackOption) *FallbackReader {
	r := &FallbackReader{
		primary:  primary,
		enabled:  true,
		now:      time.Now,
		fallback: core.SampleTransactions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns the primary data, or the fallback set tagged with the cause.
// An error is returned only when the fallback is disabled or the caller's
// context is done.
func (r *FallbackReader) List(ctx context.Context) (ListResult, error) {
	var cause error
	if r.primary == nil {
		cause = ErrNotConfigured
	} else {
		txs, err := r.primary.List(ctx)
		if err == nil {
			return ListResult{Transactions: txs, Source: SourcePrimary}, nil
		}
		cause = err
	}

	if !r.enabled {
		return ListResult{}, cause
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(cause, ErrNotConfigured) {
		return ListResult{}, cause
	}

	log.FromContext(ctx).WithComponent(log.ComponentLedger).WarnContext(ctx, "Serving fallback transactions",
		log.FieldSource, SourceFallback, log.FieldError, cause.Error())

	return ListResult{
		Transactions: r.fallback(r.now()),
		Source:       SourceFallback,
		Cause:        cause,
	}, nil
}
