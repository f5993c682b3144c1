// Package ledger defines the transaction store ports and the two-tier read
// strategy that substitutes sample data when the primary store is unavailable.
package ledger

import (
	"context"
	"errors"

	"finsight/internal/core"
)

var (
	// ErrNotFound is returned when no transaction has the requested id.
	ErrNotFound = errors.New("transaction not found")
	// ErrNotConfigured is returned by stores whose location is unset.
	ErrNotConfigured = errors.New("transaction backend not configured")
)

// Ports for transaction storage. Implementations scope every call to the
// owner carried by the auth session in ctx, if any.
type (
	Lister interface {
		List(ctx context.Context) ([]core.Transaction, error)
	}

	Getter interface {
		Get(ctx context.Context, id string) (core.Transaction, error)
	}

	Writer interface {
		// Create stores tx and returns it as persisted. Stores that assign
		// ids themselves may replace tx.ID.
		Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// Update replaces the transaction with tx.ID.
		Update(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		Delete(ctx context.Context, id string) error
	}

	Store interface {
		Lister
		Getter
		Writer
	}
)
