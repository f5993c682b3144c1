// Package sheets defines the spreadsheet mirror that the event worker keeps
// in sync with the ledger.
package sheets

import (
	"context"

	"finsight/internal/core"
)

// Mirror keeps one row per transaction. Both operations are idempotent so a
// redelivered event leaves the sheet unchanged.
type Mirror interface {
	Upsert(ctx context.Context, ownerID string, tx core.Transaction) error
	Remove(ctx context.Context, id string) error
}

// Header is the first row written to an empty sheet.
var Header = []string{"ID", "Date", "Description", "Amount", "Type", "Category", "Owner"}
