package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/ledger"
)

const recentCount = 5

// Dashboard is the monthly overview rendered on the home page.
type Dashboard struct {
	Year    int                `json:"year"`
	Month   int                `json:"month"`
	Summary core.Summary       `json:"summary"`
	Recent  []core.Transaction `json:"recent"`
	Trend   []core.MonthTotals `json:"trend"`
	Source  ledger.Source      `json:"source"`
	Warning string             `json:"warning,omitempty"`
}

// FallbackWarning is shown whenever sample data stands in for the ledger.
const FallbackWarning = "Showing sample data: the transaction backend is unavailable."

// Dashboard aggregates the given month. Results served from the primary
// store are cached until the next write.
func (s *TransactionService) Dashboard(ctx context.Context, year int, month time.Month) (Dashboard, error) {
	if month < time.January || month > time.December {
		return Dashboard{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}

	key := fmt.Sprintf("%s|%d|%d-%02d", auth.OwnerFrom(ctx), s.version.Load(), year, month)
	if s.dashboards != nil {
		if d, ok := s.dashboards.Get(key); ok {
			return d, nil
		}
	}

	res, err := s.reader.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{Year: year, Month: int(month), Source: res.Source}
	if res.FromFallback() {
		d.Warning = FallbackWarning
	}

	txs := res.Transactions
	var g errgroup.Group
	g.Go(func() error {
		d.Summary = core.Aggregate(txs, core.InMonth(year, month), core.Expense, s.catalog)
		return nil
	})
	g.Go(func() error {
		d.Recent = core.Recent(txs, recentCount)
		return nil
	})
	g.Go(func() error {
		d.Trend = core.MonthlyTotals(txs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	if s.dashboards != nil && !res.FromFallback() {
		s.dashboards.Set(key, d)
	}
	return d, nil
}
