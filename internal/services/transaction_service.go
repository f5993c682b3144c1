// Package services orchestrates transaction writes, reads and analysis
// across the ledger store, the event bus and the insight requester.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"finsight/internal/amqp"
	"finsight/internal/auth"
	"finsight/internal/cache"
	"finsight/internal/core"
	"finsight/internal/ledger"
	"finsight/internal/log"
)

// ErrEmptyPatch is returned when a partial update carries no fields.
var ErrEmptyPatch = errors.New("patch has no fields")

// Publisher sends change events. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, ev amqp.TransactionEvent) error
}

// TransactionService validates and persists transactions, then announces
// each write on the event bus. Reads go through the fallback reader.
type TransactionService struct {
	store     ledger.Store
	reader    *ledger.FallbackReader
	publisher Publisher
	catalog   *core.Catalog
	logger    *log.Logger
	newID     func() string

	dashboards cache.Cache[Dashboard]
	version    atomic.Int64
}

type Option func(*TransactionService)

// WithPublisher enables change events.
func WithPublisher(p Publisher) Option {
	return func(s *TransactionService) { s.publisher = p }
}

// WithFallback configures the read fallback tier.
func WithFallback(opts ...ledger.FallbackOption) Option {
	return func(s *TransactionService) { s.reader = ledger.NewFallbackReader(s.store, opts...) }
}

// WithDashboardCache keeps computed dashboards until the next write.
func WithDashboardCache(c cache.Cache[Dashboard]) Option {
	return func(s *TransactionService) { s.dashboards = c }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(f func() string) Option {
	return func(s *TransactionService) { s.newID = f }
}

func NewTransactionService(store ledger.Store, logger *log.Logger, opts ...Option) *TransactionService {
	s := &TransactionService{
		store:   store,
		catalog: core.DefaultCatalog,
		logger:  logger.WithComponent(log.ComponentLedger),
		newID:   uuid.NewString,
	}
	s.reader = ledger.NewFallbackReader(store)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the category catalog used for validation and labels.
func (s *TransactionService) Catalog() *core.Catalog { return s.catalog }

// List returns the caller's transactions, or sample data tagged as fallback.
func (s *TransactionService) List(ctx context.Context) (ledger.ListResult, error) {
	return s.reader.List(ctx)
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.Get(ctx, id)
}

// validateWrite applies the rules for records submitted by users, which are
// stricter than Transaction.Validate: the amount must be positive.
func validateWrite(tx core.Transaction) error {
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	return tx.Validate()
}

// Create assigns a fresh id, stores tx and publishes transaction.created.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Description = strings.TrimSpace(tx.Description)
	tx.Category = strings.TrimSpace(tx.Category)
	if err := validateWrite(tx); err != nil {
		return core.Transaction{}, err
	}
	tx.ID = s.newID()

	saved, err := s.store.Create(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.written(ctx, amqp.EventCreated, saved)
	return saved, nil
}

// Update replaces the transaction with the given id.
func (s *TransactionService) Update(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	tx.ID = id
	tx.Description = strings.TrimSpace(tx.Description)
	tx.Category = strings.TrimSpace(tx.Category)
	if err := validateWrite(tx); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.store.Update(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.written(ctx, amqp.EventUpdated, saved)
	return saved, nil
}

// Patch applies the non-nil fields of p to the stored transaction.
func (s *TransactionService) Patch(ctx context.Context, id string, p core.TransactionPatch) (core.Transaction, error) {
	if p.Empty() {
		return core.Transaction{}, ErrEmptyPatch
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return s.Update(ctx, id, p.Apply(current))
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.written(ctx, amqp.EventDeleted, core.Transaction{ID: id})
	return nil
}

// written invalidates cached dashboards, logs the write and publishes the
// event. A publish failure is logged only: the write already succeeded.
func (s *TransactionService) written(ctx context.Context, typ amqp.EventType, tx core.Transaction) {
	s.version.Add(1)

	log.NewStructuredLogger(s.logger).LogTransactionWritten(ctx, string(typ),
		tx.ID, string(tx.Type), tx.Category, tx.Amount.Cents)

	if s.publisher == nil {
		return
	}
	ev := amqp.NewEvent(typ, auth.OwnerFrom(ctx), tx)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, tx.ID, "event", typ, log.FieldError, err)
	}
}
