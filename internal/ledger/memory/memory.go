// Package memory is an in-process transaction store.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"finsight/internal/auth"
	"finsight/internal/core"
	"finsight/internal/ledger"
)

// Store keeps transactions per owner in insertion order.
type Store struct {
	mu    sync.Mutex
	items map[string][]core.Transaction
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string][]core.Transaction)}
}

// NewSeeded returns a store whose anonymous owner starts with txs.
func NewSeeded(txs []core.Transaction) *Store {
	s := New()
	s.items[""] = append([]core.Transaction(nil), txs...)
	return s
}

func (s *Store) List(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction{}, s.items[auth.OwnerFrom(ctx)]...), nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.items[auth.OwnerFrom(ctx)] {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, ledger.ErrNotFound
}

// Create stores tx, assigning an id when it has none.
func (s *Store) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := auth.OwnerFrom(ctx)
	s.items[owner] = append(s.items[owner], tx)
	return tx, nil
}

func (s *Store) Update(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[auth.OwnerFrom(ctx)]
	for i := range items {
		if items[i].ID == tx.ID {
			items[i] = tx
			return tx, nil
		}
	}
	return core.Transaction{}, ledger.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := auth.OwnerFrom(ctx)
	items := s.items[owner]
	for i := range items {
		if items[i].ID == id {
			s.items[owner] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}
