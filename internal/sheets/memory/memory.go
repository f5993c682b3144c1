// Package memory is an in-process sheets.Mirror for tests and local runs
// without a spreadsheet.
package memory

import (
	"context"
	"sync"

	"finsight/internal/core"
	"finsight/internal/sheets"
)

var _ sheets.Mirror = (*Mirror)(nil)

type Row struct {
	OwnerID     string
	Transaction core.Transaction
}

type Mirror struct {
	mu    sync.Mutex
	order []string
	rows  map[string]Row
}

func New() *Mirror {
	return &Mirror{rows: map[string]Row{}}
}

func (m *Mirror) Upsert(_ context.Context, ownerID string, tx core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tx.ID]; !ok {
		m.order = append(m.order, tx.ID)
	}
	m.rows[tx.ID] = Row{OwnerID: ownerID, Transaction: tx}
	return nil
}

func (m *Mirror) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored rows in insertion order.
func (m *Mirror) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Row, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id])
	}
	return out
}
