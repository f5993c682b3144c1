package worker

import (
	"context"
	"errors"
	"io"
	"testing"

	"finsight/internal/amqp"
	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/sheets/memory"
)

func discard() *log.Logger { return log.New(log.Config{Output: io.Discard}) }

func TestEventWorker_Handle(t *testing.T) {
	mirror := memory.New()
	w := NewEventWorker(mirror, discard())
	ctx := context.Background()

	tx := core.Transaction{ID: "tx-1", Description: "Rent", Amount: core.Money{Cents: 90000}, Type: core.Expense, Category: "rent"}
	events := []amqp.TransactionEvent{
		amqp.NewEvent(amqp.EventCreated, "u1", tx),
		amqp.NewEvent(amqp.EventCreated, "u1", core.Transaction{ID: "tx-2", Description: "Pay"}),
	}
	tx.Description = "Rent (March)"
	events = append(events,
		amqp.NewEvent(amqp.EventUpdated, "u1", tx),
		amqp.NewEvent(amqp.EventDeleted, "u1", core.Transaction{ID: "tx-2"}),
		amqp.NewEvent(amqp.EventDeleted, "u1", core.Transaction{ID: "tx-2"}),
	)

	for _, ev := range events {
		if err := w.Handle(ctx, ev); err != nil {
			t.Fatalf("Handle(%s %s): %v", ev.Type, ev.ID, err)
		}
	}

	rows := mirror.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Transaction.Description != "Rent (March)" || rows[0].OwnerID != "u1" {
		t.Errorf("unexpected row %+v", rows[0])
	}
}

type brokenMirror struct{}

func (brokenMirror) Upsert(context.Context, string, core.Transaction) error {
	return errors.New("quota exceeded")
}
func (brokenMirror) Remove(context.Context, string) error { return errors.New("quota exceeded") }

func TestEventWorker_HandleMirrorFailure(t *testing.T) {
	w := NewEventWorker(brokenMirror{}, discard())
	err := w.Handle(context.Background(), amqp.NewEvent(amqp.EventDeleted, "", core.Transaction{ID: "x"}))
	if err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if err := w.Handle(context.Background(), amqp.TransactionEvent{Type: "bogus", ID: "x"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

type stubConsumer struct {
	events []amqp.TransactionEvent
	errs   []error
}

func (s *stubConsumer) Consume(ctx context.Context, handler amqp.EventHandler) error {
	for _, ev := range s.events {
		s.errs = append(s.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestEventWorker_Run(t *testing.T) {
	mirror := memory.New()
	w := NewEventWorker(mirror, discard())
	consumer := &stubConsumer{events: []amqp.TransactionEvent{
		amqp.NewEvent(amqp.EventCreated, "", core.Transaction{ID: "a", Description: "Coffee"}),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run should return nil on cancellation, got %v", err)
	}
	if len(mirror.Rows()) != 1 || consumer.errs[0] != nil {
		t.Errorf("event not applied: rows=%v errs=%v", mirror.Rows(), consumer.errs)
	}
}
