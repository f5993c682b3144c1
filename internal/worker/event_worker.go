// Package worker applies transaction change events to the spreadsheet mirror.
package worker

import (
	"context"
	"fmt"
	"time"

	"finsight/internal/amqp"
	"finsight/internal/log"
	"finsight/internal/sheets"
)

// Consumer delivers events to a handler until ctx is done. *amqp.Client
// implements it.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.EventHandler) error
}

// EventWorker keeps a sheets.Mirror in step with the ledger.
type EventWorker struct {
	mirror sheets.Mirror
	logger *log.Logger
}

func NewEventWorker(mirror sheets.Mirror, logger *log.Logger) *EventWorker {
	return &EventWorker{mirror: mirror, logger: logger.WithComponent(log.ComponentWorker)}
}

// Run consumes events until ctx is cancelled.
func (w *EventWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Event worker started")
	err := consumer.Consume(ctx, w.Handle)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Event worker stopped")
		return nil
	}
	return err
}

// Handle applies one event. A returned error asks for redelivery.
func (w *EventWorker) Handle(ctx context.Context, ev amqp.TransactionEvent) error {
	start := time.Now()

	var err error
	switch ev.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		err = w.mirror.Upsert(ctx, ev.OwnerID, *ev.Transaction)
	case amqp.EventDeleted:
		err = w.mirror.Remove(ctx, ev.ID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if err != nil {
		return fmt.Errorf("mirror %s %s: %w", ev.Type, ev.ID, err)
	}

	w.logger.InfoContext(ctx, "Event mirrored",
		log.FieldOperation, log.OpMirror,
		"event", ev.Type,
		log.FieldTransactionID, ev.ID,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}
