package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finsight/internal/core"
)

// EventType names a change to a transaction.
type EventType string

const (
	EventCreated EventType = "transaction.created"
	EventUpdated EventType = "transaction.updated"
	EventDeleted EventType = "transaction.deleted"
)

// TransactionEvent is published after every successful write. Created and
// updated events carry the full transaction; deleted events only the id.
type TransactionEvent struct {
	Type        EventType         `json:"type"`
	ID          string            `json:"id"`
	OwnerID     string            `json:"ownerId,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ EventType, ownerID string, tx core.Transaction) TransactionEvent {
	ev := TransactionEvent{Type: typ, ID: tx.ID, OwnerID: ownerID, Timestamp: time.Now().UTC()}
	if typ != EventDeleted {
		ev.Transaction = &tx
	}
	return ev
}

func (e TransactionEvent) Validate() error {
	switch e.Type {
	case EventCreated, EventUpdated:
		if e.Transaction == nil {
			return fmt.Errorf("%s event without transaction", e.Type)
		}
		if e.Transaction.ID != e.ID {
			return errors.New("event id does not match transaction id")
		}
	case EventDeleted:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.ID == "" {
		return errors.New("event without id")
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes and validates an event.
func EventFromJSON(data []byte) (TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return TransactionEvent{}, err
	}
	if err := ev.Validate(); err != nil {
		return TransactionEvent{}, err
	}
	return ev, nil
}
