// Package events publishes domain events after successful ledger mutations.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type names a domain event. It doubles as the AMQP routing key.
type Type string

const (
	BillCreated       Type = "bill.created"
	BillUpdated       Type = "bill.updated"
	BillCompleted     Type = "bill.completed"
	BillDeleted       Type = "bill.deleted"
	PaymentRegistered Type = "payment.registered"
	GroupCreated      Type = "group.created"
	GroupDeleted      Type = "group.deleted"
)

// Event is a lightweight notification. Consumers fetch full state from the
// snapshot export; the event only says what changed.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	OccurredAt    time.Time `json:"occurredAt"`
	BillID        string    `json:"billId,omitempty"`
	GroupID       string    `json:"groupId,omitempty"`
	PaymentID     string    `json:"paymentId,omitempty"`
	ParticipantID string    `json:"participantId,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Version       int64     `json:"version,omitempty"`
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
