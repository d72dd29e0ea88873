package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names the notification events this module produces.
type EventType string

const (
	EventOrderEscalated      EventType = "order_escalated"
	EventOrderAssigned       EventType = "order_assigned"
	EventReturnStatusChanged EventType = "return_status_changed"
)

// Event is the payload published to the notification sink.
type Event struct {
	Type       EventType  `json:"type"`
	SubjectID  uuid.UUID  `json:"subject_id"`
	NewState   string     `json:"new_state"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// Notifier delivers best-effort notifications. Implementations must never
// block the caller on delivery and must never surface delivery failures;
// a failed notification cannot roll back the action that produced it.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

// NewNop returns a notifier that drops all events.
func NewNop() Nop { return Nop{} }

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}
