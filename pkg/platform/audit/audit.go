// Package audit captures the write trail of the registration graph. Events
// are emitted from domain logic after commit; sinks range from an in-memory
// store in tests to a Kafka topic in production.
package audit

import (
	"context"
	"errors"
	"time"
)

// ErrInboxFull reports a dropped event; callers log it and move on.
var ErrInboxFull = errors.New("audit: inbox full, event dropped")

// Event kinds emitted by the registration service.
const (
	KindAssociationCreated = "association.created"
	KindAssociationUpdated = "association.updated"
	KindAssociationDeleted = "association.deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	Category  string    `json:"category"`
	ProgramID string    `json:"programId"`
	EntityID  string    `json:"entityId"`
	At        time.Time `json:"at"`
}

// Store is an append-only event sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter is the hook domain services publish through.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Publisher appends events straight to a store. It stamps the event time when
// the caller left it zero.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	return p.store.Append(ctx, event)
}
