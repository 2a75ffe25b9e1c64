package port

import "context"

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	// PublishEvent publishes an event to the given subject (async, best-effort)
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the underlying connection
	Close() error
}
