// Package eventbus provides the progress sink transport: best-effort
// delivery of query lifecycle events to observers.
package eventbus

import (
	"context"

	"github.com/askdb/askdb/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventHandler func(ctx context.Context, event any) error

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler) error
}

type EventBus interface {
	EventPublisher
	EventSubscriber

	GenerateID() string
	Close() error
}
