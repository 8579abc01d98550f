// Package outbox defines the in-process event ports used to decouple
// side effects (metrics, notifications) from the write path.
package outbox

import "context"

// Event is any domain event with a name identifier.
type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
