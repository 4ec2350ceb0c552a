package bus

import "time"

// EventBus is an in-process, synchronous pub/sub bus.
//
// Handlers subscribe by Event.Type(); the Wildcard type receives every event.
// Publish runs handlers in the caller goroutine, in subscription order, and
// joins their errors. Subscribing and cancelling are safe from any goroutine.
type EventBus interface {
	Publish(event Event) error

	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is a no-op.
	Unsubscribe(Subscription) error

	// Stats returns counters accumulated since the bus was created.
	Stats() Stats
}

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type EventHandler func(event Event) error

// Subscription is a registered handler. Cancel may be called more than once.
type Subscription interface {
	ID() string
	EventType() string
	IsActive() bool
	Cancel() error
}

type Stats struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	Subscribers       uint64
}
