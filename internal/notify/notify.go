// Package notify broadcasts local-store changes to every open view of the
// application. It is the explicit publish/subscribe contract behind what the
// browser build did with storage events: per-key publish order is preserved,
// delivery is at-most-once per subscriber, and delivery back to the
// publishing view is not guaranteed — a publisher must update its own state
// directly before publishing.
package notify

import "context"

// Change is the ephemeral message announcing that a store slot changed. It
// carries no identity or ordering guarantee beyond publish order per key.
type Change struct {
	Key      string `json:"key"`
	NewValue string `json:"new_value"`
}

// Handler receives one change per publish.
type Handler func(change Change)

// Notifier announces store changes to other views.
type Notifier interface {
	// Publish announces a change. Implementations without a broadcast
	// channel make this a no-op; the caller has already updated its own
	// state directly.
	Publish(ctx context.Context, change Change) error

	// Subscribe registers a handler for subsequent changes. Handlers run
	// asynchronously on a dedicated goroutine per subscription, in
	// delivery order. The returned stop function cancels the subscription.
	Subscribe(ctx context.Context, handler Handler) (stop func(), err error)
}

// Noop is the notifier used when no broadcast channel is available.
type Noop struct{}

// Publish does nothing
func (Noop) Publish(context.Context, Change) error { return nil }

// Subscribe registers nothing and never delivers
func (Noop) Subscribe(context.Context, Handler) (func(), error) {
	return func() {}, nil
}
