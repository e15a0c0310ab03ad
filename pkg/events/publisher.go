package events

import "context"

// Publisher announces entity changes.
type Publisher interface {
	Publish(ctx context.Context, event *EntityChanged) error
}

// Handler receives changes delivered by a subscriber.
type Handler func(ctx context.Context, event *EntityChanged)

// NoOpPublisher drops every event.
type NoOpPublisher struct{}

// Publish is a no-op.
func (p *NoOpPublisher) Publish(_ context.Context, _ *EntityChanged) error {
	return nil
}

// CallbackPublisher hands events to a function, for in-process listeners and tests.
type CallbackPublisher struct {
	callback func(ctx context.Context, event *EntityChanged) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *EntityChanged) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// Publish calls the callback.
func (p *CallbackPublisher) Publish(ctx context.Context, event *EntityChanged) error {
	return p.callback(ctx, event)
}
