package service

import "context"

// Notifier dispatches an outbound message.  Delivery is fire-and-forget
// from the caller's point of view; errors are only logged.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Invalidator signals that public catalog views are stale.
type Invalidator interface {
	InvalidatePublic(ctx context.Context) error
}

// NopInvalidator is used when no cache is configured.
type NopInvalidator struct{}

// InvalidatePublic implements Invalidator.
func (NopInvalidator) InvalidatePublic(context.Context) error { return nil }
