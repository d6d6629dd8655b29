// Package messagequeue defines the message queue port (interface).
package messagequeue

import "context"

// Handler processes a single message.
type Handler func(subject string, data []byte) error

// Queue is the port interface for the transition event bus. Publishing is
// fire-and-forget from the engine's point of view: it happens after the
// primary transaction commits and a failure never surfaces to the caller.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Drain() error
	Close() error
	IsConnected() bool
}
