// Package queue abstracts the message queue used for booking lifecycle
// events, with an SQS implementation and an in-memory one for local
// development and tests.
package queue

import "context"

// Queue sends raw message bodies. Implementations must be safe for
// concurrent use.
type Queue interface {
	Send(ctx context.Context, body string) error
}
