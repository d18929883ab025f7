package queue

import "context"

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// Consumer receives messages from a queue backend and hands each one to the
// handler. A nil handler error acknowledges the message.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, Message) error) error
}
