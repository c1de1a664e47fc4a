// Package messaging defines the queue abstraction used to deliver run
// lifecycle events to observers without coupling the engine to any concrete
// transport.
package messaging

import "context"

// Queue is an abstract message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one
	// is available or the context ends.
	Consume(ctx context.Context) (Message[T], error)

	// Size reports the number of messages currently queued.
	Size() int
}

// Message is a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing.
	Ack() error

	// Nack signals failed processing; implementations may requeue.
	Nack(err error) error
}
