// Package memory provides a channel-backed messaging queue.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docforge/docforge/internal/idgen"
	"github.com/docforge/docforge/service/messaging"
)

// Config for the in-memory queue.
type Config struct {
	MaxRedeliveries int
	RedeliveryDelay time.Duration
	Buffer          int
}

// DefaultConfig returns a standard configuration.
func DefaultConfig() Config {
	return Config{
		MaxRedeliveries: 3,
		RedeliveryDelay: 100 * time.Millisecond,
		Buffer:          100,
	}
}

// Message implements messaging.Message for the in-memory queue.
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	deliveries int
	mu         sync.Mutex
	done       bool
}

// T returns the message payload.
func (m *Message[T]) T() *T { return &m.payload }

// Ack marks the message processed.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return fmt.Errorf("message already processed")
	}
	m.done = true
	return nil
}

// Nack requeues the message after a delay until the redelivery limit is
// reached; beyond that the message is dropped.
func (m *Message[T]) Nack(_ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return fmt.Errorf("message already processed")
	}
	m.done = true
	m.deliveries++
	if m.deliveries > m.queue.config.MaxRedeliveries {
		return nil
	}
	go func() {
		time.Sleep(m.queue.config.RedeliveryDelay)
		m.queue.messages <- &Message[T]{
			id:         m.id,
			payload:    m.payload,
			queue:      m.queue,
			deliveries: m.deliveries,
		}
	}()
	return nil
}

// Queue implements an in-memory messaging.Queue.
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
}

var _ messaging.Queue[any] = (*Queue[any])(nil)

// NewQueue creates a queue with the supplied configuration.
func NewQueue[T any](config Config) *Queue[T] {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.Buffer),
		config:   config,
	}
}

// Publish adds a new item to the queue.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &Message[T]{id: idgen.New(), payload: *t, queue: q}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the number of buffered messages.
func (q *Queue[T]) Size() int { return len(q.messages) }
