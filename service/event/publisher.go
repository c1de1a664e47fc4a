package event

import (
	"context"
	"sync"

	"github.com/docforge/docforge/service/messaging"
)

// Publisher fans events into a queue. Publishing is best-effort: delivery
// failures never stall the engine loop.
type Publisher struct {
	queue messaging.Queue[Event]
}

// NewPublisher wraps a queue.
func NewPublisher(queue messaging.Queue[Event]) *Publisher {
	return &Publisher{queue: queue}
}

// Publish sends the event; nil publishers and delivery failures are ignored
// so instrumentation can never fail a run.
func (p *Publisher) Publish(ctx context.Context, e *Event) {
	if p == nil || p.queue == nil || e == nil {
		return
	}
	_ = p.queue.Publish(ctx, e)
}

// Listener consumes events from a queue and invokes a handler until stopped.
type Listener struct {
	queue    messaging.Queue[Event]
	handler  func(*Event)
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// NewListener starts consuming immediately on a background goroutine.
func NewListener(queue messaging.Queue[Event], handler func(*Event)) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Listener{
		queue:   queue,
		handler: handler,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go l.run(ctx)
	return l
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)
	for {
		msg, err := l.queue.Consume(ctx)
		if err != nil {
			return
		}
		l.handler(msg.T())
		_ = msg.Ack()
	}
}

// Stop terminates consumption and waits for the loop to exit.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.cancel()
		<-l.done
	})
}
