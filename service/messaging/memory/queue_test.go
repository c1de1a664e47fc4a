package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value string
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &payload{Value: "one"}))
	require.NoError(t, queue.Publish(ctx, &payload{Value: "two"}))
	assert.Equal(t, 2, queue.Size())

	msg, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", msg.T().Value)
	require.NoError(t, msg.Ack())
	assert.Error(t, msg.Ack(), "double ack is rejected")
}

func TestQueue_ConsumeHonorsContext(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestQueue_NackRedelivers(t *testing.T) {
	config := Config{MaxRedeliveries: 1, RedeliveryDelay: time.Millisecond, Buffer: 10}
	queue := NewQueue[payload](config)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &payload{Value: "retry-me"}))

	msg, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, msg.Nack(errors.New("processing failed")))

	redelivered, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "retry-me", redelivered.T().Value)

	// Redelivery limit reached: the next nack drops the message.
	require.NoError(t, redelivered.Nack(errors.New("still failing")))
	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = queue.Consume(waitCtx)
	assert.Error(t, err, "message beyond the redelivery limit is dropped")
}
