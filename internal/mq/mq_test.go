package mq

import (
	"context"
	"testing"
	"time"

	"github.com/cozy-creator/product-studio/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMQ_FIFO(t *testing.T) {
	q, err := NewInMemoryMQ(4)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "jobs", []byte("a")))
	require.NoError(t, q.Publish(ctx, "jobs", []byte("b")))

	got, err := q.Receive(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))

	got, err = q.Receive(ctx, "jobs")
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestInMemoryMQ_Full(t *testing.T) {
	q, _ := NewInMemoryMQ(1)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "jobs", []byte("a")))
	assert.ErrorIs(t, q.Publish(ctx, "jobs", []byte("b")), ErrQueueFull)
}

func TestInMemoryMQ_ReceiveHonoursContext(t *testing.T) {
	q, _ := NewInMemoryMQ(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Receive(ctx, "empty")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryMQ_Close(t *testing.T) {
	q, _ := NewInMemoryMQ(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	_, err := q.Receive(context.Background(), "jobs")
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.ErrorIs(t, q.Publish(context.Background(), "jobs", nil), ErrQueueClosed)
}

func TestNewMQ(t *testing.T) {
	q, err := NewMQ(&config.Config{Dispatch: config.DispatchPool})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryMQ{}, q)

	_, err = NewMQ(&config.Config{Dispatch: config.DispatchRedis})
	assert.Error(t, err)
}
