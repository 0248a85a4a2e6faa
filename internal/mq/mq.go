package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/config"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue closed")
)

// MQ is a set of named FIFO queues.
type MQ interface {
	Publish(ctx context.Context, topic string, message []byte) error
	// Receive blocks until a message arrives, the context ends or the queue
	// is closed.
	Receive(ctx context.Context, topic string) ([]byte, error)
	Close() error
}

func NewMQ(cfg *config.Config) (MQ, error) {
	switch cfg.Dispatch {
	case config.DispatchRedis:
		if cfg.Redis == nil || cfg.Redis.Addr == "" {
			return nil, fmt.Errorf("redis dispatch requires redis.addr")
		}
		return NewRedisMQ(cfg.Redis)
	default:
		return NewInMemoryMQ(256)
	}
}
