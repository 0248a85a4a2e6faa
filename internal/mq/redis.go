package mq

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/cozy-creator/product-studio/internal/config"

	"github.com/redis/go-redis/v9"
)

// pollTimeout bounds each BRPOP so Receive notices a cancelled context.
const pollTimeout = 5 * time.Second

// RedisMQ pushes on the left and pops on the right of a redis list.
type RedisMQ struct {
	client *redis.Client
}

func NewRedisMQ(cfg *config.RedisConfig) (*RedisMQ, error) {
	var tlsConfig *tls.Config
	if cfg.TLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		TLSConfig:    tlsConfig,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  pollTimeout + 5*time.Second,
		WriteTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisMQ{client: client}, nil
}

// NewRedisMQFromClient wraps an existing client.
func NewRedisMQFromClient(client *redis.Client) *RedisMQ {
	return &RedisMQ{client: client}
}

func (q *RedisMQ) Publish(ctx context.Context, topic string, message []byte) error {
	return q.client.LPush(ctx, topic, message).Err()
}

func (q *RedisMQ) Receive(ctx context.Context, topic string) ([]byte, error) {
	for {
		result, err := q.client.BRPop(ctx, pollTimeout, topic).Result()
		if err == nil {
			// result[0] is the list name, result[1] the payload
			return []byte(result[1]), nil
		}

		if errors.Is(err, redis.Nil) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrQueueClosed
		}
		return nil, err
	}
}

func (q *RedisMQ) Close() error {
	return q.client.Close()
}
