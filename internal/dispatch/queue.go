package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/mq"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

type message struct {
	JobID    string `msgpack:"job_id"`
	TenantID string `msgpack:"tenant_id"`
}

// QueueDispatcher publishes jobs for a separate worker process.
type QueueDispatcher struct {
	queue mq.MQ
	topic string
}

func NewQueueDispatcher(queue mq.MQ, topic string) *QueueDispatcher {
	return &QueueDispatcher{queue: queue, topic: topic}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job *models.Job) error {
	data, err := msgpack.Marshal(message{JobID: job.ID.String(), TenantID: job.TenantID})
	if err != nil {
		return fmt.Errorf("failed to encode job message: %w", err)
	}

	if err := d.queue.Publish(ctx, d.topic, data); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}
	return nil
}

// Consumer moves jobs from the queue onto a local dispatcher.
type Consumer struct {
	queue  mq.MQ
	topic  string
	target Dispatcher
	logger *zap.Logger
}

func NewConsumer(queue mq.MQ, topic string, target Dispatcher, logger *zap.Logger) *Consumer {
	return &Consumer{queue: queue, topic: topic, target: target, logger: logger}
}

// Run blocks until ctx is done or the queue is closed.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consuming jobs", zap.String("topic", c.topic))

	for {
		data, err := c.queue.Receive(ctx, c.topic)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, mq.ErrQueueClosed) {
				return nil
			}

			c.logger.Error("failed to receive job", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		job, err := decode(data)
		if err != nil {
			c.logger.Error("dropping malformed job message", zap.Error(err))
			continue
		}

		if err := c.target.Dispatch(ctx, job); err != nil {
			c.logger.Error("failed to dispatch job", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
}

func decode(data []byte) (*models.Job, error) {
	var msg message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(msg.JobID)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", msg.JobID, err)
	}
	return &models.Job{ID: id, TenantID: msg.TenantID}, nil
}
