package repository

import (
	"context"

	"github.com/cozy-creator/product-studio/internal/db/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type IEventRepository interface {
	Repository[models.Event]
	WithTx(tx *bun.Tx) IEventRepository
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Event, error)
}

type EventRepository struct {
	crud[models.Event]
}

func NewEventRepository(db *bun.DB) IEventRepository {
	return &EventRepository{crud[models.Event]{db: db}}
}

func (r *EventRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Event, error) {
	var events []*models.Event
	err := r.db.NewSelect().
		Model(&events).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Scan(ctx)
	return events, err
}

func (r *EventRepository) WithTx(tx *bun.Tx) IEventRepository {
	return &EventRepository{crud[models.Event]{db: tx}}
}
