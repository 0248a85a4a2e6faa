package repository

import (
	"context"

	"github.com/cozy-creator/product-studio/internal/db/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type IBatchRepository interface {
	Repository[models.Batch]
	WithTx(tx *bun.Tx) IBatchRepository
	WithDB(db *bun.DB) IBatchRepository
	GetWithJobs(ctx context.Context, id uuid.UUID) (*models.Batch, error)
}

type BatchRepository struct {
	crud[models.Batch]
}

func NewBatchRepository(db *bun.DB) IBatchRepository {
	return &BatchRepository{crud[models.Batch]{db: db}}
}

func (r *BatchRepository) GetWithJobs(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	batch := new(models.Batch)
	err := r.db.NewSelect().
		Model(batch).
		Relation("Jobs", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("variant_id ASC")
		}).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}

	return batch, nil
}

func (r *BatchRepository) WithTx(tx *bun.Tx) IBatchRepository {
	return &BatchRepository{crud[models.Batch]{db: tx}}
}

func (r *BatchRepository) WithDB(db *bun.DB) IBatchRepository {
	return &BatchRepository{crud[models.Batch]{db: db}}
}
