package repository

import (
	"context"

	"github.com/cozy-creator/product-studio/internal/db/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type IOutputRepository interface {
	Repository[models.Output]
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Output, error)
}

type OutputRepository struct {
	crud[models.Output]
}

func NewOutputRepository(db *bun.DB) IOutputRepository {
	return &OutputRepository{crud[models.Output]{db: db}}
}

func (r *OutputRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Output, error) {
	var outputs []*models.Output
	err := r.db.NewSelect().
		Model(&outputs).
		Where("job_id = ?", jobID).
		Order("ordinal ASC").
		Scan(ctx)
	return outputs, err
}
