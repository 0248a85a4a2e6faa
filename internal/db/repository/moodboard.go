package repository

import (
	"context"

	"github.com/cozy-creator/product-studio/internal/db/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type IMoodboardRepository interface {
	Repository[models.Moodboard]
	GetWithAssets(ctx context.Context, id uuid.UUID) (*models.Moodboard, error)
	AddAssets(ctx context.Context, assets ...*models.MoodboardAsset) error
}

type MoodboardRepository struct {
	crud[models.Moodboard]
}

func NewMoodboardRepository(db *bun.DB) IMoodboardRepository {
	return &MoodboardRepository{crud[models.Moodboard]{db: db}}
}

func (r *MoodboardRepository) GetWithAssets(ctx context.Context, id uuid.UUID) (*models.Moodboard, error) {
	board := new(models.Moodboard)
	err := r.db.NewSelect().
		Model(board).
		Relation("Assets", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("kind ASC", "position ASC")
		}).
		Where("m.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}

	return board, nil
}

func (r *MoodboardRepository) AddAssets(ctx context.Context, assets ...*models.MoodboardAsset) error {
	if len(assets) == 0 {
		return nil
	}

	_, err := r.db.NewInsert().Model(&assets).Exec(ctx)
	return err
}
