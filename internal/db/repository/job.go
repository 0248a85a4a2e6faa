package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cozy-creator/product-studio/internal/db/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrJobNotQueued is returned when a job is claimed that has already left
// the queued state.
var ErrJobNotQueued = errors.New("job is not queued")

type IJobRepository interface {
	Repository[models.Job]
	WithTx(tx *bun.Tx) IJobRepository
	WithDB(db *bun.DB) IJobRepository
	CountActiveByTenant(ctx context.Context, tenantID string) (int, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Job, error)
	ListByStatus(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error)
	GetWithOutputs(ctx context.Context, id uuid.UUID) (*models.Job, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkReady(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, stage, message string) error
	UpdatePrompts(ctx context.Context, id uuid.UUID, prompts []string) error
}

type JobRepository struct {
	crud[models.Job]
}

func NewJobRepository(db *bun.DB) IJobRepository {
	return &JobRepository{crud[models.Job]{db: db}}
}

func (r *JobRepository) CountActiveByTenant(ctx context.Context, tenantID string) (int, error) {
	return r.db.NewSelect().
		Model((*models.Job)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("status IN (?)", bun.In(models.ActiveJobStatuses)).
		Count(ctx)
}

func (r *JobRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*models.Job, error) {
	var jobs []*models.Job
	err := r.db.NewSelect().
		Model(&jobs).
		Where("batch_id = ?", batchID).
		Order("created_at ASC", "variant_id ASC").
		Scan(ctx)
	return jobs, err
}

// ListByStatus returns the oldest jobs in the given status first.
func (r *JobRepository) ListByStatus(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error) {
	var jobs []*models.Job
	err := r.db.NewSelect().
		Model(&jobs).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	return jobs, err
}

func (r *JobRepository) GetWithOutputs(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job := new(models.Job)
	err := r.db.NewSelect().
		Model(job).
		Relation("Outputs", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ordinal ASC")
		}).
		Where("j.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}

	return job, nil
}

// MarkRunning moves a job from queued to running. It fails with
// ErrJobNotQueued if another worker already claimed the job.
func (r *JobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	res, err := r.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusRunning).
		Set("started_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", models.JobStatusQueued).
		Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrJobNotQueued
	}

	return nil
}

func (r *JobRepository) MarkReady(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusReady).
		Set("completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, stage, message string) error {
	now := time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model((*models.Job)(nil)).
		Set("status = ?", models.JobStatusFailed).
		Set("failed_stage = ?", stage).
		Set("error = ?", message).
		Set("completed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *JobRepository) UpdatePrompts(ctx context.Context, id uuid.UUID, prompts []string) error {
	job := &models.Job{ID: id, Prompts: prompts, UpdatedAt: time.Now().UTC()}
	_, err := r.db.NewUpdate().
		Model(job).
		Column("prompts", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (r *JobRepository) WithTx(tx *bun.Tx) IJobRepository {
	return &JobRepository{crud[models.Job]{db: tx}}
}

func (r *JobRepository) WithDB(db *bun.DB) IJobRepository {
	return &JobRepository{crud[models.Job]{db: db}}
}
