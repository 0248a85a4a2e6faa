package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Executor runs the AI sub-pipeline of one job that is already running.
type Executor interface {
	Execute(ctx context.Context, job *models.Job, desc *workflow.Descriptor) error
}

type Runner struct {
	jobs      repository.IJobRepository
	events    *recorder
	executors map[workflow.ExecutorKind]Executor
	logger    *zap.Logger
}

func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	job, err := r.jobs.GetByID(ctx, jobID.String())
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	if err := r.jobs.MarkRunning(ctx, job.ID); err != nil {
		return err
	}
	job.Status = models.JobStatusRunning

	logger := r.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("workflow", job.WorkflowKey),
		zap.String("variant_id", job.VariantID),
	)
	logger.Info("job started")

	err = r.execute(ctx, job)
	if err != nil {
		stage := StageWorkflow
		var serr *StageError
		if errors.As(err, &serr) {
			stage = serr.Stage
		}

		logger.Error("job failed", zap.String("stage", stage), zap.Error(err))
		// The job outcome is recorded even if the caller's context is gone.
		recordCtx := context.WithoutCancel(ctx)
		if merr := r.jobs.MarkFailed(recordCtx, job.ID, stage, err.Error()); merr != nil {
			logger.Error("failed to mark job failed", zap.Error(merr))
		}
		r.events.emit(recordCtx, job.ID, types.EventJobFailed, types.FailureEventData{Stage: stage, Message: err.Error()})
		return err
	}

	if err := r.jobs.MarkReady(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job ready: %w", err)
	}
	r.events.emit(ctx, job.ID, types.EventJobReady, nil)
	logger.Info("job ready")
	return nil
}

func (r *Runner) execute(ctx context.Context, job *models.Job) error {
	desc, err := workflow.Lookup(workflow.Key(job.WorkflowKey))
	if err != nil {
		return stageError(StageWorkflow, err)
	}

	executor, ok := r.executors[desc.Executor]
	if !ok {
		return stageError(StageWorkflow, fmt.Errorf("no executor for %s", desc.Executor))
	}

	if job.Input == nil {
		return stageError(StageWorkflow, errors.New("job has no input"))
	}

	return executor.Execute(ctx, job, desc)
}

// recorder appends job events. Failures are logged only.
type recorder struct {
	events repository.IEventRepository
	logger *zap.Logger
}

func (r *recorder) emit(ctx context.Context, jobID uuid.UUID, eventType types.EventType, data interface{}) {
	event, err := models.NewEvent(jobID, eventType, data)
	if err != nil {
		r.logger.Error("failed to encode job event", zap.String("type", string(eventType)), zap.Error(err))
		return
	}

	if _, err := r.events.Create(ctx, event); err != nil {
		r.logger.Error("failed to store job event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func (r *recorder) stage(ctx context.Context, jobID uuid.UUID, stage string) {
	r.emit(ctx, jobID, types.EventJobStage, types.StageEventData{Stage: stage})
}
