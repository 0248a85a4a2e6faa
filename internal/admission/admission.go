package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/credits"
	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/pipeline"
	"github.com/cozy-creator/product-studio/internal/style"
	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/pathutil"
	"github.com/cozy-creator/product-studio/internal/workflow"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Dispatcher hands a persisted job to a worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *models.Job) error
}

// Runner executes a job in the calling goroutine.
type Runner interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

type Admission struct {
	WorkflowKey workflow.Key     `json:"workflow_key"`
	BatchID     *uuid.UUID       `json:"batch_id,omitempty"`
	Jobs        []*models.Job    `json:"jobs"`
	Credits     credits.Decision `json:"credits"`
}

type Service struct {
	db         *bun.DB
	validate   *validator.Validate
	styles     *style.Resolver
	gate       *credits.Gate
	jobs       repository.IJobRepository
	batches    repository.IBatchRepository
	events     repository.IEventRepository
	dispatcher Dispatcher
	runner     Runner
	limits     config.AdmissionConfig
	origins    []string
	logger     *zap.Logger
}

type OptionFunc func(s *Service)

// WithAllowedOrigins restricts URL references to the given prefixes.
func WithAllowedOrigins(origins ...string) OptionFunc {
	return func(s *Service) {
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				s.origins = append(s.origins, strings.TrimSuffix(o, "/")+"/")
			}
		}
	}
}

func NewService(
	db *bun.DB,
	styles *style.Resolver,
	gate *credits.Gate,
	dispatcher Dispatcher,
	runner Runner,
	limits config.AdmissionConfig,
	logger *zap.Logger,
	opts ...OptionFunc,
) *Service {
	s := &Service{
		db:         db,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		styles:     styles,
		gate:       gate,
		jobs:       repository.NewJobRepository(db),
		batches:    repository.NewBatchRepository(db),
		events:     repository.NewEventRepository(db),
		dispatcher: dispatcher,
		runner:     runner,
		limits:     limits,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit admits a generation request. On success every job is persisted,
// its credits are deducted and it has been dispatched or run inline.
func (s *Service) Submit(ctx context.Context, req types.GenerationRequest) (*Admission, error) {
	normalize(&req)

	if err := s.check(req); err != nil {
		return nil, err
	}

	desc, err := workflow.Lookup(workflow.Resolve(req.Category, string(req.Purpose)))
	if err != nil {
		return nil, &pipeline.ValidationError{Issues: []string{err.Error()}}
	}

	inputs := make([]*types.JobInput, 0, len(req.Variants))
	for _, variant := range req.Variants {
		input := jobInput(req, variant, desc)
		if err := desc.Validate(input); err != nil {
			var schemaErr *workflow.SchemaError
			if errors.As(err, &schemaErr) {
				return nil, &pipeline.ValidationError{Issues: schemaErr.Issues}
			}
			return nil, err
		}
		inputs = append(inputs, input)
	}

	snapshot, err := s.styles.Snapshot(ctx, req.TenantID, req.MoodboardID)
	if err != nil {
		if errors.Is(err, style.ErrMoodboardNotFound) {
			return nil, &pipeline.ValidationError{Issues: []string{err.Error()}}
		}
		return nil, err
	}
	appendix := style.BuildAppendix(snapshot, req.MoodboardStrength)
	for _, input := range inputs {
		input.Moodboard = snapshot
		input.StyleAppendix = appendix
	}

	admission, reservation, err := s.persist(ctx, req, desc, inputs)
	if err != nil {
		return nil, err
	}

	s.gate.Report(ctx, reservation)
	s.logger.Info("generation admitted",
		zap.String("tenant_id", req.TenantID),
		zap.String("workflow", string(desc.Key)),
		zap.Int("jobs", len(admission.Jobs)),
		zap.Bool("overage", reservation.Decision.IsOverage),
	)

	s.start(ctx, desc, admission)
	return admission, nil
}

func (s *Service) persist(ctx context.Context, req types.GenerationRequest, desc *workflow.Descriptor, inputs []*types.JobInput) (*Admission, *credits.Reservation, error) {
	admission := &Admission{WorkflowKey: desc.Key}
	var reservation *credits.Reservation

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// The subscription lock serializes admissions of one tenant, so the
		// count below cannot be raced by a concurrent submission.
		if err := s.gate.Lock(ctx, tx, req.TenantID); err != nil {
			return err
		}

		jobs := s.jobs.WithTx(&tx)
		active, err := jobs.CountActiveByTenant(ctx, req.TenantID)
		if err != nil {
			return fmt.Errorf("failed to count active jobs: %w", err)
		}
		if active >= s.limits.MaxConcurrentJobs {
			return &pipeline.AdmissionDenied{Reason: pipeline.ReasonConcurrencyLimit, Active: active}
		}

		units := len(inputs) * req.Variations
		reservation, err = s.gate.Reserve(ctx, tx, req.TenantID, types.UnitImage, units)
		if err != nil {
			var denied *credits.DeniedError
			if errors.As(err, &denied) {
				return &pipeline.AdmissionDenied{Reason: string(denied.Decision.Reason), Remaining: denied.Decision.Remaining}
			}
			return err
		}
		admission.Credits = reservation.Decision

		var batch *models.Batch
		if len(inputs) > 1 {
			id := uuid.New()
			batch = &models.Batch{
				ID:           id,
				TenantID:     req.TenantID,
				ProductID:    req.ProductID,
				WorkflowKey:  string(desc.Key),
				OutputFolder: pathutil.ObjectKey("tenants", req.TenantID, "products", req.ProductID, "batches", id.String()),
				CreatedAt:    time.Now().UTC(),
			}
			if _, err := s.batches.WithTx(&tx).Create(ctx, batch); err != nil {
				return fmt.Errorf("failed to create batch: %w", err)
			}
			admission.BatchID = &batch.ID
		}

		events := s.events.WithTx(&tx)
		for _, input := range inputs {
			job := newJob(desc, input, reservation.Reference, batch)
			if len(job.Prompts) != job.Variations {
				return fmt.Errorf("job for %s has %d prompts for %d variations", input.VariantID, len(job.Prompts), job.Variations)
			}

			if _, err := jobs.Create(ctx, job); err != nil {
				return fmt.Errorf("failed to create job: %w", err)
			}

			event, err := models.NewEvent(job.ID, types.EventJobCreated, nil)
			if err != nil {
				return err
			}
			if _, err := events.Create(ctx, event); err != nil {
				return fmt.Errorf("failed to record job event: %w", err)
			}

			admission.Jobs = append(admission.Jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return admission, reservation, nil
}

// start runs inline workflows now and dispatches the rest. A job failure is
// recorded on the job and does not fail the admission.
func (s *Service) start(ctx context.Context, desc *workflow.Descriptor, admission *Admission) {
	for i, job := range admission.Jobs {
		logger := s.logger.With(zap.String("job_id", job.ID.String()))

		if desc.Executor == workflow.ExecutorInline {
			if err := s.runner.Run(ctx, job.ID); err != nil {
				logger.Warn("inline job did not complete", zap.Error(err))
			}

			if fresh, err := s.jobs.GetByID(context.WithoutCancel(ctx), job.ID.String()); err == nil {
				admission.Jobs[i] = fresh
			}
			continue
		}

		if err := s.dispatcher.Dispatch(ctx, job); err != nil {
			// The job stays queued; a worker restart or manual requeue picks it up.
			logger.Error("failed to dispatch job", zap.Error(err))
		}
	}
}

func newJob(desc *workflow.Descriptor, input *types.JobInput, ledgerRef uuid.UUID, batch *models.Batch) *models.Job {
	id := uuid.New()
	now := time.Now().UTC()

	job := &models.Job{
		ID:           id,
		TenantID:     input.TenantID,
		ProductID:    input.ProductID,
		VariantID:    input.VariantID,
		WorkflowKey:  string(desc.Key),
		Status:       models.JobStatusQueued,
		Input:        input,
		Variations:   input.Variations,
		Prompts:      desc.BuildPrompts(input, workflow.Resolved{}),
		LedgerRef:    &ledgerRef,
		OutputFolder: pathutil.ObjectKey("tenants", input.TenantID, "variants", input.VariantID, "jobs", id.String()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if batch != nil {
		job.BatchID = &batch.ID
		job.BatchFolder = batch.OutputFolder
	}
	return job
}

func jobInput(req types.GenerationRequest, variant types.VariantTarget, desc *workflow.Descriptor) *types.JobInput {
	return &types.JobInput{
		TenantID:              req.TenantID,
		ProductID:             req.ProductID,
		VariantID:             variant.VariantID,
		Category:              req.Category,
		Family:                desc.Family,
		Purpose:               desc.Purpose,
		ProductImages:         variant.ProductImages,
		ModelImage:            req.ModelImage,
		BackgroundImage:       req.BackgroundImage,
		ModelEnabled:          req.ModelEnabled,
		Instructions:          req.Instructions,
		VariationInstructions: req.VariationInstructions,
		Variations:            req.Variations,
		OutputFormat:          req.OutputFormat,
		AspectRatio:           req.AspectRatio,
		Strength:              req.MoodboardStrength,
	}
}

func normalize(req *types.GenerationRequest) {
	req.Purpose = types.ParsePurpose(string(req.Purpose))
	if req.OutputFormat == "" {
		req.OutputFormat = types.OutputFormatPNG
	}
	if req.MoodboardID != "" && req.MoodboardStrength == "" {
		req.MoodboardStrength = types.StrengthInspired
	}
	if req.ModelImage != nil && req.ModelImage.IsZero() {
		req.ModelImage = nil
	}
	if req.BackgroundImage != nil && req.BackgroundImage.IsZero() {
		req.BackgroundImage = nil
	}
}
