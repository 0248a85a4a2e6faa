package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/garment"
	"github.com/cozy-creator/product-studio/internal/resolver"
	"github.com/cozy-creator/product-studio/internal/services/assets"
	"github.com/cozy-creator/product-studio/internal/style"
	"github.com/cozy-creator/product-studio/internal/synthesis"
	"github.com/cozy-creator/product-studio/internal/types"
	"github.com/cozy-creator/product-studio/internal/utils/hashutil"
	"github.com/cozy-creator/product-studio/internal/utils/pathutil"
	"github.com/cozy-creator/product-studio/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stages holds what every executor shares.
type stages struct {
	fetcher    assets.Fetcher
	background *resolver.BackgroundResolver
	model      *resolver.ModelResolver
	loop       *synthesis.Loop
	jobs       repository.IJobRepository
	outputs    repository.IOutputRepository
	events     *recorder
	logger     *zap.Logger
}

// references are the fetched images of one job.
type references struct {
	products   []types.Image
	model      *types.Image
	background *types.Image
	style      []types.Image
	negative   []types.Image
	enrichment *style.Enrichment
}

func (s *stages) fetch(ctx context.Context, job *models.Job) (*references, error) {
	s.events.stage(ctx, job.ID, StageFetch)
	in := job.Input

	refs := &references{enrichment: style.Enrich(in.Moodboard, in.Strength)}

	var err error
	if refs.products, err = s.fetchAll(ctx, in.ProductImages); err != nil {
		return nil, err
	}
	if refs.model, err = s.fetchOptional(ctx, in.ModelImage); err != nil {
		return nil, err
	}
	if refs.background, err = s.fetchOptional(ctx, in.BackgroundImage); err != nil {
		return nil, err
	}
	if refs.style, err = s.fetchAll(ctx, refs.enrichment.StyleReferences); err != nil {
		return nil, err
	}
	if refs.negative, err = s.fetchAll(ctx, refs.enrichment.NegativeReferences); err != nil {
		return nil, err
	}

	return refs, nil
}

func (s *stages) fetchAll(ctx context.Context, refs []types.AssetRef) ([]types.Image, error) {
	images := make([]types.Image, 0, len(refs))
	for _, ref := range refs {
		img, err := s.fetcher.Fetch(ctx, ref)
		if err != nil {
			return nil, stageError(StageFetch, fmt.Errorf("%s: %w", ref, err))
		}
		images = append(images, img)
	}
	return images, nil
}

func (s *stages) fetchOptional(ctx context.Context, ref *types.AssetRef) (*types.Image, error) {
	if ref == nil || ref.IsZero() {
		return nil, nil
	}

	img, err := s.fetcher.Fetch(ctx, *ref)
	if err != nil {
		return nil, stageError(StageFetch, fmt.Errorf("%s: %w", ref, err))
	}
	return &img, nil
}

// resolve runs the background and model cascades and rebuilds the job's
// prompts from the answers.
func (s *stages) resolve(ctx context.Context, job *models.Job, desc *workflow.Descriptor, refs *references, facts []string) ([]string, error) {
	s.events.stage(ctx, job.ID, StageResolve)
	in := job.Input

	bg, err := s.background.Resolve(ctx, resolver.BackgroundInput{
		Uploaded:         refs.background,
		Instructions:     in.Instructions,
		MoodboardSummary: refs.enrichment.BackgroundSummary,
	})
	if err != nil {
		return nil, stageError(StageResolve, err)
	}

	model, err := s.model.Resolve(ctx, resolver.ModelInput{
		Enabled:          in.ModelEnabled || refs.model != nil,
		HasReference:     refs.model != nil,
		Instructions:     in.Instructions,
		MoodboardSummary: refs.enrichment.ModelSummary,
	})
	if err != nil {
		return nil, stageError(StageResolve, err)
	}

	s.logger.Debug("resolved job context",
		zap.String("job_id", job.ID.String()),
		zap.String("background_source", string(bg.Source)),
		zap.String("model_source", string(model.Source)),
	)

	s.events.stage(ctx, job.ID, StagePrompt)
	prompts := desc.BuildPrompts(in, workflow.Resolved{
		Background:    bg.Text,
		ModelGuidance: model.Text,
		Attributes:    facts,
	})
	if len(prompts) != job.Variations {
		return nil, stageError(StagePrompt, fmt.Errorf("built %d prompts for %d variations", len(prompts), job.Variations))
	}

	if err := s.jobs.UpdatePrompts(ctx, job.ID, prompts); err != nil {
		return nil, stageError(StagePrompt, err)
	}
	job.Prompts = prompts
	return prompts, nil
}

func (s *stages) synthesize(ctx context.Context, job *models.Job, prompts []string, products []types.Image, refs *references, anchor bool) error {
	s.events.stage(ctx, job.ID, StageSynthesize)
	in := job.Input

	_, err := s.loop.Run(ctx, synthesis.Plan{
		TenantID:           job.TenantID,
		VariantID:          job.VariantID,
		JobID:              job.ID.String(),
		Prompts:            prompts,
		Count:              job.Variations,
		AspectRatio:        in.AspectRatio,
		Format:             in.OutputFormat,
		UseAnchor:          anchor,
		ModelReference:     refs.model,
		ProductImages:      products,
		StyleReferences:    refs.style,
		NegativeReferences: refs.negative,
		OnOutput: func(ctx context.Context, out synthesis.Output) error {
			return s.record(ctx, job, out)
		},
	})
	if err != nil {
		var verr *synthesis.VariationError
		if errors.As(err, &verr) {
			return &StageError{Stage: verr.Stage, Err: verr}
		}
		return stageError(StageSynthesize, err)
	}
	return nil
}

func (s *stages) record(ctx context.Context, job *models.Job, out synthesis.Output) error {
	_, err := s.outputs.Create(ctx, &models.Output{
		ID:         uuid.New(),
		JobID:      job.ID,
		Ordinal:    out.Index,
		URL:        out.URL,
		Path:       out.Path,
		MimeType:   out.MIMEType,
		Prompt:     out.Prompt,
		PromptHash: hashutil.Fingerprint([]byte(out.Prompt)),
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record output %d: %w", out.Index, err)
	}

	s.events.emit(ctx, job.ID, types.EventJobOutput, types.OutputEventData{Index: out.Index, URL: out.URL})
	return nil
}

// InlineExecutor serves every single-pass workflow. Non-apparel jobs carry
// the first output forward as an anchor image.
type InlineExecutor struct {
	*stages
}

func (e *InlineExecutor) Execute(ctx context.Context, job *models.Job, desc *workflow.Descriptor) error {
	refs, err := e.fetch(ctx, job)
	if err != nil {
		return err
	}

	prompts, err := e.resolve(ctx, job, desc, refs, nil)
	if err != nil {
		return err
	}

	return e.synthesize(ctx, job, prompts, refs.products, refs, desc.Family == types.FamilyNonApparel)
}

// ApparelExecutor adds the garment sub-pipeline: classify, mask, analyze.
// Variations are independent.
type ApparelExecutor struct {
	*stages
	classifier *garment.Classifier
	masker     *garment.Masker
	analyzer   *garment.Analyzer
}

func (e *ApparelExecutor) Execute(ctx context.Context, job *models.Job, desc *workflow.Descriptor) error {
	refs, err := e.fetch(ctx, job)
	if err != nil {
		return err
	}

	e.events.stage(ctx, job.ID, StageClassify)
	views, err := e.classifier.Classify(ctx, refs.products)
	if err != nil {
		return stageError(StageClassify, err)
	}

	e.events.stage(ctx, job.ID, StageMask)
	prefix := pathutil.ObjectKey("tenants", job.TenantID, "variants", job.VariantID, "jobs", job.ID.String())
	cutouts, err := e.masker.Mask(ctx, prefix, refs.products, views)
	if err != nil {
		return stageError(StageMask, err)
	}

	var facts []string
	if front, ok := garment.BestFront(refs.products, views, cutouts); ok {
		e.events.stage(ctx, job.ID, StageAnalyze)
		facts = e.analyzer.Analyze(ctx, front).Facts()
	}

	prompts, err := e.resolve(ctx, job, desc, refs, facts)
	if err != nil {
		return err
	}

	return e.synthesize(ctx, job, prompts, garment.References(refs.products, views, cutouts), refs, false)
}
