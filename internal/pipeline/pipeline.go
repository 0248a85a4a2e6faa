package pipeline

import (
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/garment"
	"github.com/cozy-creator/product-studio/internal/inference"
	"github.com/cozy-creator/product-studio/internal/resolver"
	"github.com/cozy-creator/product-studio/internal/services/assets"
	"github.com/cozy-creator/product-studio/internal/services/filestorage"
	"github.com/cozy-creator/product-studio/internal/synthesis"
	"github.com/cozy-creator/product-studio/internal/workflow"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// NewRunner wires both executors over one inference backend.
func NewRunner(
	db *bun.DB,
	backend inference.Backend,
	fetcher assets.Fetcher,
	storage filestorage.FileStorage,
	logger *zap.Logger,
) *Runner {
	caller := inference.NewStructuredCaller(backend)
	synth := inference.NewSynthesisCaller(backend)
	jobs := repository.NewJobRepository(db)
	events := &recorder{events: repository.NewEventRepository(db), logger: logger}

	shared := &stages{
		fetcher:    fetcher,
		background: resolver.NewBackgroundResolver(caller, logger.Named("background")),
		model:      resolver.NewModelResolver(caller, logger.Named("model")),
		loop:       synthesis.NewLoop(synth, storage, logger.Named("synthesis")),
		jobs:       jobs,
		outputs:    repository.NewOutputRepository(db),
		events:     events,
		logger:     logger,
	}

	return &Runner{
		jobs:   jobs,
		events: events,
		executors: map[workflow.ExecutorKind]Executor{
			workflow.ExecutorInline: &InlineExecutor{stages: shared},
			workflow.ExecutorMultiStep: &ApparelExecutor{
				stages:     shared,
				classifier: garment.NewClassifier(caller),
				masker:     garment.NewMasker(synth, storage, logger.Named("masker")),
				analyzer:   garment.NewAnalyzer(caller, logger.Named("analyzer")),
			},
		},
		logger: logger,
	}
}
