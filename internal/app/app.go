package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/product-studio/internal/admission"
	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/credits"
	"github.com/cozy-creator/product-studio/internal/db"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/dispatch"
	"github.com/cozy-creator/product-studio/internal/inference"
	"github.com/cozy-creator/product-studio/internal/metering"
	"github.com/cozy-creator/product-studio/internal/mq"
	"github.com/cozy-creator/product-studio/internal/pipeline"
	"github.com/cozy-creator/product-studio/internal/services/assets"
	"github.com/cozy-creator/product-studio/internal/services/filestorage"
	"github.com/cozy-creator/product-studio/internal/style"
	"github.com/cozy-creator/product-studio/pkg/logger"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	ErrNoDatabase  = errors.New("database is not configured")
	ErrNoStorage   = errors.New("file storage is not configured")
	ErrNoInference = errors.New("inference backend is not configured")
)

type App struct {
	mq         mq.MQ
	db         *bun.DB
	config     *config.Config
	ctx        context.Context
	cancelFunc context.CancelFunc

	storage  filestorage.FileStorage
	backend  inference.Backend
	fetcher  assets.Fetcher
	reporter metering.Reporter
	pool     *dispatch.PoolDispatcher
	closers  []func() error

	Logger *zap.Logger

	Runner    *pipeline.Runner
	Gate      *credits.Gate
	Admission *admission.Service

	JobRepository   repository.IJobRepository
	BatchRepository repository.IBatchRepository
	EventRepository repository.IEventRepository
}

// Option funcs used to initialize the App struct
type OptionFunc func(app *App) error

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(app *App) error {
		app.Logger = logger
		return nil
	}
}

// WithDB uses an already opened database.
func WithDB(db *bun.DB) OptionFunc {
	return func(app *App) error {
		app.db = db
		return nil
	}
}

// WithDBInitialization opens the configured database and makes sure every
// table exists.
func WithDBInitialization() OptionFunc {
	return func(app *App) error {
		driver, err := db.NewConnection(app.ctx, app.config)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, driver.Close)

		if err := db.CreateTables(app.ctx, driver.GetDB()); err != nil {
			return err
		}

		app.db = driver.GetDB()
		return nil
	}
}

func WithFileStorage() OptionFunc {
	return func(app *App) error {
		storage, err := filestorage.NewFileStorage(app.ctx, app.config)
		if err != nil {
			return err
		}
		app.storage = storage
		return nil
	}
}

func WithStorage(storage filestorage.FileStorage) OptionFunc {
	return func(app *App) error {
		app.storage = storage
		return nil
	}
}

// WithInference builds the Gemini backend. When an OpenAI key is configured
// structured text calls go to OpenAI and image calls stay on Gemini.
func WithInference() OptionFunc {
	return func(app *App) error {
		gemini, err := inference.NewGeminiBackend(app.ctx, app.config.Gemini, app.Logger.Named("gemini"))
		if err != nil {
			return err
		}

		if app.config.OpenAI == nil || app.config.OpenAI.APIKey == "" {
			app.backend = gemini
			return nil
		}

		openai, err := inference.NewOpenAIBackend(app.config.OpenAI)
		if err != nil {
			return err
		}
		app.backend = inference.SplitBackend{Text: openai, Image: gemini}
		return nil
	}
}

func WithBackend(backend inference.Backend) OptionFunc {
	return func(app *App) error {
		app.backend = backend
		return nil
	}
}

func WithFetcher(fetcher assets.Fetcher) OptionFunc {
	return func(app *App) error {
		app.fetcher = fetcher
		return nil
	}
}

func WithReporter(reporter metering.Reporter) OptionFunc {
	return func(app *App) error {
		app.reporter = reporter
		return nil
	}
}

// WithMQ opens the job queue used by the redis dispatch mode.
func WithMQ() OptionFunc {
	return func(app *App) error {
		queue, err := mq.NewMQ(app.config)
		if err != nil {
			return err
		}
		app.mq = queue
		return nil
	}
}

func WithQueue(queue mq.MQ) OptionFunc {
	return func(app *App) error {
		app.mq = queue
		return nil
	}
}

func NewApp(cfg *config.Config, options ...OptionFunc) (*App, error) {
	logger, err := logger.InitLogger(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		ctx:        ctx,
		config:     cfg,
		Logger:     logger,
		cancelFunc: cancel,
	}

	for _, opt := range options {
		if err := opt(app); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := app.wire(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) wire() error {
	switch {
	case app.db == nil:
		return ErrNoDatabase
	case app.storage == nil:
		return ErrNoStorage
	case app.backend == nil:
		return ErrNoInference
	}

	if app.fetcher == nil {
		fetcher, err := assets.NewHTTPFetcher(app.config.Assets, app.Logger.Named("assets"))
		if err != nil {
			return err
		}
		app.fetcher = fetcher
	}

	if app.reporter == nil {
		app.reporter = metering.NewReporter(app.config.Metering)
	}

	app.JobRepository = repository.NewJobRepository(app.db)
	app.BatchRepository = repository.NewBatchRepository(app.db)
	app.EventRepository = repository.NewEventRepository(app.db)

	limits := config.AdmissionConfig{MaxConcurrentJobs: 3, MaxBatchSize: 100, MaxVariations: 10, Workers: 8}
	if app.config.Admission != nil {
		limits = *app.config.Admission
	}

	eventName := ""
	if app.config.Metering != nil {
		eventName = app.config.Metering.EventName
	}

	app.Runner = pipeline.NewRunner(app.db, app.backend, app.fetcher, app.storage, app.Logger.Named("pipeline"))
	app.Gate = credits.NewGate(
		app.db,
		repository.NewLedgerRepository(app.db),
		repository.NewSubscriptionRepository(app.db),
		app.reporter,
		eventName,
		app.Logger.Named("credits"),
	)
	app.pool = dispatch.NewPoolDispatcher(app.ctx, app.Runner, limits.Workers, limits.MaxConcurrentJobs, app.Logger.Named("dispatch"))

	var dispatcher admission.Dispatcher = app.pool
	if app.config.Dispatch == config.DispatchRedis {
		if app.mq == nil {
			return fmt.Errorf("dispatch mode %s needs a queue", config.DispatchRedis)
		}
		dispatcher = dispatch.NewQueueDispatcher(app.mq, app.queueName())
	}

	var opts []admission.OptionFunc
	if app.config.Assets != nil {
		opts = append(opts, admission.WithAllowedOrigins(app.config.Assets.PublicOrigin))
	}

	app.Admission = admission.NewService(
		app.db,
		style.NewResolver(repository.NewMoodboardRepository(app.db), app.Logger.Named("style")),
		app.Gate,
		dispatcher,
		app.Runner,
		limits,
		app.Logger.Named("admission"),
		opts...,
	)

	return nil
}

// Recover dispatches jobs left queued by a previous process onto the local pool.
func (app *App) Recover() (int, error) {
	return dispatch.Recover(app.ctx, app.JobRepository, app.pool, 1000)
}

// Consumer moves jobs from the queue onto the local pool.
func (app *App) Consumer() (*dispatch.Consumer, error) {
	if app.mq == nil {
		return nil, fmt.Errorf("no job queue configured")
	}
	return dispatch.NewConsumer(app.mq, app.queueName(), app.pool, app.Logger.Named("consumer")), nil
}

func (app *App) queueName() string {
	if app.config.Redis != nil && app.config.Redis.Queue != "" {
		return app.config.Redis.Queue
	}
	return "studio:jobs"
}

func (app *App) Close() {
	if app.pool != nil {
		app.pool.Stop()
	}

	app.cancelFunc()

	if app.mq != nil {
		if err := app.mq.Close(); err != nil && app.Logger != nil {
			app.Logger.Warn("failed to close queue", zap.Error(err))
		}
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil && app.Logger != nil {
			app.Logger.Warn("failed to close resource", zap.Error(err))
		}
	}

	if app.Logger != nil {
		_ = app.Logger.Sync()
	}
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) Context() context.Context {
	return app.ctx
}

func (app *App) MQ() mq.MQ {
	return app.mq
}

func (app *App) DB() *bun.DB {
	return app.db
}

func (app *App) Storage() filestorage.FileStorage {
	return app.storage
}
