package app

import (
	"testing"

	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dispatch string) *config.Config {
	return &config.Config{
		Environment: "test",
		Filesystem:  config.FilesystemLocal,
		Dispatch:    dispatch,
		DB:          &config.DBConfig{Driver: "sqlite", DSN: "file::memory:"},
		Redis:       &config.RedisConfig{Queue: "test:jobs"},
		Admission:   &config.AdmissionConfig{MaxConcurrentJobs: 3, MaxBatchSize: 100, MaxVariations: 10, Workers: 2},
		Assets:      &config.AssetsConfig{PublicOrigin: "https://studio.example.com"},
	}
}

func TestNewApp_WiresServices(t *testing.T) {
	app, err := NewApp(
		testConfig(config.DispatchPool),
		WithDB(testutil.NewDB(t)),
		WithStorage(testutil.NewMemoryStorage()),
		WithBackend(&testutil.FakeBackend{}),
		WithFetcher(testutil.NewStaticFetcher()),
	)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Runner)
	assert.NotNil(t, app.Gate)
	assert.NotNil(t, app.Admission)
	assert.NotNil(t, app.JobRepository)

	n, err := app.Recover()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = app.Consumer()
	assert.Error(t, err)
}

func TestNewApp_MissingDependencies(t *testing.T) {
	_, err := NewApp(testConfig(config.DispatchPool),
		WithStorage(testutil.NewMemoryStorage()),
		WithBackend(&testutil.FakeBackend{}),
	)
	assert.ErrorIs(t, err, ErrNoDatabase)

	_, err = NewApp(testConfig(config.DispatchPool),
		WithDB(testutil.NewDB(t)),
		WithBackend(&testutil.FakeBackend{}),
	)
	assert.ErrorIs(t, err, ErrNoStorage)

	_, err = NewApp(testConfig(config.DispatchPool),
		WithDB(testutil.NewDB(t)),
		WithStorage(testutil.NewMemoryStorage()),
	)
	assert.ErrorIs(t, err, ErrNoInference)
}

func TestNewApp_QueueDispatchNeedsMQ(t *testing.T) {
	_, err := NewApp(
		testConfig(config.DispatchRedis),
		WithDB(testutil.NewDB(t)),
		WithStorage(testutil.NewMemoryStorage()),
		WithBackend(&testutil.FakeBackend{}),
		WithFetcher(testutil.NewStaticFetcher()),
	)
	assert.Error(t, err)
}
