package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cozy-creator/product-studio/internal/api"
	"github.com/cozy-creator/product-studio/internal/app"
	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/mq"
	"github.com/cozy-creator/product-studio/internal/testutil"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	handler http.Handler
	app     *app.App
	storage *testutil.MemoryStorage
}

func newTestServer(t *testing.T, dispatch string, included int, overage bool) *testServer {
	t.Helper()

	cfg := &config.Config{
		Host:        "localhost",
		Port:        8881,
		Environment: "test",
		Filesystem:  config.FilesystemLocal,
		Dispatch:    dispatch,
		DB:          &config.DBConfig{Driver: "sqlite"},
		Redis:       &config.RedisConfig{Queue: "test:jobs"},
		Admission:   &config.AdmissionConfig{MaxConcurrentJobs: 3, MaxBatchSize: 100, MaxVariations: 10, Workers: 2},
		Assets:      &config.AssetsConfig{PublicOrigin: "https://studio.example.com"},
	}

	db := testutil.NewDB(t)
	ceiling := int64(10_000)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repository.NewSubscriptionRepository(db).Save(context.Background(), &models.Subscription{
		TenantID:             "tenant-a",
		CustomerRef:          "cus_a",
		Plan:                 "growth",
		Status:               models.SubscriptionActive,
		IncludedImageCredits: included,
		OverageEnabled:       overage,
		OverageUnitCents:     25,
		OverageCeilingCents:  &ceiling,
		PeriodStart:          start,
		PeriodEnd:            start.AddDate(0, 1, 0),
	}))

	queue, err := mq.NewInMemoryMQ(16)
	require.NoError(t, err)

	storage := testutil.NewMemoryStorage()
	a, err := app.NewApp(cfg,
		app.WithDB(db),
		app.WithStorage(storage),
		app.WithBackend(&testutil.FakeBackend{}),
		app.WithFetcher(testutil.NewStaticFetcher("up-0-a", "up-0-b", "up-1-a", "up-1-b")),
		app.WithQueue(queue),
	)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	s, err := NewServer(cfg)
	require.NoError(t, err)
	s.SetupRoutes(a)

	return &testServer{handler: s.Handler(), app: a, storage: storage}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func generation(category string, variants, variations int) types.GenerationRequest {
	req := types.GenerationRequest{
		TenantID:   "tenant-a",
		ProductID:  "prod-1",
		Category:   category,
		Purpose:    types.PurposeCatalog,
		Variations: variations,
	}
	for i := 0; i < variants; i++ {
		req.Variants = append(req.Variants, types.VariantTarget{
			VariantID:     fmt.Sprintf("variant-%d", i+1),
			ProductImages: []types.AssetRef{{UploadID: fmt.Sprintf("up-%d-a", i)}, {UploadID: fmt.Sprintf("up-%d-b", i)}},
		})
	}
	return req
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, config.DispatchPool, 10, false)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInlineGenerationLifecycle(t *testing.T) {
	s := newTestServer(t, config.DispatchPool, 10, false)

	rec := s.do(t, http.MethodPost, "/api/v1/generations", generation("home", 1, 2))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[api.GenerationResponse](t, rec)
	assert.Equal(t, "non_apparel.catalog.v1", resp.WorkflowKey)
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "ready", resp.Jobs[0].Status)
	require.NotNil(t, resp.Jobs[0].LedgerRef)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/"+resp.Jobs[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	job := decode[api.JobResponse](t, rec)
	assert.Equal(t, "ready", job.Status)
	assert.Len(t, job.Prompts, 2)
	require.Len(t, job.Images, 2)
	assert.Equal(t, "image/png", job.Images[0].MimeType)

	var kinds []string
	for _, e := range job.Events {
		kinds = append(kinds, e.Type)
	}
	assert.Contains(t, kinds, string(types.EventJobCreated))
	assert.Contains(t, kinds, string(types.EventJobOutput))
	assert.Contains(t, kinds, string(types.EventJobReady))

	path := strings.TrimPrefix(job.Images[0].Url, "mem://")
	rec = s.do(t, http.MethodGet, "/files/"+path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodGet, "/api/v1/credits/tenant-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, balance["used"])
	assert.EqualValues(t, 8, balance["remaining"])

	refund := api.RefundRequest{Reference: resp.Jobs[0].LedgerRef.String(), Note: "bad outputs"}
	rec = s.do(t, http.MethodPost, "/api/v1/credits/refund", refund)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[api.RefundResponse](t, rec).Refunded)

	rec = s.do(t, http.MethodPost, "/api/v1/credits/refund", refund)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/credits/tenant-a", nil)
	assert.EqualValues(t, 10, decode[map[string]any](t, rec)["remaining"])
}

func TestQueuedBatch(t *testing.T) {
	s := newTestServer(t, config.DispatchRedis, 10, false)

	rec := s.do(t, http.MethodPost, "/api/v1/generations", generation("apparel", 2, 1))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	resp := decode[api.GenerationResponse](t, rec)
	require.NotNil(t, resp.BatchID)
	require.Len(t, resp.Jobs, 2)

	rec = s.do(t, http.MethodGet, "/api/v1/batches/"+resp.BatchID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	batch := decode[api.BatchResponse](t, rec)
	assert.Equal(t, "queued", batch.Status)
	assert.Equal(t, "apparel.catalog.v1", batch.WorkflowKey)
	assert.Len(t, batch.Jobs, 2)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, config.DispatchRedis, 5, false)

	invalid := generation("apparel", 1, 11)
	rec := s.do(t, http.MethodPost, "/api/v1/generations", invalid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[api.ErrorResponse](t, rec).Issues)

	rec = s.do(t, http.MethodPost, "/api/v1/generations", generation("apparel", 2, 3))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	denied := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "overage_disabled", denied.Reason)
	require.NotNil(t, denied.Remaining)
	assert.Equal(t, 5, *denied.Remaining)

	for i := 0; i < 3; i++ {
		req := generation("apparel", 1, 1)
		req.ProductID = fmt.Sprintf("prod-%d", i)
		rec = s.do(t, http.MethodPost, "/api/v1/generations", req)
		require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodPost, "/api/v1/generations", generation("apparel", 1, 1))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/credits/tenant-z", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/credits/refund", api.RefundRequest{Reference: uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/files/missing.png", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
