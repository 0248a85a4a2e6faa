package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("dispatcher stopped")

type Dispatcher interface {
	Dispatch(ctx context.Context, job *models.Job) error
}

type Runner interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

// PoolDispatcher runs jobs on a shared worker pool. At most perTenant jobs
// of one tenant are handed to the pool at a time; the rest wait in a
// per-tenant queue so a large batch never occupies workers other tenants
// could use.
type PoolDispatcher struct {
	ctx       context.Context
	pool      *workerpool.WorkerPool
	runner    Runner
	perTenant int
	logger    *zap.Logger

	mu       sync.Mutex
	tenants  map[string]*tenantQueue
	draining bool
	stopped  bool
	inflight sync.WaitGroup
}

type tenantQueue struct {
	running int
	pending []uuid.UUID
}

func NewPoolDispatcher(ctx context.Context, runner Runner, workers, perTenant int, logger *zap.Logger) *PoolDispatcher {
	return &PoolDispatcher{
		ctx:       ctx,
		pool:      workerpool.New(max(1, workers)),
		runner:    runner,
		perTenant: max(1, perTenant),
		logger:    logger,
		tenants:   map[string]*tenantQueue{},
	}
}

// Dispatch queues the job and returns immediately.
func (d *PoolDispatcher) Dispatch(_ context.Context, job *models.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || d.draining {
		return ErrStopped
	}

	d.inflight.Add(1)
	q := d.queue(job.TenantID)
	if q.running >= d.perTenant {
		q.pending = append(q.pending, job.ID)
		return nil
	}

	q.running++
	d.submit(job.TenantID, job.ID)
	return nil
}

// submit must be called with mu held.
func (d *PoolDispatcher) submit(tenantID string, jobID uuid.UUID) {
	d.pool.Submit(func() {
		d.run(tenantID, jobID)
	})
}

func (d *PoolDispatcher) run(tenantID string, jobID uuid.UUID) {
	defer d.release(tenantID)

	if d.ctx.Err() != nil {
		return
	}

	err := d.runner.Run(d.ctx, jobID)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrJobNotQueued):
		d.logger.Debug("job already claimed", zap.String("job_id", jobID.String()))
	default:
		d.logger.Warn("job run ended with error", zap.String("job_id", jobID.String()), zap.Error(err))
	}
}

// release frees the tenant's slot and hands it to the tenant's next pending
// job.
func (d *PoolDispatcher) release(tenantID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.inflight.Done()

	q := d.queue(tenantID)
	if len(q.pending) == 0 || d.stopped {
		q.running--
		if q.running == 0 && len(q.pending) == 0 {
			delete(d.tenants, tenantID)
		}
		return
	}

	next := q.pending[0]
	q.pending = q.pending[1:]
	d.submit(tenantID, next)
}

// queue must be called with mu held.
func (d *PoolDispatcher) queue(tenantID string) *tenantQueue {
	q, ok := d.tenants[tenantID]
	if !ok {
		q = &tenantQueue{}
		d.tenants[tenantID] = q
	}
	return q
}

// WaitingQueueSize counts jobs accepted but not yet running: those held back
// by the tenant cap and those waiting for a free worker.
func (d *PoolDispatcher) WaitingQueueSize() int {
	d.mu.Lock()
	pending := 0
	for _, q := range d.tenants {
		pending += len(q.pending)
	}
	d.mu.Unlock()

	return pending + d.pool.WaitingQueueSize()
}

// Stop waits for running jobs and drops the ones still waiting. Dropped
// jobs stay queued in the database and are picked up by Recover.
func (d *PoolDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, q := range d.tenants {
		for range q.pending {
			d.inflight.Done()
		}
		q.pending = nil
	}
	d.mu.Unlock()

	d.pool.Stop()
}

// StopWait refuses new jobs and waits for every accepted job, including
// those held back by the tenant cap, to finish.
func (d *PoolDispatcher) StopWait() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.draining = true
	d.mu.Unlock()

	d.inflight.Wait()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.pool.StopWait()
}

// Recover dispatches jobs that were left queued, oldest first.
func Recover(ctx context.Context, jobs repository.IJobRepository, d Dispatcher, limit int) (int, error) {
	queued, err := jobs.ListByStatus(ctx, models.JobStatusQueued, limit)
	if err != nil {
		return 0, err
	}

	for i, job := range queued {
		if err := d.Dispatch(ctx, job); err != nil {
			return i, err
		}
	}
	return len(queued), nil
}
