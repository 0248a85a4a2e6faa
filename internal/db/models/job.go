package models

import (
	"time"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusReady   JobStatus = "ready"
	JobStatusFailed  JobStatus = "failed"
)

// ActiveJobStatuses are the statuses counted against the per-tenant cap.
var ActiveJobStatuses = []JobStatus{JobStatusQueued, JobStatusRunning}

func (s JobStatus) Terminal() bool {
	return s == JobStatusReady || s == JobStatusFailed
}

type Job struct {
	bun.BaseModel `bun:"table:generation_jobs,alias:j"`

	ID           uuid.UUID       `bun:",pk,type:uuid"`
	TenantID     string          `bun:",notnull"`
	ProductID    string          `bun:",notnull"`
	VariantID    string          `bun:",notnull"`
	BatchID      *uuid.UUID      `bun:",type:uuid"`
	WorkflowKey  string          `bun:",notnull"`
	Status       JobStatus       `bun:",notnull"`
	Input        *types.JobInput `bun:",type:jsonb,notnull"`
	Variations   int             `bun:",notnull"`
	Prompts      []string        `bun:",type:jsonb,notnull"`
	LedgerRef    *uuid.UUID      `bun:",type:uuid"`
	OutputFolder string          `bun:",nullzero"`
	BatchFolder  string          `bun:",nullzero"`
	FailedStage  string          `bun:",nullzero"`
	Error        string          `bun:",nullzero"`
	StartedAt    bun.NullTime    `bun:",nullzero"`
	CompletedAt  bun.NullTime    `bun:",nullzero"`
	CreatedAt    time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time       `bun:",nullzero,notnull,default:current_timestamp"`

	Outputs []*Output `bun:"rel:has-many,join:id=job_id"`
}
