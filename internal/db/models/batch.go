package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BatchStatus string

const (
	BatchStatusQueued  BatchStatus = "queued"
	BatchStatusRunning BatchStatus = "running"
	BatchStatusReady   BatchStatus = "ready"
	BatchStatusFailed  BatchStatus = "failed"
	BatchStatusPartial BatchStatus = "partial"
)

// Batch groups the jobs created from one multi-variant submission. Its status
// is never stored; see DeriveBatchStatus.
type Batch struct {
	bun.BaseModel `bun:"table:generation_batches,alias:b"`

	ID           uuid.UUID `bun:",pk,type:uuid"`
	TenantID     string    `bun:",notnull"`
	ProductID    string    `bun:",notnull"`
	WorkflowKey  string    `bun:",notnull"`
	OutputFolder string    `bun:",notnull"`
	CreatedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`

	Jobs []*Job `bun:"rel:has-many,join:id=batch_id"`
}

func DeriveBatchStatus(jobs []*Job) BatchStatus {
	if len(jobs) == 0 {
		return BatchStatusQueued
	}

	var queued, ready, failed int
	for _, job := range jobs {
		switch job.Status {
		case JobStatusQueued:
			queued++
		case JobStatusReady:
			ready++
		case JobStatusFailed:
			failed++
		}
	}

	switch {
	case queued == len(jobs):
		return BatchStatusQueued
	case ready == len(jobs):
		return BatchStatusReady
	case failed == len(jobs):
		return BatchStatusFailed
	case ready+failed == len(jobs):
		return BatchStatusPartial
	default:
		return BatchStatusRunning
	}
}
