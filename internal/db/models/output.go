package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Output is append-only. (job_id, ordinal) is unique.
type Output struct {
	bun.BaseModel `bun:"table:generation_outputs,alias:o"`

	ID         uuid.UUID `bun:",pk,type:uuid"`
	JobID      uuid.UUID `bun:",type:uuid,notnull,unique:job_ordinal"`
	Ordinal    int       `bun:",notnull,unique:job_ordinal"`
	URL        string    `bun:",notnull"`
	Path       string    `bun:",notnull"`
	MimeType   string    `bun:",notnull"`
	Prompt     string    `bun:",notnull"`
	PromptHash string    `bun:",notnull"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
