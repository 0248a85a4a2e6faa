package models

import (
	"time"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type LedgerKind string

const (
	LedgerKindDeduction LedgerKind = "deduction"
	LedgerKindRefund    LedgerKind = "refund"
)

// CreditLedgerEntry is an append-only audit row. Deductions carry a negative
// amount, refunds a positive one.
type CreditLedgerEntry struct {
	bun.BaseModel `bun:"table:credit_ledger,alias:cl"`

	ID              uuid.UUID      `bun:",pk,type:uuid"`
	TenantID        string         `bun:",notnull"`
	Unit            types.UnitType `bun:",notnull"`
	Kind            LedgerKind     `bun:",notnull"`
	Amount          int            `bun:",notnull"`
	IsOverage       bool           `bun:",notnull"`
	PeriodStart     time.Time      `bun:",notnull"`
	Reference       uuid.UUID      `bun:",type:uuid,notnull"`
	MeteringEventID string         `bun:",nullzero"`
	Note            string         `bun:",nullzero"`
	CreatedAt       time.Time      `bun:",nullzero,notnull,default:current_timestamp"`
}
