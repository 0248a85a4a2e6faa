package repository

import (
	"context"
	"time"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Usage is the net consumption of a unit within one metering period,
// derived from the ledger.
type Usage struct {
	Included int
	Overage  int
}

type ILedgerRepository interface {
	WithTx(tx *bun.Tx) ILedgerRepository
	Append(ctx context.Context, entries ...*models.CreditLedgerEntry) error
	Usage(ctx context.Context, tenantID string, unit types.UnitType, periodStart time.Time) (Usage, error)
	ListByReference(ctx context.Context, reference uuid.UUID) ([]*models.CreditLedgerEntry, error)
	SetMeteringEventID(ctx context.Context, id uuid.UUID, eventID string) error
}

type LedgerRepository struct {
	db bun.IDB
}

func NewLedgerRepository(db *bun.DB) ILedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, entries ...*models.CreditLedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	_, err := r.db.NewInsert().Model(&entries).Exec(ctx)
	return err
}

func (r *LedgerRepository) Usage(ctx context.Context, tenantID string, unit types.UnitType, periodStart time.Time) (Usage, error) {
	var rows []struct {
		IsOverage bool `bun:"is_overage"`
		Total     int  `bun:"total"`
	}

	err := r.db.NewSelect().
		Model((*models.CreditLedgerEntry)(nil)).
		Column("is_overage").
		ColumnExpr("COALESCE(SUM(amount), 0) AS total").
		Where("tenant_id = ?", tenantID).
		Where("unit = ?", unit).
		Where("period_start = ?", periodStart).
		Group("is_overage").
		Scan(ctx, &rows)
	if err != nil {
		return Usage{}, err
	}

	var usage Usage
	for _, row := range rows {
		// Deductions are negative, so consumption is the negated sum.
		if row.IsOverage {
			usage.Overage = -row.Total
		} else {
			usage.Included = -row.Total
		}
	}

	return usage, nil
}

func (r *LedgerRepository) ListByReference(ctx context.Context, reference uuid.UUID) ([]*models.CreditLedgerEntry, error) {
	var entries []*models.CreditLedgerEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("reference = ?", reference).
		Order("created_at ASC").
		Scan(ctx)
	return entries, err
}

func (r *LedgerRepository) SetMeteringEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.CreditLedgerEntry)(nil)).
		Set("metering_event_id = ?", eventID).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (r *LedgerRepository) WithTx(tx *bun.Tx) ILedgerRepository {
	return &LedgerRepository{db: tx}
}
