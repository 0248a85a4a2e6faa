package repository

import (
	"context"

	"github.com/cozy-creator/product-studio/internal/db/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type ISubscriptionRepository interface {
	WithTx(tx *bun.Tx) ISubscriptionRepository
	Save(ctx context.Context, sub *models.Subscription) error
	GetByTenant(ctx context.Context, tenantID string) (*models.Subscription, error)
	// Lock reads the subscription and, on postgres, holds a row lock until
	// the surrounding transaction ends.
	Lock(ctx context.Context, tenantID string) (*models.Subscription, error)
}

type SubscriptionRepository struct {
	db bun.IDB
}

func NewSubscriptionRepository(db *bun.DB) ISubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Save inserts the subscription or replaces the tenant's existing one.
func (r *SubscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	_, err := r.db.NewInsert().
		Model(sub).
		On("CONFLICT (tenant_id) DO UPDATE").
		Set("customer_ref = EXCLUDED.customer_ref").
		Set("plan = EXCLUDED.plan").
		Set("status = EXCLUDED.status").
		Set("included_image_credits = EXCLUDED.included_image_credits").
		Set("included_text_credits = EXCLUDED.included_text_credits").
		Set("overage_enabled = EXCLUDED.overage_enabled").
		Set("overage_unit_cents = EXCLUDED.overage_unit_cents").
		Set("overage_ceiling_cents = EXCLUDED.overage_ceiling_cents").
		Set("period_start = EXCLUDED.period_start").
		Set("period_end = EXCLUDED.period_end").
		Exec(ctx)
	return err
}

func (r *SubscriptionRepository) GetByTenant(ctx context.Context, tenantID string) (*models.Subscription, error) {
	sub := new(models.Subscription)
	if err := r.db.NewSelect().Model(sub).Where("tenant_id = ?", tenantID).Scan(ctx); err != nil {
		return nil, notFound(err)
	}

	return sub, nil
}

func (r *SubscriptionRepository) Lock(ctx context.Context, tenantID string) (*models.Subscription, error) {
	sub := new(models.Subscription)
	q := r.db.NewSelect().Model(sub).Where("tenant_id = ?", tenantID)
	if r.db.Dialect().Name() == dialect.PG {
		q = q.For("UPDATE")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, notFound(err)
	}

	return sub, nil
}

func (r *SubscriptionRepository) WithTx(tx *bun.Tx) ISubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}
