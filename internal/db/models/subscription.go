package models

import (
	"time"

	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/uptrace/bun"
)

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is the billing collaborator's view of a tenant's plan, mirrored
// locally for the credit gate.
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:s"`

	TenantID             string             `bun:",pk"`
	CustomerRef          string             `bun:",notnull"`
	Plan                 string             `bun:",notnull"`
	Status               SubscriptionStatus `bun:",notnull"`
	IncludedImageCredits int                `bun:",notnull"`
	IncludedTextCredits  int                `bun:",notnull"`
	OverageEnabled       bool               `bun:",notnull"`
	OverageUnitCents     int64              `bun:",notnull"`
	OverageCeilingCents  *int64             `bun:"overage_ceiling_cents"`
	PeriodStart          time.Time          `bun:",notnull"`
	PeriodEnd            time.Time          `bun:",notnull"`
	UpdatedAt            time.Time          `bun:",nullzero,notnull,default:current_timestamp"`
}

func (s *Subscription) Active() bool {
	return s != nil && (s.Status == SubscriptionActive || s.Status == SubscriptionTrialing)
}

func (s *Subscription) Included(unit types.UnitType) int {
	if unit == types.UnitText {
		return s.IncludedTextCredits
	}
	return s.IncludedImageCredits
}
