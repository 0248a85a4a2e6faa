package credits

import (
	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/types"
)

type Reason string

const (
	ReasonNoSubscription  Reason = "no_subscription"
	ReasonOverageDisabled Reason = "overage_disabled"
	ReasonLimitReached    Reason = "limit_reached"
	ReasonNoCredits       Reason = "no_credits"
)

// Decision is the outcome of a credit check. Remaining is the included
// balance before the request.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	Reason       Reason `json:"reason,omitempty"`
	Remaining    int    `json:"remaining"`
	IsOverage    bool   `json:"is_overage"`
	OverageCount int    `json:"overage_count"`
	OverageCents int64  `json:"overage_cents,omitempty"`
}

// Included is the part of an allowed request paid from included credits.
func (d Decision) Included(requested int) int {
	return requested - d.OverageCount
}

// Evaluate decides a request against a subscription and its derived usage.
// It does no I/O.
func Evaluate(sub *models.Subscription, usage repository.Usage, unit types.UnitType, requested int) Decision {
	if !sub.Active() {
		return Decision{Reason: ReasonNoSubscription}
	}

	remaining := max(0, sub.Included(unit)-usage.Included)
	if requested <= remaining {
		return Decision{Allowed: true, Remaining: remaining}
	}

	overage := requested - remaining
	if !sub.OverageEnabled {
		if sub.Included(unit) == 0 {
			return Decision{Reason: ReasonNoCredits, Remaining: remaining}
		}
		return Decision{Reason: ReasonOverageDisabled, Remaining: remaining}
	}

	cents := int64(overage) * sub.OverageUnitCents
	if sub.OverageCeilingCents != nil {
		spent := int64(usage.Overage) * sub.OverageUnitCents
		if spent+cents > *sub.OverageCeilingCents {
			return Decision{Reason: ReasonLimitReached, Remaining: remaining}
		}
	}

	return Decision{
		Allowed:      true,
		Remaining:    remaining,
		IsOverage:    true,
		OverageCount: overage,
		OverageCents: cents,
	}
}
