package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/metering"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var (
	ErrAlreadyRefunded = errors.New("reference already refunded")
	ErrNothingToRefund = errors.New("no deductions for reference")
)

// DeniedError is returned by Reserve when the gate rejects a request.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("credits denied: %s (remaining %d)", e.Decision.Reason, e.Decision.Remaining)
}

// Reservation is a committed-or-pending deduction for one submission.
type Reservation struct {
	Reference   uuid.UUID
	Decision    Decision
	Entries     []*models.CreditLedgerEntry
	CustomerRef string
}

type Gate struct {
	db            *bun.DB
	ledger        repository.ILedgerRepository
	subscriptions repository.ISubscriptionRepository
	reporter      metering.Reporter
	eventName     string
	logger        *zap.Logger
}

func NewGate(
	db *bun.DB,
	ledger repository.ILedgerRepository,
	subscriptions repository.ISubscriptionRepository,
	reporter metering.Reporter,
	eventName string,
	logger *zap.Logger,
) *Gate {
	return &Gate{
		db:            db,
		ledger:        ledger,
		subscriptions: subscriptions,
		reporter:      reporter,
		eventName:     eventName,
		logger:        logger,
	}
}

// Check evaluates a request without reserving anything.
func (g *Gate) Check(ctx context.Context, tenantID string, unit types.UnitType, requested int) (Decision, error) {
	sub, err := g.subscriptions.GetByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Evaluate(nil, repository.Usage{}, unit, requested), nil
		}
		return Decision{}, fmt.Errorf("failed to load subscription: %w", err)
	}

	usage, err := g.ledger.Usage(ctx, tenantID, unit, sub.PeriodStart)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to compute usage: %w", err)
	}

	return Evaluate(sub, usage, unit, requested), nil
}

// Lock takes the tenant's subscription row lock for the rest of tx. A tenant
// without a subscription is not an error here; Reserve denies it.
func (g *Gate) Lock(ctx context.Context, tx bun.Tx, tenantID string) error {
	_, err := g.subscriptions.WithTx(&tx).Lock(ctx, tenantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to lock subscription: %w", err)
	}
	return nil
}

// Reserve evaluates and, when allowed, appends the deduction entries inside
// tx. The caller commits tx and then calls Report.
func (g *Gate) Reserve(ctx context.Context, tx bun.Tx, tenantID string, unit types.UnitType, requested int) (*Reservation, error) {
	sub, err := g.subscriptions.WithTx(&tx).Lock(ctx, tenantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	var usage repository.Usage
	if sub != nil {
		usage, err = g.ledger.WithTx(&tx).Usage(ctx, tenantID, unit, sub.PeriodStart)
		if err != nil {
			return nil, fmt.Errorf("failed to compute usage: %w", err)
		}
	}

	decision := Evaluate(sub, usage, unit, requested)
	if !decision.Allowed {
		return nil, &DeniedError{Decision: decision}
	}

	reservation := &Reservation{
		Reference:   uuid.New(),
		Decision:    decision,
		CustomerRef: sub.CustomerRef,
	}

	entry := func(amount int, overage bool) *models.CreditLedgerEntry {
		return &models.CreditLedgerEntry{
			ID:          uuid.New(),
			TenantID:    tenantID,
			Unit:        unit,
			Kind:        models.LedgerKindDeduction,
			Amount:      -amount,
			IsOverage:   overage,
			PeriodStart: sub.PeriodStart,
			Reference:   reservation.Reference,
		}
	}

	if included := decision.Included(requested); included > 0 {
		reservation.Entries = append(reservation.Entries, entry(included, false))
	}
	if decision.OverageCount > 0 {
		reservation.Entries = append(reservation.Entries, entry(decision.OverageCount, true))
	}

	if err := g.ledger.WithTx(&tx).Append(ctx, reservation.Entries...); err != nil {
		return nil, fmt.Errorf("failed to append ledger entries: %w", err)
	}

	return reservation, nil
}

// Report sends the overage part of a committed reservation to metering.
// Failures are logged and not retried.
func (g *Gate) Report(ctx context.Context, r *Reservation) {
	if r == nil || !r.Decision.IsOverage {
		return
	}

	for _, e := range r.Entries {
		if !e.IsOverage {
			continue
		}

		eventID, err := g.reporter.ReportUsage(ctx, metering.Event{
			EventName:   g.eventName,
			CustomerRef: r.CustomerRef,
			Quantity:    -e.Amount,
			Timestamp:   time.Now().UTC(),
		})
		if err != nil {
			g.logger.Error("failed to report overage usage",
				zap.String("tenant_id", e.TenantID),
				zap.String("reference", r.Reference.String()),
				zap.Int("quantity", -e.Amount),
				zap.Error(err),
			)
			continue
		}

		if eventID == "" {
			continue
		}
		if err := g.ledger.SetMeteringEventID(ctx, e.ID, eventID); err != nil {
			g.logger.Warn("failed to record metering event id", zap.String("event_id", eventID), zap.Error(err))
		}
	}
}

// Refund credits back every deduction made under reference. It is never
// called by the pipeline itself.
func (g *Gate) Refund(ctx context.Context, reference uuid.UUID, note string) ([]*models.CreditLedgerEntry, error) {
	var refunds []*models.CreditLedgerEntry
	err := g.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ledger := g.ledger.WithTx(&tx)

		entries, err := ledger.ListByReference(ctx, reference)
		if err != nil {
			return err
		}

		for _, e := range entries {
			if e.Kind == models.LedgerKindRefund {
				return ErrAlreadyRefunded
			}
		}

		for _, e := range entries {
			refunds = append(refunds, &models.CreditLedgerEntry{
				ID:          uuid.New(),
				TenantID:    e.TenantID,
				Unit:        e.Unit,
				Kind:        models.LedgerKindRefund,
				Amount:      -e.Amount,
				IsOverage:   e.IsOverage,
				PeriodStart: e.PeriodStart,
				Reference:   reference,
				Note:        note,
			})
		}
		if len(refunds) == 0 {
			return ErrNothingToRefund
		}

		return ledger.Append(ctx, refunds...)
	})
	if err != nil {
		return nil, err
	}

	return refunds, nil
}

// Balance is a tenant's derived position for the current period.
type Balance struct {
	TenantID     string         `json:"tenant_id"`
	Unit         types.UnitType `json:"unit"`
	Included     int            `json:"included"`
	Used         int            `json:"used"`
	Remaining    int            `json:"remaining"`
	OverageUsed  int            `json:"overage_used"`
	PeriodStart  time.Time      `json:"period_start"`
	PeriodEnd    time.Time      `json:"period_end"`
	Subscription string         `json:"subscription_status"`
}

func (g *Gate) Balance(ctx context.Context, tenantID string, unit types.UnitType) (*Balance, error) {
	sub, err := g.subscriptions.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	usage, err := g.ledger.Usage(ctx, tenantID, unit, sub.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("failed to compute usage: %w", err)
	}

	return &Balance{
		TenantID:     tenantID,
		Unit:         unit,
		Included:     sub.Included(unit),
		Used:         usage.Included,
		Remaining:    max(0, sub.Included(unit)-usage.Included),
		OverageUsed:  usage.Overage,
		PeriodStart:  sub.PeriodStart,
		PeriodEnd:    sub.PeriodEnd,
		Subscription: string(sub.Status),
	}, nil
}
