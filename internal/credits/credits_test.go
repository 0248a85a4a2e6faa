package credits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cozy-creator/product-studio/internal/db/models"
	"github.com/cozy-creator/product-studio/internal/db/repository"
	"github.com/cozy-creator/product-studio/internal/metering"
	"github.com/cozy-creator/product-studio/internal/testutil"
	"github.com/cozy-creator/product-studio/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

var period = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func subscription(included int, overage bool, ceiling *int64) *models.Subscription {
	return &models.Subscription{
		TenantID:             "tenant-a",
		CustomerRef:          "cus_a",
		Plan:                 "pro",
		Status:               models.SubscriptionActive,
		IncludedImageCredits: included,
		IncludedTextCredits:  50,
		OverageEnabled:       overage,
		OverageUnitCents:     10,
		OverageCeilingCents:  ceiling,
		PeriodStart:          period,
		PeriodEnd:            period.AddDate(0, 1, 0),
	}
}

func cents(v int64) *int64 { return &v }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		sub       *models.Subscription
		usage     repository.Usage
		requested int
		want      Decision
	}{
		{
			name:      "within included",
			sub:       subscription(10, false, nil),
			usage:     repository.Usage{Included: 4},
			requested: 6,
			want:      Decision{Allowed: true, Remaining: 6},
		},
		{
			name:      "overage without ceiling",
			sub:       subscription(10, true, nil),
			usage:     repository.Usage{Included: 7},
			requested: 5,
			want:      Decision{Allowed: true, Remaining: 3, IsOverage: true, OverageCount: 2, OverageCents: 20},
		},
		{
			name:      "overage disabled",
			sub:       subscription(10, false, nil),
			usage:     repository.Usage{Included: 7},
			requested: 5,
			want:      Decision{Reason: ReasonOverageDisabled, Remaining: 3},
		},
		{
			name:      "ceiling breached",
			sub:       subscription(10, true, cents(50)),
			usage:     repository.Usage{Included: 10, Overage: 3},
			requested: 3,
			want:      Decision{Reason: ReasonLimitReached, Remaining: 0},
		},
		{
			name:      "ceiling exactly met",
			sub:       subscription(10, true, cents(50)),
			usage:     repository.Usage{Included: 10, Overage: 3},
			requested: 2,
			want:      Decision{Allowed: true, IsOverage: true, OverageCount: 2, OverageCents: 20},
		},
		{
			name:      "no subscription",
			sub:       nil,
			requested: 1,
			want:      Decision{Reason: ReasonNoSubscription},
		},
		{
			name: "canceled subscription",
			sub: func() *models.Subscription {
				s := subscription(10, true, nil)
				s.Status = models.SubscriptionCanceled
				return s
			}(),
			requested: 1,
			want:      Decision{Reason: ReasonNoSubscription},
		},
		{
			name:      "plan without credits",
			sub:       subscription(0, false, nil),
			requested: 1,
			want:      Decision{Reason: ReasonNoCredits},
		},
		{
			name:      "over-consumed period",
			sub:       subscription(10, true, nil),
			usage:     repository.Usage{Included: 12},
			requested: 1,
			want:      Decision{Allowed: true, IsOverage: true, OverageCount: 1, OverageCents: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.sub, tt.usage, types.UnitImage, tt.requested))
		})
	}
}

type fakeReporter struct {
	events []metering.Event
	err    error
}

func (f *fakeReporter) ReportUsage(_ context.Context, e metering.Event) (string, error) {
	f.events = append(f.events, e)
	if f.err != nil {
		return "", f.err
	}
	return "evt_1", nil
}

type fixture struct {
	db       *bun.DB
	gate     *Gate
	ledger   repository.ILedgerRepository
	reporter *fakeReporter
}

func newFixture(t *testing.T, sub *models.Subscription) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	subs := repository.NewSubscriptionRepository(db)
	if sub != nil {
		require.NoError(t, subs.Save(context.Background(), sub))
	}

	ledger := repository.NewLedgerRepository(db)
	reporter := &fakeReporter{}
	return &fixture{
		db:       db,
		gate:     NewGate(db, ledger, subs, reporter, "image_overage", zap.NewNop()),
		ledger:   ledger,
		reporter: reporter,
	}
}

func (f *fixture) reserve(t *testing.T, requested int) (*Reservation, error) {
	t.Helper()
	var r *Reservation
	err := f.db.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		r, err = f.gate.Reserve(ctx, tx, "tenant-a", types.UnitImage, requested)
		return err
	})
	return r, err
}

func TestGate_ReserveSplitsIncludedAndOverage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, subscription(5, true, nil))

	r, err := f.reserve(t, 9)
	require.NoError(t, err)
	assert.True(t, r.Decision.IsOverage)
	assert.Equal(t, 4, r.Decision.OverageCount)
	require.Len(t, r.Entries, 2)
	assert.Equal(t, -5, r.Entries[0].Amount)
	assert.False(t, r.Entries[0].IsOverage)
	assert.Equal(t, -4, r.Entries[1].Amount)
	assert.True(t, r.Entries[1].IsOverage)

	usage, err := f.ledger.Usage(ctx, "tenant-a", types.UnitImage, period)
	require.NoError(t, err)
	assert.Equal(t, repository.Usage{Included: 5, Overage: 4}, usage)

	f.gate.Report(ctx, r)
	require.Len(t, f.reporter.events, 1)
	assert.Equal(t, 4, f.reporter.events[0].Quantity)
	assert.Equal(t, "cus_a", f.reporter.events[0].CustomerRef)

	entries, err := f.ledger.ListByReference(ctx, r.Reference)
	require.NoError(t, err)
	var eventIDs []string
	for _, e := range entries {
		eventIDs = append(eventIDs, e.MeteringEventID)
	}
	assert.ElementsMatch(t, []string{"", "evt_1"}, eventIDs)
}

func TestGate_ReportFailureIsLogged(t *testing.T) {
	f := newFixture(t, subscription(0, true, nil))
	f.reporter.err = errors.New("billing down")

	r, err := f.reserve(t, 2)
	require.NoError(t, err)

	assert.NotPanics(t, func() { f.gate.Report(context.Background(), r) })
	assert.Len(t, f.reporter.events, 1)
}

func TestGate_DeniedAppendsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, subscription(3, false, nil))

	_, err := f.reserve(t, 5)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, ReasonOverageDisabled, denied.Decision.Reason)
	assert.Equal(t, 3, denied.Decision.Remaining)

	usage, err := f.ledger.Usage(ctx, "tenant-a", types.UnitImage, period)
	require.NoError(t, err)
	assert.Equal(t, repository.Usage{}, usage)
}

func TestGate_NoSubscription(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.reserve(t, 1)
	var denied *DeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, ReasonNoSubscription, denied.Decision.Reason)

	d, err := f.gate.Check(context.Background(), "tenant-a", types.UnitImage, 1)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestGate_RefundAndBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, subscription(10, false, nil))

	r, err := f.reserve(t, 4)
	require.NoError(t, err)

	b, err := f.gate.Balance(ctx, "tenant-a", types.UnitImage)
	require.NoError(t, err)
	assert.Equal(t, 6, b.Remaining)
	assert.Equal(t, 4, b.Used)

	refunds, err := f.gate.Refund(ctx, r.Reference, "manual")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, 4, refunds[0].Amount)

	b, err = f.gate.Balance(ctx, "tenant-a", types.UnitImage)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Remaining)

	_, err = f.gate.Refund(ctx, r.Reference, "again")
	assert.ErrorIs(t, err, ErrAlreadyRefunded)

	_, err = f.gate.Refund(ctx, [16]byte{1}, "unknown")
	assert.ErrorIs(t, err, ErrNothingToRefund)
}
