package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
	"github.com/iho/goportfolio/internal/usecase"
	"github.com/iho/goportfolio/internal/usecase/fakes"
)

var t0 = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func day(n int) *time.Time {
	at := t0.AddDate(0, 0, n)
	return &at
}

type operationFixture struct {
	uc        *usecase.OperationUseCase
	txMgr     *fakes.TransactionManager
	ops       *fakes.OperationRepository
	outbox    *fakes.OutboxRepository
	portfolio *fakes.PortfolioRepository
	metrics   *metrics.Metrics
}

func newOperationFixture(retrier usecase.Retrier) *operationFixture {
	f := &operationFixture{
		txMgr:     fakes.NewTransactionManager(),
		ops:       fakes.NewOperationRepository(),
		outbox:    fakes.NewOutboxRepository(),
		portfolio: fakes.NewPortfolioRepository(&domain.Portfolio{ID: "pf-1", Name: "main"}),
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	f.uc = usecase.NewOperationUseCase(f.txMgr, f.portfolio, f.ops, f.outbox, fakes.NewIDGenerator(), retrier, f.metrics)
	return f
}

func (f *operationFixture) record(t *testing.T, kind string, qty int64, at *time.Time) *domain.Operation {
	t.Helper()
	op, err := f.uc.CreateOperation(context.Background(), input(kind, qty, at))
	require.NoError(t, err)
	return op
}

func input(kind string, qty int64, at *time.Time) usecase.CreateOperationInput {
	return usecase.CreateOperationInput{
		PortfolioID: "pf-1",
		AssetSymbol: "ggal",
		Kind:        kind,
		Currency:    "ARS",
		Quantity:    decimal.NewFromInt(qty),
		UnitPrice:   decimal.NewFromInt(100),
		ExecutedAt:  at,
	}
}

func TestOperationUseCase_CreateOperation(t *testing.T) {
	tests := []struct {
		name        string
		seed        [][2]int64 // kind sign, quantity; day is the index
		input       usecase.CreateOperationInput
		expectError error
	}{
		{
			name:  "buy into empty portfolio",
			input: input("BUY", 10, day(1)),
		},
		{
			name:        "sell with no holdings",
			input:       input("SELL", 1, day(1)),
			expectError: domain.ErrNegativeHolding,
		},
		{
			name:  "sell covered by earlier buy",
			seed:  [][2]int64{{1, 10}},
			input: input("SELL", 10, day(5)),
		},
		{
			name:        "backdated sell before the covering buy",
			seed:        [][2]int64{{1, 10}},
			input:       input("SELL", 10, day(-1)),
			expectError: domain.ErrNegativeHolding,
		},
		{
			name:        "invalid kind",
			input:       input("HOLD", 1, day(1)),
			expectError: domain.ErrInvalidKind,
		},
		{
			name: "invalid currency",
			input: func() usecase.CreateOperationInput {
				in := input("BUY", 1, day(1))
				in.Currency = "EUR"
				return in
			}(),
			expectError: domain.ErrInvalidCurrency,
		},
		{
			name: "unknown portfolio",
			input: func() usecase.CreateOperationInput {
				in := input("BUY", 1, day(1))
				in.PortfolioID = "missing"
				return in
			}(),
			expectError: domain.ErrPortfolioNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOperationFixture(nil)
			for i, s := range tt.seed {
				kind := "BUY"
				if s[0] < 0 {
					kind = "SELL"
				}
				f.record(t, kind, s[1], day(i))
			}
			before := len(f.ops.Operations())

			op, err := f.uc.CreateOperation(context.Background(), tt.input)

			if tt.expectError != nil {
				require.ErrorIs(t, err, tt.expectError)
				assert.Len(t, f.ops.Operations(), before, "rejected operation must not be stored")
				assert.Len(t, f.outbox.Events(), before)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, op.ID)
			assert.Equal(t, "GGAL", op.AssetSymbol)
			assert.Len(t, f.ops.Operations(), before+1)
		})
	}
}

func TestOperationUseCase_CreateEmitsEvent(t *testing.T) {
	f := newOperationFixture(nil)
	f.record(t, "BUY", 10, day(1))
	sell := f.record(t, "SELL", 4, day(2))

	events := f.outbox.Events()
	require.Len(t, events, 2)

	last := events[1]
	assert.Equal(t, domain.EventTypeOperationCreated, last.EventType)
	assert.Equal(t, sell.ID, last.AggregateID)
	assert.Equal(t, "6", last.Payload["holding_quantity"])
	assert.Equal(t, 2, f.txMgr.Committed)

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.OperationMutations.WithLabelValues("create")))
}

func TestOperationUseCase_RejectionIsCounted(t *testing.T) {
	f := newOperationFixture(nil)

	_, err := f.uc.CreateOperation(context.Background(), input("SELL", 1, day(1)))
	require.Error(t, err)

	var negErr *domain.NegativeHoldingError
	require.True(t, errors.As(err, &negErr))
	assert.Equal(t, "GGAL", negErr.AssetSymbol)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.MutationRejections.WithLabelValues("negative_holding")))
	assert.Zero(t, f.txMgr.Committed)
}

func TestOperationUseCase_EditOperation(t *testing.T) {
	f := newOperationFixture(nil)
	buy := f.record(t, "BUY", 10, day(1))
	f.record(t, "SELL", 8, day(2))

	shrink := decimal.NewFromInt(5)
	_, err := f.uc.EditOperation(context.Background(), usecase.EditOperationInput{
		PortfolioID: "pf-1",
		OperationID: buy.ID,
		Patch:       domain.OperationPatch{Quantity: &shrink},
	})
	require.ErrorIs(t, err, domain.ErrNegativeHolding)

	grow := decimal.NewFromInt(20)
	edited, err := f.uc.EditOperation(context.Background(), usecase.EditOperationInput{
		PortfolioID: "pf-1",
		OperationID: buy.ID,
		Patch:       domain.OperationPatch{Quantity: &grow},
	})
	require.NoError(t, err)
	assert.True(t, edited.Quantity.Equal(grow))

	stored := f.ops.Operations()
	assert.Equal(t, buy.ID, stored[0].ID, "edit keeps insertion order")
	assert.True(t, stored[0].Quantity.Equal(grow))

	events := f.outbox.Events()
	assert.Equal(t, domain.EventTypeOperationUpdated, events[len(events)-1].EventType)
	assert.Equal(t, "12", events[len(events)-1].Payload["holding_quantity"])

	_, err = f.uc.EditOperation(context.Background(), usecase.EditOperationInput{PortfolioID: "pf-1", OperationID: buy.ID})
	assert.ErrorIs(t, err, domain.ErrEmptyPatch)

	_, err = f.uc.EditOperation(context.Background(), usecase.EditOperationInput{
		PortfolioID: "pf-1",
		OperationID: "missing",
		Patch:       domain.OperationPatch{Quantity: &grow},
	})
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)
}

func TestOperationUseCase_EditOrdersAtStoredPrecision(t *testing.T) {
	f := newOperationFixture(nil)
	f.record(t, "BUY", 10, &t0)
	hourLater := t0.Add(time.Hour)
	sell := f.record(t, "SELL", 10, &hourLater)
	x := t0.Add(48 * time.Hour)
	f.record(t, "BUY", 10, &x)

	// 500ns past the later buy only sorts after it before truncation. At
	// microsecond precision the sell ties with the buy and is ordered
	// first, so it would oversell.
	qty := decimal.NewFromInt(20)
	at := x.Add(500 * time.Nanosecond)
	_, err := f.uc.EditOperation(context.Background(), usecase.EditOperationInput{
		PortfolioID: "pf-1",
		OperationID: sell.ID,
		Patch:       domain.OperationPatch{Quantity: &qty, ExecutedAt: &at},
	})
	require.ErrorIs(t, err, domain.ErrNegativeHolding)

	stored := f.ops.Operations()
	require.NoError(t, domain.CheckTemporalConsistency(stored))
	assert.True(t, stored[1].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestBuildOperation_TruncatesToMicroseconds(t *testing.T) {
	now := t0.Add(1500 * time.Nanosecond)
	at := t0.Add(2*time.Hour + 999*time.Nanosecond).In(time.FixedZone("ART", -3*3600))

	op, err := usecase.BuildOperation(input("BUY", 1, &at), now)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(2*time.Hour), op.ExecutedAt)
	assert.Equal(t, t0.Add(time.Microsecond), op.CreatedAt)

	op, err = usecase.BuildOperation(input("BUY", 1, nil), now)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Microsecond), op.ExecutedAt)
}

func TestOperationUseCase_RejectsUnstorablePrecision(t *testing.T) {
	f := newOperationFixture(nil)
	in := input("BUY", 1, day(1))
	in.Quantity = decimal.RequireFromString("0.0000000000000000001")

	_, err := f.uc.CreateOperation(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrAmountTooPrecise)
	assert.Empty(t, f.ops.Operations())
}

func TestOperationUseCase_DeleteOperation(t *testing.T) {
	f := newOperationFixture(nil)
	buy := f.record(t, "BUY", 10, day(1))
	sell := f.record(t, "SELL", 10, day(2))

	err := f.uc.DeleteOperation(context.Background(), "pf-1", buy.ID)
	require.ErrorIs(t, err, domain.ErrNegativeHolding)
	assert.Len(t, f.ops.Operations(), 2)

	require.NoError(t, f.uc.DeleteOperation(context.Background(), "pf-1", sell.ID))
	require.NoError(t, f.uc.DeleteOperation(context.Background(), "pf-1", buy.ID))
	assert.Empty(t, f.ops.Operations())

	events := f.outbox.Events()
	last := events[len(events)-1]
	assert.Equal(t, domain.EventTypeOperationDeleted, last.EventType)
	assert.Equal(t, "0", last.Payload["holding_quantity"])
}

func TestOperationUseCase_RetriesTransientFailures(t *testing.T) {
	errTransient := errors.New("serialization failure")
	retrier := &fakes.Retrier{
		Attempts:    3,
		ShouldRetry: func(err error) bool { return errors.Is(err, errTransient) },
	}
	f := newOperationFixture(retrier)

	failures := 1
	f.ops.ListForLedgerFunc = func(ctx context.Context, tx usecase.Transaction, portfolioID string) ([]domain.Operation, error) {
		if failures > 0 {
			failures--
			return nil, errTransient
		}
		return nil, nil
	}

	_, err := f.uc.CreateOperation(context.Background(), input("BUY", 1, day(1)))
	require.NoError(t, err)
	assert.Equal(t, 2, f.txMgr.Begun)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.MutationRetries))

	// Validation failures are not retried.
	f.txMgr.Begun = 0
	_, err = f.uc.CreateOperation(context.Background(), input("SELL", 5, day(0)))
	require.ErrorIs(t, err, domain.ErrNegativeHolding)
	assert.Equal(t, 1, f.txMgr.Begun)
}

func TestOperationUseCase_PreviewMutation(t *testing.T) {
	f := newOperationFixture(nil)
	f.record(t, "BUY", 10, day(1))

	op, err := usecase.BuildOperation(input("SELL", 4, day(2)), t0)
	require.NoError(t, err)

	result, err := f.uc.PreviewMutation(context.Background(), "pf-1", domain.CreateMutation{Operation: op})
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.True(t, result.Holding.Quantity.Equal(decimal.NewFromInt(6)))

	op.Quantity = decimal.NewFromInt(11)
	result, err = f.uc.PreviewMutation(context.Background(), "pf-1", domain.CreateMutation{Operation: op})
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.ErrorIs(t, result.Err, domain.ErrNegativeHolding)

	assert.Len(t, f.ops.Operations(), 1, "preview never writes")
	assert.Equal(t, 1, f.txMgr.Begun)

	_, err = f.uc.PreviewMutation(context.Background(), "missing", domain.CreateMutation{Operation: op})
	assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)
}

func TestOperationUseCase_ListOperations(t *testing.T) {
	f := newOperationFixture(nil)
	f.record(t, "BUY", 10, day(3))
	f.record(t, "BUY", 5, day(1))

	ops, err := f.uc.ListOperations(context.Background(), usecase.ListOperationsInput{PortfolioID: "pf-1"})
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.True(t, ops[0].ExecutedAt.Before(ops[1].ExecutedAt))

	ops, err = f.uc.ListOperations(context.Background(), usecase.ListOperationsInput{PortfolioID: "pf-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].Quantity.Equal(decimal.NewFromInt(10)))

	_, err = f.uc.ListOperations(context.Background(), usecase.ListOperationsInput{PortfolioID: "missing"})
	assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)
}
