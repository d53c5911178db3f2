package integration

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/goportfolio/internal/adapter/repository/postgres"
	"github.com/iho/goportfolio/internal/usecase"
	"github.com/iho/goportfolio/tests/testutil"
)

var base = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func day(n int) *time.Time {
	at := base.AddDate(0, 0, n)
	return &at
}

type stack struct {
	db          *testutil.TestDB
	operations  *postgres.OperationRepository
	outbox      *postgres.OutboxRepository
	operationUC *usecase.OperationUseCase
	holdingUC   *usecase.HoldingUseCase
	reconcileUC *usecase.ReconciliationUseCase
	portfolioUC *usecase.PortfolioUseCase
}

func newStack(t *testing.T) *stack {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := testutil.NewTestDB(t)
	t.Cleanup(db.Cleanup)

	pool := db.Pool
	txManager := postgres.NewTxManager(pool)
	portfolioRepo := postgres.NewPortfolioRepository(pool)
	operationRepo := postgres.NewOperationRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	idGen := postgres.NewULIDGenerator()
	retrier := postgres.NewRetrier(zerolog.Nop())

	return &stack{
		db:          db,
		operations:  operationRepo,
		outbox:      outboxRepo,
		operationUC: usecase.NewOperationUseCase(txManager, portfolioRepo, operationRepo, outboxRepo, idGen, retrier, nil),
		holdingUC:   usecase.NewHoldingUseCase(portfolioRepo, operationRepo, nil, nil),
		reconcileUC: usecase.NewReconciliationUseCase(portfolioRepo, operationRepo, nil),
		portfolioUC: usecase.NewPortfolioUseCase(txManager, portfolioRepo, outboxRepo, idGen, nil),
	}
}

func buyInput(portfolioID string, qty int64, price int64, at *time.Time) usecase.CreateOperationInput {
	return operationInput(portfolioID, "BUY", qty, price, at)
}

func sellInput(portfolioID string, qty int64, price int64, at *time.Time) usecase.CreateOperationInput {
	return operationInput(portfolioID, "SELL", qty, price, at)
}
