package postgres

import (
	"context"
	"time"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/postgres/generated"
	"github.com/iho/goportfolio/internal/usecase"
)

// OperationRepository implements usecase.OperationRepository.
type OperationRepository struct {
	pool    Pool
	queries *generated.Queries
	now     func() time.Time
}

// NewOperationRepository creates a new OperationRepository.
func NewOperationRepository(pool Pool) *OperationRepository {
	return &OperationRepository{
		pool:    pool,
		queries: generated.New(pool),
		now:     time.Now,
	}
}

// Create inserts an operation within a transaction.
func (r *OperationRepository) Create(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error {
	queries, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	createdAt := op.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now().UTC()
	}

	row, err := queries.CreateOperation(ctx, generated.CreateOperationParams{
		ID:          op.ID,
		PortfolioID: op.PortfolioID,
		AssetSymbol: op.AssetSymbol,
		Kind:        string(op.Kind),
		Currency:    string(op.Currency),
		Quantity:    decimalToNumeric(op.Quantity),
		UnitPrice:   decimalToNumeric(op.UnitPrice),
		ExecutedAt:  timeToPgTimestamptz(op.ExecutedAt),
		CreatedAt:   timeToPgTimestamptz(createdAt),
		UpdatedAt:   timeToPgTimestamptz(createdAt),
	})
	if err != nil {
		return err
	}

	*op = rowToOperation(row)

	return nil
}

// Update rewrites an operation in place. Its insertion slot is kept.
func (r *OperationRepository) Update(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error {
	queries, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateOperation(ctx, generated.UpdateOperationParams{
		PortfolioID: op.PortfolioID,
		ID:          op.ID,
		AssetSymbol: op.AssetSymbol,
		Kind:        string(op.Kind),
		Currency:    string(op.Currency),
		Quantity:    decimalToNumeric(op.Quantity),
		UnitPrice:   decimalToNumeric(op.UnitPrice),
		ExecutedAt:  timeToPgTimestamptz(op.ExecutedAt),
		UpdatedAt:   timeToPgTimestamptz(r.now().UTC()),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOperationNotFound
	}

	return nil
}

// Delete removes an operation from a portfolio.
func (r *OperationRepository) Delete(ctx context.Context, tx usecase.Transaction, portfolioID, id string) error {
	queries, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	n, err := queries.DeleteOperation(ctx, generated.DeleteOperationParams{
		PortfolioID: portfolioID,
		ID:          id,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrOperationNotFound
	}

	return nil
}

// ListByPortfolio retrieves a page of operations in execution order.
func (r *OperationRepository) ListByPortfolio(ctx context.Context, portfolioID string, limit, offset int) ([]*domain.Operation, error) {
	rows, err := r.queries.ListOperationsByPortfolio(ctx, generated.ListOperationsByPortfolioParams{
		PortfolioID: portfolioID,
		Limit:       int32(limit),
		Offset:      int32(offset),
	})
	if err != nil {
		return nil, err
	}

	ops := make([]*domain.Operation, 0, len(rows))
	for _, row := range rows {
		op := rowToOperation(row)
		ops = append(ops, &op)
	}

	return ops, nil
}

// ListForLedger retrieves every operation of a portfolio in insertion order.
func (r *OperationRepository) ListForLedger(ctx context.Context, tx usecase.Transaction, portfolioID string) ([]domain.Operation, error) {
	queries, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.ListOperationsForLedger(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	return rowsToOperations(rows), nil
}

// ListAll retrieves the whole ledger in insertion order.
func (r *OperationRepository) ListAll(ctx context.Context) ([]domain.Operation, error) {
	rows, err := r.queries.ListAllOperations(ctx)
	if err != nil {
		return nil, err
	}

	return rowsToOperations(rows), nil
}

func rowsToOperations(rows []generated.Operation) []domain.Operation {
	ops := make([]domain.Operation, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, rowToOperation(row))
	}
	return ops
}

func rowToOperation(row generated.Operation) domain.Operation {
	return domain.Operation{
		ID:          row.ID,
		PortfolioID: row.PortfolioID,
		AssetSymbol: row.AssetSymbol,
		Kind:        domain.OperationKind(row.Kind),
		Currency:    domain.Currency(row.Currency),
		Quantity:    numericToDecimal(row.Quantity),
		UnitPrice:   numericToDecimal(row.UnitPrice),
		ExecutedAt:  row.ExecutedAt.Time,
		CreatedAt:   row.CreatedAt.Time,
	}
}
