package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
)

// OperationUseCase handles ledger writes. Every mutation is checked against
// the full portfolio ledger before anything is written.
type OperationUseCase struct {
	txManager     TransactionManager
	portfolioRepo PortfolioRepository
	operationRepo OperationRepository
	outboxRepo    OutboxRepository
	idGen         IDGenerator
	retrier       Retrier
	metrics       *metrics.Metrics
}

// NewOperationUseCase creates a new OperationUseCase.
func NewOperationUseCase(
	txManager TransactionManager,
	portfolioRepo PortfolioRepository,
	operationRepo OperationRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *OperationUseCase {
	return &OperationUseCase{
		txManager:     txManager,
		portfolioRepo: portfolioRepo,
		operationRepo: operationRepo,
		outboxRepo:    outboxRepo,
		idGen:         idGen,
		retrier:       retrier,
		metrics:       metrics,
	}
}

// CreateOperationInput represents input for recording an operation.
type CreateOperationInput struct {
	ExecutedAt  *time.Time
	PortfolioID string
	AssetSymbol string
	Kind        string
	Currency    string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// EditOperationInput represents input for editing an operation.
type EditOperationInput struct {
	PortfolioID string
	OperationID string
	Patch       domain.OperationPatch
}

// ListOperationsInput represents input for listing operations.
type ListOperationsInput struct {
	PortfolioID string
	Limit       int
	Offset      int
}

// PreviewResult is the outcome of a speculative validation.
type PreviewResult struct {
	// Holding is the subject partition after the mutation.
	Holding domain.Holding
	Valid   bool
	Err     error
}

// BuildOperation turns create input into a validated-shape operation
// without assigning an ID.
func BuildOperation(input CreateOperationInput, now time.Time) (domain.Operation, error) {
	kind, err := domain.ParseOperationKind(input.Kind)
	if err != nil {
		return domain.Operation{}, err
	}

	currency, err := domain.ParseCurrency(input.Currency)
	if err != nil {
		return domain.Operation{}, err
	}

	now = domain.NormalizeTimestamp(now)
	executedAt := now
	if input.ExecutedAt != nil {
		executedAt = domain.NormalizeTimestamp(*input.ExecutedAt)
	}

	return domain.Operation{
		PortfolioID: input.PortfolioID,
		AssetSymbol: domain.NormalizeAssetSymbol(input.AssetSymbol),
		Kind:        kind,
		Currency:    currency,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
		ExecutedAt:  executedAt,
		CreatedAt:   now,
	}, nil
}

// PreviewMutation validates m against the current portfolio ledger without
// writing. A rejected mutation is reported in the result, not as an error;
// the error return is reserved for lookup and storage failures.
func (uc *OperationUseCase) PreviewMutation(ctx context.Context, portfolioID string, m domain.Mutation) (*PreviewResult, error) {
	if _, err := uc.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	ops, err := uc.operationRepo.ListForLedger(ctx, nil, portfolioID)
	if err != nil {
		return nil, err
	}

	m = scopeMutation(portfolioID, m)
	ledger := domain.NewLedger(ops)

	if err := domain.ValidateMutation(ledger, m); err != nil {
		return &PreviewResult{Valid: false, Err: err}, nil
	}

	next, err := ledger.WithMutation(m)
	if err != nil {
		return nil, err
	}

	subject, _ := subjectOf(ledger, m)
	return &PreviewResult{
		Valid:   true,
		Holding: domain.ComputeHolding(next.OperationsFor(portfolioID, subject.AssetSymbol)),
	}, nil
}

// CreateOperation records a new operation.
func (uc *OperationUseCase) CreateOperation(ctx context.Context, input CreateOperationInput) (*domain.Operation, error) {
	op, err := BuildOperation(input, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	op.ID = uc.idGen.Generate()

	return uc.apply(ctx, input.PortfolioID, domain.CreateMutation{Operation: op})
}

// EditOperation applies a patch to an existing operation.
func (uc *OperationUseCase) EditOperation(ctx context.Context, input EditOperationInput) (*domain.Operation, error) {
	if input.Patch.IsEmpty() {
		return nil, domain.ErrEmptyPatch
	}

	return uc.apply(ctx, input.PortfolioID, domain.EditMutation{ID: input.OperationID, Patch: input.Patch})
}

// DeleteOperation removes an operation.
func (uc *OperationUseCase) DeleteOperation(ctx context.Context, portfolioID, operationID string) error {
	_, err := uc.apply(ctx, portfolioID, domain.DeleteMutation{ID: operationID})
	return err
}

// ListOperations lists a portfolio's operations in chronological order.
func (uc *OperationUseCase) ListOperations(ctx context.Context, input ListOperationsInput) ([]*domain.Operation, error) {
	limit, offset, err := domain.ValidatePagination(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	if _, err := uc.portfolioRepo.GetByID(ctx, input.PortfolioID); err != nil {
		return nil, err
	}

	return uc.operationRepo.ListByPortfolio(ctx, input.PortfolioID, limit, offset)
}

func (uc *OperationUseCase) apply(ctx context.Context, portfolioID string, m domain.Mutation) (*domain.Operation, error) {
	start := time.Now()
	m = scopeMutation(portfolioID, m)

	var result *domain.Operation
	attempts := 0

	err := uc.retry(ctx, func() error {
		attempts++
		op, err := uc.applyOnce(ctx, portfolioID, m)
		if err != nil {
			return err
		}
		result = op
		return nil
	})

	if uc.metrics != nil {
		if attempts > 1 {
			uc.metrics.MutationRetries.Add(float64(attempts - 1))
		}
		if err != nil {
			uc.metrics.MutationRejections.WithLabelValues(metrics.RejectionReason(err)).Inc()
		} else {
			uc.metrics.OperationMutations.WithLabelValues(domain.MutationKind(m)).Inc()
			uc.metrics.MutationDuration.Observe(time.Since(start).Seconds())
		}
	}

	if err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *OperationUseCase) applyOnce(ctx context.Context, portfolioID string, m domain.Mutation) (*domain.Operation, error) {
	// Add transaction timeout
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock portfolio; concurrent writers queue here
	if _, err := uc.portfolioRepo.GetByIDForUpdate(txCtx, tx, portfolioID); err != nil {
		return nil, err
	}

	ops, err := uc.operationRepo.ListForLedger(txCtx, tx, portfolioID)
	if err != nil {
		return nil, err
	}

	ledger := domain.NewLedger(ops)
	if err := domain.ValidateMutation(ledger, m); err != nil {
		return nil, err
	}

	next, err := ledger.WithMutation(m)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var (
		subject   domain.Operation
		eventType string
	)

	switch mut := m.(type) {
	case domain.CreateMutation:
		subject = mut.Operation
		eventType = domain.EventTypeOperationCreated
		err = uc.operationRepo.Create(txCtx, tx, &subject)

	case domain.EditMutation:
		subject, _ = next.Find(mut.ID)
		eventType = domain.EventTypeOperationUpdated
		err = uc.operationRepo.Update(txCtx, tx, &subject)

	case domain.DeleteMutation:
		subject, _ = ledger.Find(mut.ID)
		eventType = domain.EventTypeOperationDeleted
		err = uc.operationRepo.Delete(txCtx, tx, portfolioID, mut.ID)
	}
	if err != nil {
		return nil, err
	}

	holding := domain.ComputeHolding(next.OperationsFor(portfolioID, subject.AssetSymbol))

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   subject.ID,
		AggregateType: domain.AggregateTypeOperation,
		EventType:     eventType,
		Payload:       domain.NewOperationEvent(subject, holding).Map(),
		CreatedAt:     now,
		Published:     false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := uc.portfolioRepo.Touch(txCtx, tx, portfolioID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return &subject, nil
}

func (uc *OperationUseCase) retry(ctx context.Context, fn func() error) error {
	if uc.retrier == nil {
		return fn()
	}
	return uc.retrier.Retry(ctx, fn)
}

// scopeMutation pins a created operation to the portfolio it is written to
// and brings every timestamp to storage precision.
func scopeMutation(portfolioID string, m domain.Mutation) domain.Mutation {
	switch mut := m.(type) {
	case domain.CreateMutation:
		mut.Operation.PortfolioID = portfolioID
		mut.Operation.AssetSymbol = domain.NormalizeAssetSymbol(mut.Operation.AssetSymbol)
		mut.Operation.ExecutedAt = domain.NormalizeTimestamp(mut.Operation.ExecutedAt)
		mut.Operation.CreatedAt = domain.NormalizeTimestamp(mut.Operation.CreatedAt)
		return mut
	case domain.EditMutation:
		if mut.Patch.ExecutedAt != nil {
			at := domain.NormalizeTimestamp(*mut.Patch.ExecutedAt)
			mut.Patch.ExecutedAt = &at
		}
		return mut
	}
	return m
}

// subjectOf returns the operation a mutation acts on, as it will look after
// the mutation (or before it, for deletes).
func subjectOf(l *domain.Ledger, m domain.Mutation) (domain.Operation, bool) {
	switch mut := m.(type) {
	case domain.CreateMutation:
		return mut.Operation, true
	case domain.EditMutation:
		op, ok := l.Find(mut.ID)
		if !ok {
			return domain.Operation{}, false
		}
		return mut.Patch.Apply(op), true
	case domain.DeleteMutation:
		return l.Find(mut.ID)
	}
	return domain.Operation{}, false
}
