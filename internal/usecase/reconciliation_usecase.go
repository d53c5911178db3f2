package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
)

// ReconciliationUseCase replays stored ledgers to confirm that no partition
// ever goes negative. Writes are validated before they land, so a violation
// here means data was changed outside the service.
type ReconciliationUseCase struct {
	portfolioRepo PortfolioRepository
	operationRepo OperationRepository
	metrics       *metrics.Metrics
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	portfolioRepo PortfolioRepository,
	operationRepo OperationRepository,
	metrics *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		portfolioRepo: portfolioRepo,
		operationRepo: operationRepo,
		metrics:       metrics,
	}
}

// Violation is one inconsistent partition.
type Violation struct {
	PortfolioID string
	AssetSymbol string
	OperationID string
	At          time.Time
	Shortfall   decimal.Decimal
	Reason      string
}

// ConsistencyReport represents a full reconciliation report
type ConsistencyReport struct {
	CheckedAt  time.Time
	Violations []Violation
	Partitions int
	Operations int
	Consistent bool
}

// CheckLedgerConsistency replays every partition of every portfolio.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) (*ConsistencyReport, error) {
	ops, err := uc.operationRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	return uc.report(domain.NewLedger(ops)), nil
}

// ReconcilePortfolio replays the partitions of one portfolio.
func (uc *ReconciliationUseCase) ReconcilePortfolio(ctx context.Context, portfolioID string) (*ConsistencyReport, error) {
	if _, err := uc.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	ops, err := uc.operationRepo.ListForLedger(ctx, nil, portfolioID)
	if err != nil {
		return nil, err
	}

	return uc.report(domain.NewLedger(ops)), nil
}

func (uc *ReconciliationUseCase) report(ledger *domain.Ledger) *ConsistencyReport {
	partitions := ledger.Partitions()

	report := &ConsistencyReport{
		Violations: make([]Violation, 0),
		Partitions: len(partitions),
		Operations: ledger.Len(),
		CheckedAt:  time.Now().UTC(),
	}

	for _, key := range partitions {
		ops := ledger.OperationsFor(key.PortfolioID, key.AssetSymbol)

		if v, ok := checkPartition(key, ops); ok {
			report.Violations = append(report.Violations, v)
		}
	}

	report.Consistent = len(report.Violations) == 0

	if uc.metrics != nil && !report.Consistent {
		uc.metrics.ConsistencyFailures.Add(float64(len(report.Violations)))
	}

	return report
}

func checkPartition(key domain.PartitionKey, ops []domain.Operation) (Violation, bool) {
	for _, op := range ops[1:] {
		if op.Currency != ops[0].Currency {
			return Violation{
				PortfolioID: key.PortfolioID,
				AssetSymbol: key.AssetSymbol,
				OperationID: op.ID,
				At:          op.ExecutedAt,
				Shortfall:   decimal.Zero,
				Reason:      domain.ErrCurrencyMismatch.Error(),
			}, true
		}
	}

	err := domain.CheckTemporalConsistency(ops)
	if err == nil {
		return Violation{}, false
	}

	v := Violation{
		PortfolioID: key.PortfolioID,
		AssetSymbol: key.AssetSymbol,
		Shortfall:   decimal.Zero,
		Reason:      err.Error(),
	}

	var negErr *domain.NegativeHoldingError
	if errors.As(err, &negErr) {
		v.OperationID = negErr.OperationID
		v.At = negErr.At
		v.Shortfall = negErr.Shortfall
	}

	return v, true
}
