package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
)

// PortfolioUseCase handles portfolio business logic.
type PortfolioUseCase struct {
	txManager     TransactionManager
	portfolioRepo PortfolioRepository
	outboxRepo    OutboxRepository
	idGen         IDGenerator
	metrics       *metrics.Metrics
}

// NewPortfolioUseCase creates a new PortfolioUseCase.
func NewPortfolioUseCase(
	txManager TransactionManager,
	portfolioRepo PortfolioRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *PortfolioUseCase {
	return &PortfolioUseCase{
		txManager:     txManager,
		portfolioRepo: portfolioRepo,
		outboxRepo:    outboxRepo,
		idGen:         idGen,
		metrics:       metrics,
	}
}

// CreatePortfolioInput represents input for creating a portfolio.
type CreatePortfolioInput struct {
	Name    string
	OwnerID string
}

// CreatePortfolio creates a new portfolio.
func (uc *PortfolioUseCase) CreatePortfolio(ctx context.Context, input CreatePortfolioInput) (*domain.Portfolio, error) {
	now := time.Now().UTC()

	portfolio := &domain.Portfolio{
		ID:        uc.idGen.Generate(),
		Name:      strings.TrimSpace(input.Name),
		OwnerID:   input.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := portfolio.Validate(); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.portfolioRepo.Create(txCtx, tx, portfolio); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   portfolio.ID,
		AggregateType: domain.AggregateTypePortfolio,
		EventType:     domain.EventTypePortfolioCreated,
		Payload: map[string]any{
			"portfolio_id": portfolio.ID,
			"name":         portfolio.Name,
			"owner_id":     portfolio.OwnerID,
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PortfoliosCreated.Inc()
	}

	return portfolio, nil
}

// GetPortfolio retrieves a portfolio by ID.
func (uc *PortfolioUseCase) GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error) {
	return uc.portfolioRepo.GetByID(ctx, id)
}

// ListPortfoliosInput represents input for listing portfolios.
type ListPortfoliosInput struct {
	Limit  int
	Offset int
}

// ListPortfolios lists portfolios with pagination.
func (uc *PortfolioUseCase) ListPortfolios(ctx context.Context, input ListPortfoliosInput) ([]*domain.Portfolio, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if input.Limit > 100 {
		input.Limit = 100
	}
	return uc.portfolioRepo.List(ctx, input.Limit, input.Offset)
}
