package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/postgres/generated"
	"github.com/iho/goportfolio/internal/usecase"
)

// PortfolioRepository implements usecase.PortfolioRepository.
type PortfolioRepository struct {
	pool    Pool
	queries *generated.Queries
}

// NewPortfolioRepository creates a new PortfolioRepository.
func NewPortfolioRepository(pool Pool) *PortfolioRepository {
	return &PortfolioRepository{
		pool:    pool,
		queries: generated.New(pool),
	}
}

// Create inserts a portfolio within a transaction.
func (r *PortfolioRepository) Create(ctx context.Context, tx usecase.Transaction, portfolio *domain.Portfolio) error {
	queries, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	row, err := queries.CreatePortfolio(ctx, generated.CreatePortfolioParams{
		ID:        portfolio.ID,
		Name:      portfolio.Name,
		OwnerID:   portfolio.OwnerID,
		CreatedAt: timeToPgTimestamptz(portfolio.CreatedAt),
		UpdatedAt: timeToPgTimestamptz(portfolio.UpdatedAt),
	})
	if err != nil {
		return err
	}

	*portfolio = *rowToPortfolio(row)

	return nil
}

// GetByID retrieves a portfolio by ID.
func (r *PortfolioRepository) GetByID(ctx context.Context, id string) (*domain.Portfolio, error) {
	row, err := r.queries.GetPortfolioByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPortfolioNotFound
		}
		return nil, err
	}

	return rowToPortfolio(row), nil
}

// GetByIDForUpdate retrieves a portfolio and locks its row until tx ends.
func (r *PortfolioRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Portfolio, error) {
	queries, err := queriesFor(r.queries, tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetPortfolioByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPortfolioNotFound
		}
		return nil, err
	}

	return rowToPortfolio(row), nil
}

// Touch bumps the portfolio's updated_at.
func (r *PortfolioRepository) Touch(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	queries, err := queriesFor(r.queries, tx)
	if err != nil {
		return err
	}

	n, err := queries.TouchPortfolio(ctx, generated.TouchPortfolioParams{
		ID:        id,
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPortfolioNotFound
	}

	return nil
}

// List retrieves portfolios, newest first.
func (r *PortfolioRepository) List(ctx context.Context, limit, offset int) ([]*domain.Portfolio, error) {
	rows, err := r.queries.ListPortfolios(ctx, generated.ListPortfoliosParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, err
	}

	portfolios := make([]*domain.Portfolio, 0, len(rows))
	for _, row := range rows {
		portfolios = append(portfolios, rowToPortfolio(row))
	}

	return portfolios, nil
}

func rowToPortfolio(row generated.Portfolio) *domain.Portfolio {
	return &domain.Portfolio{
		ID:        row.ID,
		Name:      row.Name,
		OwnerID:   row.OwnerID,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}
