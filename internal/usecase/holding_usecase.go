package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
)

// HoldingUseCase derives holdings and valuations from the ledger. It never
// writes.
type HoldingUseCase struct {
	portfolioRepo PortfolioRepository
	operationRepo OperationRepository
	rates         ExchangeRateProvider
	metrics       *metrics.Metrics
}

// NewHoldingUseCase creates a new HoldingUseCase.
func NewHoldingUseCase(
	portfolioRepo PortfolioRepository,
	operationRepo OperationRepository,
	rates ExchangeRateProvider,
	metrics *metrics.Metrics,
) *HoldingUseCase {
	return &HoldingUseCase{
		portfolioRepo: portfolioRepo,
		operationRepo: operationRepo,
		rates:         rates,
		metrics:       metrics,
	}
}

// GetHoldings returns one holding per asset of the portfolio. With at set,
// only operations executed up to at are counted and empty positions are
// left out.
func (uc *HoldingUseCase) GetHoldings(ctx context.Context, portfolioID string, at *time.Time) ([]domain.Holding, error) {
	ledger, err := uc.loadLedger(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	if at != nil {
		return domain.ComputeHoldingsAt(ledger, *at), nil
	}

	return domain.ComputeHoldings(ledger), nil
}

// ValuationInput represents input for valuing a portfolio.
type ValuationInput struct {
	Prices      map[string]domain.LivePrice
	PortfolioID string
}

// ValuePortfolio prices the current holdings. When no exchange rate can be
// obtained the native-only valuation is returned together with an error
// matching domain.ErrMissingExchangeRate.
func (uc *HoldingUseCase) ValuePortfolio(ctx context.Context, input ValuationInput) (*domain.ValuedPortfolio, error) {
	holdings, err := uc.GetHoldings(ctx, input.PortfolioID, nil)
	if err != nil {
		return nil, err
	}

	rate, rateErr := uc.currentRate(ctx)

	valued, err := domain.ValuePortfolio(holdings, input.Prices, rate)
	if err != nil && !errors.Is(err, domain.ErrMissingExchangeRate) {
		return nil, err
	}

	if uc.metrics != nil {
		mode := "full"
		if valued.NativeOnly {
			mode = "native_only"
		}
		uc.metrics.ValuationsComputed.WithLabelValues(mode).Inc()
	}

	if err != nil && rateErr != nil {
		return valued, fmt.Errorf("%w: %v", err, rateErr)
	}

	return valued, err
}

// CurrentRate returns the exchange rate the valuator would use.
func (uc *HoldingUseCase) CurrentRate(ctx context.Context) (*domain.ExchangeRate, error) {
	rate, err := uc.currentRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingExchangeRate, err)
	}
	return rate, nil
}

func (uc *HoldingUseCase) currentRate(ctx context.Context) (*domain.ExchangeRate, error) {
	if uc.rates == nil {
		return nil, errors.New("no exchange rate provider configured")
	}

	rate, err := uc.rates.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}

	return rate, nil
}

func (uc *HoldingUseCase) loadLedger(ctx context.Context, portfolioID string) (*domain.Ledger, error) {
	if _, err := uc.portfolioRepo.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}

	ops, err := uc.operationRepo.ListForLedger(ctx, nil, portfolioID)
	if err != nil {
		return nil, err
	}

	return domain.NewLedger(ops), nil
}
