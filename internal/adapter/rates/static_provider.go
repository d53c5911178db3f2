package rates

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/domain"
)

// StaticProvider always returns the same configured quote.
type StaticProvider struct {
	buy, sell decimal.Decimal
	now       func() time.Time
}

// NewStaticProvider creates a new StaticProvider.
func NewStaticProvider(buy, sell decimal.Decimal) *StaticProvider {
	return &StaticProvider{buy: buy, sell: sell, now: time.Now}
}

// Current returns the configured quote stamped with the current time.
func (p *StaticProvider) Current(ctx context.Context) (*domain.ExchangeRate, error) {
	rate := &domain.ExchangeRate{
		Buy:       p.buy,
		Sell:      p.sell,
		FetchedAt: p.now().UTC(),
		Source:    "static",
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}
	return rate, nil
}
