package rates

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
)

// FallbackProvider asks each provider in turn and returns the first quote.
type FallbackProvider struct {
	providers []usecase.ExchangeRateProvider
	logger    zerolog.Logger
}

// NewFallbackProvider creates a provider chain. At least one provider is
// required.
func NewFallbackProvider(logger zerolog.Logger, providers ...usecase.ExchangeRateProvider) *FallbackProvider {
	return &FallbackProvider{providers: providers, logger: logger}
}

// Current returns the first successful quote, or all errors joined.
func (p *FallbackProvider) Current(ctx context.Context) (*domain.ExchangeRate, error) {
	if len(p.providers) == 0 {
		return nil, errors.New("rates: no provider configured")
	}

	var errs []error
	for i, provider := range p.providers {
		rate, err := provider.Current(ctx)
		if err == nil {
			if i > 0 {
				p.logger.Warn().Int("provider", i).Str("source", rate.Source).Msg("serving exchange rate from fallback provider")
			}
			return rate, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}

	return nil, errors.Join(errs...)
}
