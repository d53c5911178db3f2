package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
	"github.com/iho/goportfolio/internal/usecase"
)

// DefaultCacheKey is where the last good quote is stored.
const DefaultCacheKey = "rates:ARS_USD"

// Policy decides when a cached quote may be served.
type Policy struct {
	// FreshFor is how long a quote is served without asking upstream.
	FreshFor time.Duration
	// MaxStaleness is how old a quote may be and still be served when
	// upstream fails. Such quotes are marked Stale.
	MaxStaleness time.Duration
}

// CachedProvider puts a cache with an explicit staleness policy in front
// of an upstream provider. The last good quote is also kept in memory so
// a cache outage does not take valuations down with it.
type CachedProvider struct {
	upstream usecase.ExchangeRateProvider
	cache    usecase.Cache
	policy   Policy
	key      string
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	last *cachedRate
}

// NewCachedProvider creates a new CachedProvider. cache may be nil.
func NewCachedProvider(upstream usecase.ExchangeRateProvider, cache usecase.Cache, policy Policy, m *metrics.Metrics, logger zerolog.Logger) *CachedProvider {
	if policy.MaxStaleness < policy.FreshFor {
		policy.MaxStaleness = policy.FreshFor
	}

	return &CachedProvider{
		upstream: upstream,
		cache:    cache,
		policy:   policy,
		key:      DefaultCacheKey,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

type cachedRate struct {
	Buy       decimal.Decimal `json:"buy"`
	Sell      decimal.Decimal `json:"sell"`
	FetchedAt time.Time       `json:"fetched_at"`
	Source    string          `json:"source"`
	CachedAt  time.Time       `json:"cached_at"`
}

func (c cachedRate) rate() *domain.ExchangeRate {
	return &domain.ExchangeRate{Buy: c.Buy, Sell: c.Sell, FetchedAt: c.FetchedAt, Source: c.Source}
}

// Current returns a fresh cached quote, else asks upstream, else falls
// back to a stale quote within MaxStaleness. Ages are measured from when
// the quote was obtained from upstream.
func (p *CachedProvider) Current(ctx context.Context) (*domain.ExchangeRate, error) {
	cached, ok := p.load(ctx)

	if ok && p.age(&cached) <= p.policy.FreshFor {
		p.record("cache", "hit", &cached)
		return cached.rate(), nil
	}

	rate, err := p.upstream.Current(ctx)
	if err == nil {
		err = rate.Validate()
	}
	if err == nil {
		rate.Stale = false
		entry := cachedRate{Buy: rate.Buy, Sell: rate.Sell, FetchedAt: rate.FetchedAt, Source: rate.Source, CachedAt: p.now()}
		p.store(ctx, entry)
		p.record("upstream", "ok", &entry)
		return rate, nil
	}

	p.record("upstream", "error", nil)
	p.logger.Warn().Err(err).Msg("exchange rate upstream failed")

	if ok && p.age(&cached) <= p.policy.MaxStaleness {
		p.record("cache", "stale", &cached)
		stale := cached.rate()
		stale.Stale = true
		return stale, nil
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrMissingExchangeRate, err)
}

func (p *CachedProvider) age(c *cachedRate) time.Duration {
	return p.now().Sub(c.CachedAt)
}

func (p *CachedProvider) load(ctx context.Context) (cachedRate, bool) {
	if p.cache != nil {
		raw, err := p.cache.Get(ctx, p.key)
		switch {
		case err == nil:
			var c cachedRate
			if jsonErr := json.Unmarshal(raw, &c); jsonErr == nil {
				return c, true
			}
			p.logger.Warn().Str("key", p.key).Msg("discarding undecodable cached exchange rate")
		case errors.Is(err, usecase.ErrCacheMiss):
		default:
			p.logger.Warn().Err(err).Msg("exchange rate cache unavailable")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return cachedRate{}, false
	}
	return *p.last, true
}

func (p *CachedProvider) store(ctx context.Context, entry cachedRate) {
	p.mu.Lock()
	p.last = &entry
	p.mu.Unlock()

	if p.cache == nil {
		return
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	// Expire once the quote is too old to be served even as stale.
	if err := p.cache.Set(ctx, p.key, raw, p.policy.MaxStaleness); err != nil {
		p.logger.Warn().Err(err).Msg("failed to cache exchange rate")
	}
}

func (p *CachedProvider) record(source, status string, entry *cachedRate) {
	if p.metrics == nil {
		return
	}
	p.metrics.RateFetches.WithLabelValues(source, status).Inc()
	if entry != nil {
		p.metrics.RateAge.Set(p.age(entry).Seconds())
	}
}
