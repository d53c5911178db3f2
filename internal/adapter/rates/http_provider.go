package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/domain"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 1 << 16

// HTTPConfig configures an HTTPProvider.
type HTTPConfig struct {
	URL    string
	Client *http.Client
	Logger zerolog.Logger
	// MaxElapsed bounds the total time spent retrying one fetch.
	MaxElapsed time.Duration
}

// HTTPProvider fetches the ARS/USD quote from a JSON endpoint shaped like
// {"compra": "...", "venta": "...", "fechaActualizacion": "..."}.
// English "buy"/"sell"/"updated_at" keys are accepted as well.
type HTTPProvider struct {
	url        string
	client     *http.Client
	logger     zerolog.Logger
	maxElapsed time.Duration
	now        func() time.Time
}

// NewHTTPProvider creates a new HTTPProvider.
func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	maxElapsed := cfg.MaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 10 * time.Second
	}

	return &HTTPProvider{
		url:        cfg.URL,
		client:     client,
		logger:     cfg.Logger,
		maxElapsed: maxElapsed,
		now:        time.Now,
	}
}

type quote struct {
	Compra    *decimal.Decimal `json:"compra"`
	Venta     *decimal.Decimal `json:"venta"`
	Buy       *decimal.Decimal `json:"buy"`
	Sell      *decimal.Decimal `json:"sell"`
	Fecha     string           `json:"fechaActualizacion"`
	UpdatedAt string           `json:"updated_at"`
}

// Current fetches the quote, retrying transport failures and 5xx responses.
func (p *HTTPProvider) Current(ctx context.Context) (*domain.ExchangeRate, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = p.maxElapsed

	var rate *domain.ExchangeRate
	err := backoff.RetryNotify(func() error {
		r, err := p.fetch(ctx)
		if err != nil {
			return err
		}
		rate = r
		return nil
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		p.logger.Warn().Err(err).Dur("wait", wait).Str("url", p.url).Msg("exchange rate fetch failed, retrying")
	})
	if err != nil {
		return nil, err
	}

	return rate, nil
}

func (p *HTTPProvider) fetch(ctx context.Context) (*domain.ExchangeRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("rates upstream: status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("rates upstream: status %d", resp.StatusCode))
	}

	rate, err := p.parse(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	return rate, nil
}

func (p *HTTPProvider) parse(body []byte) (*domain.ExchangeRate, error) {
	var q quote
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("rates upstream: decode: %w", err)
	}

	buy, sell := q.Compra, q.Venta
	if buy == nil {
		buy = q.Buy
	}
	if sell == nil {
		sell = q.Sell
	}
	if buy == nil || sell == nil {
		return nil, errors.New("rates upstream: response has no buy/sell quote")
	}

	rate := &domain.ExchangeRate{
		Buy:       *buy,
		Sell:      *sell,
		FetchedAt: p.fetchedAt(q),
		Source:    p.url,
	}
	if err := rate.Validate(); err != nil {
		return nil, fmt.Errorf("rates upstream: %w", err)
	}

	return rate, nil
}

func (p *HTTPProvider) fetchedAt(q quote) time.Time {
	for _, s := range []string{q.Fecha, q.UpdatedAt} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
	}
	return p.now().UTC()
}
