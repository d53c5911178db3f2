package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goportfolio/internal/domain"
)

func newTestHTTPProvider(url string) *HTTPProvider {
	return NewHTTPProvider(HTTPConfig{
		URL:        url,
		Client:     &http.Client{Timeout: time.Second},
		Logger:     zerolog.Nop(),
		MaxElapsed: 500 * time.Millisecond,
	})
}

func TestHTTPProvider_ParsesQuote(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		buy, sell string
		fetchedAt time.Time
	}{
		{
			name:      "spanish keys with string quotes",
			body:      `{"moneda":"USD","casa":"blue","compra":"1180.5","venta":"1210","fechaActualizacion":"2024-05-02T13:56:00.000Z"}`,
			buy:       "1180.5",
			sell:      "1210",
			fetchedAt: time.Date(2024, 5, 2, 13, 56, 0, 0, time.UTC),
		},
		{
			name: "english keys with numbers",
			body: `{"buy": 950, "sell": 990.25, "updated_at": "2024-05-02T10:00:00-03:00"}`,
			buy:  "950", sell: "990.25",
			fetchedAt: time.Date(2024, 5, 2, 13, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			rate, err := newTestHTTPProvider(srv.URL).Current(context.Background())
			require.NoError(t, err)
			assert.True(t, rate.Buy.Equal(decimal.RequireFromString(tt.buy)), "buy %s", rate.Buy)
			assert.True(t, rate.Sell.Equal(decimal.RequireFromString(tt.sell)), "sell %s", rate.Sell)
			assert.True(t, rate.FetchedAt.Equal(tt.fetchedAt), "fetched at %s", rate.FetchedAt)
			assert.Equal(t, srv.URL, rate.Source)
		})
	}
}

func TestHTTPProvider_MissingTimestampUsesNow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"compra":"100","venta":"110"}`))
	}))
	defer srv.Close()

	p := newTestHTTPProvider(srv.URL)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	rate, err := p.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.FetchedAt.Equal(now))
}

func TestHTTPProvider_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"compra":"100","venta":"110"}`))
	}))
	defer srv.Close()

	_, err := newTestHTTPProvider(srv.URL).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPProvider_PermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{}`},
		{name: "garbage", status: http.StatusOK, body: `<html>`},
		{name: "missing sell", status: http.StatusOK, body: `{"compra":"100"}`},
		{name: "zero quote", status: http.StatusOK, body: `{"compra":"0","venta":"110"}`, wantErr: domain.ErrInvalidExchangeRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestHTTPProvider(srv.URL).Current(context.Background())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
			assert.Equal(t, int32(1), calls.Load(), "permanent failures are not retried")
		})
	}
}

func TestStaticProvider(t *testing.T) {
	rate, err := NewStaticProvider(decimal.NewFromInt(900), decimal.NewFromInt(1000)).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", rate.Source)
	assert.True(t, rate.Spread().Equal(decimal.NewFromInt(100)))

	_, err = NewStaticProvider(decimal.Zero, decimal.NewFromInt(1000)).Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidExchangeRate)
}

func TestFallbackProvider(t *testing.T) {
	failing := providerFunc(func(ctx context.Context) (*domain.ExchangeRate, error) {
		return nil, errors.New("upstream down")
	})
	static := NewStaticProvider(decimal.NewFromInt(900), decimal.NewFromInt(1000))

	rate, err := NewFallbackProvider(zerolog.Nop(), failing, static).Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", rate.Source)

	_, err = NewFallbackProvider(zerolog.Nop(), failing, failing).Current(context.Background())
	assert.ErrorContains(t, err, "upstream down")

	_, err = NewFallbackProvider(zerolog.Nop()).Current(context.Background())
	assert.Error(t, err)
}

type providerFunc func(ctx context.Context) (*domain.ExchangeRate, error)

func (f providerFunc) Current(ctx context.Context) (*domain.ExchangeRate, error) { return f(ctx) }
