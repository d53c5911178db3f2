package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goportfolio/internal/adapter/http/handler"
	apimiddleware "github.com/iho/goportfolio/internal/adapter/http/middleware"
	"github.com/iho/goportfolio/internal/adapter/rates"
	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
	"github.com/iho/goportfolio/internal/usecase/fakes"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotentCreateIsReplayed(t *testing.T) {
	store := fakes.NewIdempotencyStore()
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/", strings.NewReader(`{"name":"Main"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	second := send()

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(apimiddleware.IdempotencyReplayHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestNewRouter_OperationFlow(t *testing.T) {
	router := NewRouter(newRouterConfig())

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, path, nil)
		} else {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/v1/portfolios/pf-1/operations/",
		`{"asset_symbol":"GGAL","kind":"BUY","currency":"ARS","quantity":"10","unit_price":"100","executed_at":"2024-03-01T00:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	opID := created["id"].(string)

	rec = do(http.MethodPost, "/api/v1/portfolios/pf-1/operations/",
		`{"asset_symbol":"GGAL","kind":"SELL","currency":"ARS","quantity":"11","unit_price":"100","executed_at":"2024-03-02T00:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(http.MethodPost, "/api/v1/portfolios/pf-1/operations/validate", `{"action":"delete","operation_id":"`+opID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	rec = do(http.MethodGet, "/api/v1/portfolios/pf-1/holdings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"quantity":"10"`)

	rec = do(http.MethodPost, "/api/v1/portfolios/pf-1/valuation", `{"prices":{"GGAL":{"amount":"200"}}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_value_ars":"2000"`)
	assert.Contains(t, rec.Body.String(), `"native_only":false`)

	rec = do(http.MethodGet, "/api/v1/rates", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/api/v1/ledger/consistency", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"consistent":true`)

	rec = do(http.MethodDelete, "/api/v1/portfolios/pf-1/operations/"+opID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.HTTPMetrics = apimiddleware.NewHTTPMetrics(reg)
		cfg.MetricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/portfolios/pf-1", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `path="/api/v1/portfolios/:id"`)
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.CORSOrigins = []string{"https://dashboard.example.com"}
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/portfolios/", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://dashboard.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/portfolios/",
		"GET /api/v1/portfolios/",
		"GET /api/v1/portfolios/{id}/",
		"GET /api/v1/portfolios/{id}/holdings",
		"POST /api/v1/portfolios/{id}/valuation",
		"GET /api/v1/portfolios/{id}/operations/",
		"POST /api/v1/portfolios/{id}/operations/",
		"POST /api/v1/portfolios/{id}/operations/validate",
		"PATCH /api/v1/portfolios/{id}/operations/{opID}",
		"DELETE /api/v1/portfolios/{id}/operations/{opID}",
		"GET /api/v1/rates",
		"GET /api/v1/ledger/consistency",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	portfolios := fakes.NewPortfolioRepository(&domain.Portfolio{ID: "pf-1", Name: "Main"})
	operations := fakes.NewOperationRepository()
	outbox := fakes.NewOutboxRepository()
	txMgr := fakes.NewTransactionManager()
	ids := fakes.NewIDGenerator()
	rateProvider := rates.NewStaticProvider(decimal.NewFromInt(1000), decimal.NewFromInt(1050))

	ok := handler.PingerFunc(func(ctx context.Context) error { return nil })

	cfg := RouterConfig{
		PortfolioHandler: handler.NewPortfolioHandler(usecase.NewPortfolioUseCase(txMgr, portfolios, outbox, ids, nil)),
		OperationHandler: handler.NewOperationHandler(usecase.NewOperationUseCase(txMgr, portfolios, operations, outbox, ids, nil, nil)),
		HoldingHandler:   handler.NewHoldingHandler(usecase.NewHoldingUseCase(portfolios, operations, rateProvider, nil)),
		LedgerHandler:    handler.NewLedgerHandler(usecase.NewReconciliationUseCase(portfolios, operations, nil)),
		HealthHandler:    handler.NewHealthHandler(ok, ok),
		Logger:           zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}
