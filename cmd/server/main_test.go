package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goportfolio/internal/adapter/rates"
	postgresRepo "github.com/iho/goportfolio/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goportfolio/internal/adapter/repository/redis"
	"github.com/iho/goportfolio/internal/infrastructure/config"
	"github.com/iho/goportfolio/internal/infrastructure/eventpublisher"
	"github.com/iho/goportfolio/internal/infrastructure/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		RatesTimeout:      50 * time.Millisecond,
		RatesFreshFor:     time.Minute,
		RatesMaxStaleness: time.Hour,
		EventSink:         "log",
		OutboxEnabled:     true,
	}
}

func quoteServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"compra": "1000", "venta": "1050"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestBuildRateProvider_StaticOnly(t *testing.T) {
	cfg := testConfig()
	cfg.RatesStaticBuy = decimal.NewFromInt(900)
	cfg.RatesStaticSell = decimal.NewFromInt(950)

	provider := buildRateProvider(cfg, nil, nil, zerolog.Nop())
	require.IsType(t, &rates.StaticProvider{}, provider)

	rate, err := provider.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, rate.Buy.Equal(decimal.NewFromInt(900)))
	assert.True(t, rate.Sell.Equal(decimal.NewFromInt(950)))
}

func TestBuildRateProvider_FallsBackToStatic(t *testing.T) {
	srv, hits := quoteServer(t, http.StatusNotFound)

	cfg := testConfig()
	cfg.RatesURL = srv.URL
	cfg.RatesStaticBuy = decimal.NewFromInt(900)
	cfg.RatesStaticSell = decimal.NewFromInt(950)

	provider := buildRateProvider(cfg, nil, nil, zerolog.Nop())
	require.IsType(t, &rates.FallbackProvider{}, provider)

	rate, err := provider.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", rate.Source)
	assert.Equal(t, int32(1), hits.Load())
}

func TestBuildRateProvider_CachesUpstream(t *testing.T) {
	srv, hits := quoteServer(t, http.StatusOK)
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.RatesURL = srv.URL

	m := metrics.New(prometheus.NewRegistry())
	provider := buildRateProvider(cfg, redisRepo.NewCache(client), m, zerolog.Nop())
	require.IsType(t, &rates.CachedProvider{}, provider)

	for i := 0; i < 3; i++ {
		rate, err := provider.Current(context.Background())
		require.NoError(t, err)
		assert.True(t, rate.Sell.Equal(decimal.NewFromInt(1050)))
	}
	assert.Equal(t, int32(1), hits.Load(), "fresh quote must be served from cache")
}

func TestBuildEventSink(t *testing.T) {
	cfg := testConfig()
	assert.IsType(t, &eventpublisher.LogPublisher{}, buildEventSink(cfg, nil, zerolog.Nop()))

	cfg.EventSink = "redis"
	assert.IsType(t, &eventpublisher.LogPublisher{}, buildEventSink(cfg, nil, zerolog.Nop()),
		"redis sink needs a client")

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	assert.IsType(t, &eventpublisher.RedisPublisher{}, buildEventSink(cfg, client, zerolog.Nop()))
}

func TestBuildOutboxRepo(t *testing.T) {
	cfg := testConfig()
	assert.IsType(t, &postgresRepo.OutboxRepository{}, buildOutboxRepo(cfg, nil, zerolog.Nop()))

	cfg.OutboxEnabled = false
	assert.IsType(t, &postgresRepo.NullOutboxRepository{}, buildOutboxRepo(cfg, nil, zerolog.Nop()))
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	server := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, time.Second, zerolog.Nop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_ReportsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	server := &http.Server{Addr: ln.Addr().String()}
	err = serve(context.Background(), server, time.Second, zerolog.Nop())
	assert.Error(t, err)
}
