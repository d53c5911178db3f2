package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iho/goportfolio/internal/usecase/fakes"
)

func postWithKey(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/portfolios/pf-1/operations", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, key)
	return req
}

func TestIdempotencyMiddleware_FailsClosedOnStoreErrors(t *testing.T) {
	store := fakes.NewIdempotencyStore()
	store.CheckAndSetFunc = func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
		return false, nil, context.DeadlineExceeded
	}
	mw := NewIdempotencyMiddleware(store, time.Minute)

	called := false
	rr := httptest.NewRecorder()
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, postWithKey("key-err"))

	if called {
		t.Fatalf("handler should not be called when store errors")
	}
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_ReleasesKeyOnFailure(t *testing.T) {
	store := fakes.NewIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, postWithKey("key-fail"))

	if _, held := store.Get("POST /api/v1/portfolios/pf-1/operations key-fail"); held {
		t.Fatalf("expected failed request to release its key")
	}

	// The client may retry with the same key.
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, postWithKey("key-fail"))
	if rr.Header().Get(IdempotencyReplayHeader) != "" {
		t.Fatalf("failed responses must not be replayed")
	}
}

func TestIdempotencyMiddleware_SkipsNonMutatingRequests(t *testing.T) {
	mw := NewIdempotencyMiddleware(fakes.NewIdempotencyStore(), 0)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/portfolios", nil)
	req.Header.Set(IdempotencyKeyHeader, "ignored")
	rr := httptest.NewRecorder()

	called := false
	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, req)

	if !called {
		t.Fatalf("expected next handler to be called")
	}
}

func TestIdempotencyMiddleware_ReplaysSuccessfulResponse(t *testing.T) {
	store := fakes.NewIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	calls := 0
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"op-1"}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, postWithKey("key-456"))

	second := httptest.NewRecorder()
	h.ServeHTTP(second, postWithKey("key-456"))

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", second.Code)
	}
	if second.Header().Get(IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if got := second.Body.String(); got != `{"id":"op-1"}` {
		t.Fatalf("unexpected replayed body: %s", got)
	}
}

func TestIdempotencyMiddleware_ConcurrentDuplicateIsRejected(t *testing.T) {
	store := fakes.NewIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Minute)

	var inner *httptest.ResponseRecorder
	h := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A duplicate arrives while the first request is still running.
		inner = httptest.NewRecorder()
		mw.Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("duplicate must not reach the handler")
		})).ServeHTTP(inner, postWithKey("key-dup"))
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), postWithKey("key-dup"))

	if inner.Code != http.StatusConflict {
		t.Fatalf("expected 409 for in-flight duplicate, got %d", inner.Code)
	}
}
