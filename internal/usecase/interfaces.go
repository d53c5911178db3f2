package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/goportfolio/internal/domain"
)

// PortfolioRepository defines data access for portfolios.
type PortfolioRepository interface {
	Create(ctx context.Context, tx Transaction, portfolio *domain.Portfolio) error
	GetByID(ctx context.Context, id string) (*domain.Portfolio, error)
	// GetByIDForUpdate locks the portfolio row. Every ledger write for the
	// portfolio goes through this lock.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Portfolio, error)
	Touch(ctx context.Context, tx Transaction, id string, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Portfolio, error)
}

// OperationRepository defines data access for ledger operations.
type OperationRepository interface {
	Create(ctx context.Context, tx Transaction, op *domain.Operation) error
	Update(ctx context.Context, tx Transaction, op *domain.Operation) error
	Delete(ctx context.Context, tx Transaction, portfolioID, id string) error
	ListByPortfolio(ctx context.Context, portfolioID string, limit, offset int) ([]*domain.Operation, error)
	// ListForLedger returns every operation of a portfolio in insertion
	// order. A nil tx reads outside any transaction.
	ListForLedger(ctx context.Context, tx Transaction, portfolioID string) ([]domain.Operation, error)
	ListAll(ctx context.Context) ([]domain.Operation, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error)
	DeletePublished(ctx context.Context, before time.Time) error
}

// ExchangeRateProvider returns the current ARS/USD quote.
type ExchangeRateProvider interface {
	Current(ctx context.Context) (*domain.ExchangeRate, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request can be retried.
	Release(ctx context.Context, key string) error
}
