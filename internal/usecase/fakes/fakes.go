// Package fakes provides in-memory implementations of the usecase
// interfaces. Every method can be overridden through its Func field.
package fakes

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
)

// PortfolioRepository is an in-memory usecase.PortfolioRepository.
type PortfolioRepository struct {
	mu         sync.RWMutex
	portfolios map[string]*domain.Portfolio

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, portfolio *domain.Portfolio) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Portfolio, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Portfolio, error)
	TouchFunc            func(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error
	ListFunc             func(ctx context.Context, limit, offset int) ([]*domain.Portfolio, error)
}

func NewPortfolioRepository(portfolios ...*domain.Portfolio) *PortfolioRepository {
	r := &PortfolioRepository{portfolios: make(map[string]*domain.Portfolio)}
	for _, p := range portfolios {
		r.portfolios[p.ID] = p
	}
	return r
}

func (r *PortfolioRepository) Create(ctx context.Context, tx usecase.Transaction, portfolio *domain.Portfolio) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, portfolio)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.portfolios[portfolio.ID] = portfolio
	return nil
}

func (r *PortfolioRepository) GetByID(ctx context.Context, id string) (*domain.Portfolio, error) {
	if r.GetByIDFunc != nil {
		return r.GetByIDFunc(ctx, id)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.portfolios[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPortfolioNotFound
}

func (r *PortfolioRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Portfolio, error) {
	if r.GetByIDForUpdateFunc != nil {
		return r.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return r.GetByID(ctx, id)
}

func (r *PortfolioRepository) Touch(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	if r.TouchFunc != nil {
		return r.TouchFunc(ctx, tx, id, updatedAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.portfolios[id]; ok {
		p.UpdatedAt = updatedAt
	}
	return nil
}

func (r *PortfolioRepository) List(ctx context.Context, limit, offset int) ([]*domain.Portfolio, error) {
	if r.ListFunc != nil {
		return r.ListFunc(ctx, limit, offset)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var portfolios []*domain.Portfolio
	for _, p := range r.portfolios {
		portfolios = append(portfolios, p)
	}
	sort.Slice(portfolios, func(i, j int) bool { return portfolios[i].ID < portfolios[j].ID })
	return page(portfolios, limit, offset), nil
}

// OperationRepository is an in-memory usecase.OperationRepository. It keeps
// operations in insertion order.
type OperationRepository struct {
	mu  sync.RWMutex
	ops []domain.Operation

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error
	UpdateFunc          func(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error
	DeleteFunc          func(ctx context.Context, tx usecase.Transaction, portfolioID, id string) error
	ListByPortfolioFunc func(ctx context.Context, portfolioID string, limit, offset int) ([]*domain.Operation, error)
	ListForLedgerFunc   func(ctx context.Context, tx usecase.Transaction, portfolioID string) ([]domain.Operation, error)
	ListAllFunc         func(ctx context.Context) ([]domain.Operation, error)
}

func NewOperationRepository(ops ...domain.Operation) *OperationRepository {
	return &OperationRepository{ops: append([]domain.Operation(nil), ops...)}
}

func (r *OperationRepository) Create(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, op)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, *op)
	return nil
}

func (r *OperationRepository) Update(ctx context.Context, tx usecase.Transaction, op *domain.Operation) error {
	if r.UpdateFunc != nil {
		return r.UpdateFunc(ctx, tx, op)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ops {
		if r.ops[i].ID == op.ID {
			r.ops[i] = *op
			return nil
		}
	}
	return domain.ErrOperationNotFound
}

func (r *OperationRepository) Delete(ctx context.Context, tx usecase.Transaction, portfolioID, id string) error {
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, tx, portfolioID, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ops {
		if r.ops[i].ID == id && r.ops[i].PortfolioID == portfolioID {
			r.ops = append(r.ops[:i], r.ops[i+1:]...)
			return nil
		}
	}
	return domain.ErrOperationNotFound
}

func (r *OperationRepository) ListByPortfolio(ctx context.Context, portfolioID string, limit, offset int) ([]*domain.Operation, error) {
	if r.ListByPortfolioFunc != nil {
		return r.ListByPortfolioFunc(ctx, portfolioID, limit, offset)
	}
	sorted := domain.SortOperations(r.snapshot(portfolioID))
	ops := make([]*domain.Operation, len(sorted))
	for i := range sorted {
		ops[i] = &sorted[i]
	}
	return page(ops, limit, offset), nil
}

func (r *OperationRepository) ListForLedger(ctx context.Context, tx usecase.Transaction, portfolioID string) ([]domain.Operation, error) {
	if r.ListForLedgerFunc != nil {
		return r.ListForLedgerFunc(ctx, tx, portfolioID)
	}
	return r.snapshot(portfolioID), nil
}

func (r *OperationRepository) ListAll(ctx context.Context) ([]domain.Operation, error) {
	if r.ListAllFunc != nil {
		return r.ListAllFunc(ctx)
	}
	return r.snapshot(""), nil
}

// Operations returns everything stored, in insertion order.
func (r *OperationRepository) Operations() []domain.Operation {
	return r.snapshot("")
}

func (r *OperationRepository) snapshot(portfolioID string) []domain.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ops []domain.Operation
	for _, op := range r.ops {
		if portfolioID == "" || op.PortfolioID == portfolioID {
			ops = append(ops, op)
		}
	}
	return ops
}

// OutboxRepository records outbox events in memory.
type OutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if r.CreateFunc != nil {
		return r.CreateFunc(ctx, tx, event)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range r.events {
		if !e.Published {
			events = append(events, e)
		}
	}
	return page(events, limit, 0), nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (r *OutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range r.events {
		if e.AggregateType == aggregateType && e.AggregateID == aggregateID {
			events = append(events, e)
		}
	}
	return page(events, limit, offset), nil
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	for _, e := range r.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}

// Events returns the recorded events.
func (r *OutboxRepository) Events() []*domain.OutboxEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), r.events...)
}

// TransactionManager hands out Transactions that count their outcomes.
type TransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)

	mu        sync.Mutex
	Begun     int
	Committed int
}

func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

func (m *TransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Begun++
	return &Transaction{manager: m}, nil
}

// Transaction is a no-op usecase.Transaction.
type Transaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	manager *TransactionManager
	done    bool
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	if t.done {
		return nil
	}
	t.done = true
	if t.manager != nil {
		t.manager.mu.Lock()
		t.manager.Committed++
		t.manager.mu.Unlock()
	}
	return nil
}

func (t *Transaction) Rollback(ctx context.Context) error {
	if t.RollbackFunc != nil {
		return t.RollbackFunc(ctx)
	}
	t.done = true
	return nil
}

// IDGenerator yields lexically ordered IDs.
type IDGenerator struct {
	GenerateFunc func() string
	Prefix       string

	mu      sync.Mutex
	counter int
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{Prefix: "id"}
}

func (g *IDGenerator) Generate() string {
	if g.GenerateFunc != nil {
		return g.GenerateFunc()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%04d", g.Prefix, g.counter)
}

// Retrier runs the operation up to Attempts times while ShouldRetry
// reports the error as transient.
type Retrier struct {
	Attempts    int
	ShouldRetry func(err error) bool
}

func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if r.ShouldRetry == nil || !r.ShouldRetry(err) {
			return err
		}
	}
	return err
}

// ExchangeRateProvider returns a fixed rate or error.
type ExchangeRateProvider struct {
	Rate  *domain.ExchangeRate
	Err   error
	Calls int
}

func (p *ExchangeRateProvider) Current(ctx context.Context) (*domain.ExchangeRate, error) {
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Rate == nil {
		return nil, domain.ErrMissingExchangeRate
	}
	rate := *p.Rate
	return &rate, nil
}

// IdempotencyStore is an in-memory usecase.IdempotencyStore.
type IdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if s.CheckAndSetFunc != nil {
		return s.CheckAndSetFunc(ctx, key, response, ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		s.data[key] = response
	} else {
		s.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (s *IdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if s.UpdateFunc != nil {
		return s.UpdateFunc(ctx, key, response, ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = response
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if s.ReleaseFunc != nil {
		return s.ReleaseFunc(ctx, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Get returns the stored value for key.
func (s *IdempotencyStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
