package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/goportfolio/internal/domain"
)

var outboxColumns = []string{
	"id", "aggregate_id", "aggregate_type", "event_type", "payload",
	"created_at", "published_at", "published",
}

func TestOutboxRepository_CreateRequiresTx(t *testing.T) {
	pool := newMockPool(t)
	repo := NewOutboxRepository(pool)

	err := repo.Create(context.Background(), nil, &domain.OutboxEvent{ID: "ev-1"})
	if !errors.Is(err, errOutboxWithoutTx) {
		t.Fatalf("expected errOutboxWithoutTx, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestOutboxRepository_CreateInTx(t *testing.T) {
	pool := newMockPool(t)
	ts := timeToPgTimestamptz(testTime)

	pool.ExpectBegin()
	pool.ExpectQuery("INSERT INTO outbox_events").
		WithArgs("ev-1", "op-1", domain.AggregateTypeOperation, domain.EventTypeOperationCreated,
			[]byte(`{"holding_quantity":"4"}`), ts, false).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow("ev-1", "op-1", domain.AggregateTypeOperation, domain.EventTypeOperationCreated,
				[]byte(`{"holding_quantity":"4"}`), ts, pgtype.Timestamptz{}, false))
	pool.ExpectCommit()

	tx, err := NewTxManager(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = NewOutboxRepository(pool).Create(context.Background(), tx, &domain.OutboxEvent{
		ID:            "ev-1",
		AggregateID:   "op-1",
		AggregateType: domain.AggregateTypeOperation,
		EventType:     domain.EventTypeOperationCreated,
		Payload:       map[string]any{"holding_quantity": "4"},
		CreatedAt:     testTime,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	assertExpectations(t, pool)
}

func TestOutboxRepository_GetUnpublished(t *testing.T) {
	pool := newMockPool(t)
	ts := timeToPgTimestamptz(testTime)

	pool.ExpectQuery("SELECT (.+) FROM outbox_events").
		WithArgs(int32(10)).
		WillReturnRows(pgxmock.NewRows(outboxColumns).
			AddRow("ev-1", "pf-1", domain.AggregateTypePortfolio, domain.EventTypePortfolioCreated,
				[]byte(`{"name":"main"}`), ts, pgtype.Timestamptz{}, false).
			AddRow("ev-2", "op-1", domain.AggregateTypeOperation, domain.EventTypeOperationDeleted,
				[]byte(`not json`), ts, ts, true))

	events, err := NewOutboxRepository(pool).GetUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	if events[0].Payload["name"] != "main" || events[0].PublishedAt != nil {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Payload["raw"] != "not json" {
		t.Errorf("expected raw payload kept, got %+v", events[1].Payload)
	}
	if events[1].PublishedAt == nil || !events[1].PublishedAt.Equal(testTime) {
		t.Errorf("expected published_at %s, got %v", testTime, events[1].PublishedAt)
	}

	assertExpectations(t, pool)
}
