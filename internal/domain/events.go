package domain

import "time"

// Event types
const (
	EventTypeOperationCreated = "operation.created"
	EventTypeOperationUpdated = "operation.updated"
	EventTypeOperationDeleted = "operation.deleted"
	EventTypePortfolioCreated = "portfolio.created"
)

// Aggregate types
const (
	AggregateTypeOperation = "operation"
	AggregateTypePortfolio = "portfolio"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// OperationEvent payload
type OperationEvent struct {
	OperationID string `json:"operation_id"`
	PortfolioID string `json:"portfolio_id"`
	AssetSymbol string `json:"asset_symbol"`
	Kind        string `json:"kind"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Currency    string `json:"currency"`
	ExecutedAt  string `json:"executed_at"`
	// HoldingQuantity is the partition quantity after the mutation.
	HoldingQuantity string `json:"holding_quantity"`
}

// PortfolioCreatedEvent payload
type PortfolioCreatedEvent struct {
	PortfolioID string `json:"portfolio_id"`
	Name        string `json:"name"`
	OwnerID     string `json:"owner_id"`
}

// NewOperationEvent builds the payload for an operation event.
func NewOperationEvent(op Operation, holding Holding) OperationEvent {
	return OperationEvent{
		OperationID:     op.ID,
		PortfolioID:     op.PortfolioID,
		AssetSymbol:     op.AssetSymbol,
		Kind:            string(op.Kind),
		Quantity:        op.Quantity.String(),
		UnitPrice:       op.UnitPrice.String(),
		Currency:        string(op.Currency),
		ExecutedAt:      op.ExecutedAt.UTC().Format(time.RFC3339),
		HoldingQuantity: holding.Quantity.String(),
	}
}

// Map converts the payload into the generic outbox shape.
func (e OperationEvent) Map() map[string]any {
	return map[string]any{
		"operation_id":     e.OperationID,
		"portfolio_id":     e.PortfolioID,
		"asset_symbol":     e.AssetSymbol,
		"kind":             e.Kind,
		"quantity":         e.Quantity,
		"unit_price":       e.UnitPrice,
		"currency":         e.Currency,
		"executed_at":      e.ExecutedAt,
		"holding_quantity": e.HoldingQuantity,
	}
}
