package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mutation is a pending change to a ledger. The set of implementations is
// closed: CreateMutation, EditMutation and DeleteMutation.
type Mutation interface {
	isMutation()
}

// CreateMutation adds a new operation.
type CreateMutation struct {
	Operation Operation
}

// EditMutation changes fields of an existing operation. Nil patch fields
// keep their current value, including the original timestamp.
type EditMutation struct {
	ID    string
	Patch OperationPatch
}

// DeleteMutation removes an operation.
type DeleteMutation struct {
	ID string
}

func (CreateMutation) isMutation() {}
func (EditMutation) isMutation()   {}
func (DeleteMutation) isMutation() {}

// OperationPatch holds the proposed fields of an edit.
type OperationPatch struct {
	AssetSymbol *string
	Kind        *OperationKind
	Currency    *Currency
	Quantity    *decimal.Decimal
	UnitPrice   *decimal.Decimal
	ExecutedAt  *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p OperationPatch) IsEmpty() bool {
	return p.AssetSymbol == nil && p.Kind == nil && p.Currency == nil &&
		p.Quantity == nil && p.UnitPrice == nil && p.ExecutedAt == nil
}

// Apply returns a copy of op with the patch applied.
func (p OperationPatch) Apply(op Operation) Operation {
	if p.AssetSymbol != nil {
		op.AssetSymbol = NormalizeAssetSymbol(*p.AssetSymbol)
	}
	if p.Kind != nil {
		op.Kind = *p.Kind
	}
	if p.Currency != nil {
		op.Currency = *p.Currency
	}
	if p.Quantity != nil {
		op.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		op.UnitPrice = *p.UnitPrice
	}
	if p.ExecutedAt != nil {
		op.ExecutedAt = *p.ExecutedAt
	}
	return op
}

// MutationKind names a mutation for logs, metrics and outbox events.
func MutationKind(m Mutation) string {
	switch m.(type) {
	case CreateMutation:
		return "create"
	case EditMutation:
		return "edit"
	case DeleteMutation:
		return "delete"
	default:
		return "unknown"
	}
}
