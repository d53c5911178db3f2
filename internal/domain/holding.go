package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the position derived from replaying one ledger partition.
// It is never persisted.
type Holding struct {
	PortfolioID string
	AssetSymbol string
	Currency    Currency
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
}

// CostBasis returns quantity * average cost in the holding currency.
func (h Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AverageCost)
}

// IsClosed reports whether nothing is held.
func (h Holding) IsClosed() bool {
	return !h.Quantity.IsPositive()
}

// Apply returns the holding after op. Buys move the weighted average
// cost; sells only reduce quantity. A sell past zero clamps to zero, and
// a buy that leaves nothing held keeps the previous average.
func (h Holding) Apply(op Operation) Holding {
	if h.AssetSymbol == "" {
		h.PortfolioID = op.PortfolioID
		h.AssetSymbol = op.AssetSymbol
		h.Currency = op.Currency
	}

	switch op.Kind {
	case OperationBuy:
		newQty := h.Quantity.Add(op.Quantity)
		if newQty.IsPositive() {
			h.AverageCost = h.Quantity.Mul(h.AverageCost).Add(op.Total()).Div(newQty)
		}
		h.Quantity = newQty

	case OperationSell:
		h.Quantity = h.Quantity.Sub(op.Quantity)
		if h.Quantity.IsNegative() {
			h.Quantity = decimal.Zero
		}
	}

	return h
}

// ComputeHolding replays chronologically sorted operations of a single
// partition. Input is assumed to have passed ValidateMutation.
func ComputeHolding(sorted []Operation) Holding {
	h := Holding{Quantity: decimal.Zero, AverageCost: decimal.Zero}
	for _, op := range sorted {
		h = h.Apply(op)
	}
	return h
}

// HoldingAt computes the holding over the operations executed at or
// before at.
func HoldingAt(ops []Operation, at time.Time) Holding {
	var prefix []Operation
	for _, op := range SortOperations(ops) {
		if op.ExecutedAt.After(at) {
			break
		}
		prefix = append(prefix, op)
	}
	return ComputeHolding(prefix)
}

// ComputeHoldings returns one holding per ledger partition, ordered by
// portfolio and asset. Closed positions are included.
func ComputeHoldings(l *Ledger) []Holding {
	keys := l.Partitions()
	holdings := make([]Holding, 0, len(keys))

	for _, key := range keys {
		holdings = append(holdings, ComputeHolding(l.OperationsFor(key.PortfolioID, key.AssetSymbol)))
	}

	return holdings
}

// ComputeHoldingsAt is ComputeHoldings over the prefix ending at at.
// Partitions with no operations before at are omitted.
func ComputeHoldingsAt(l *Ledger, at time.Time) []Holding {
	var holdings []Holding

	for _, key := range l.Partitions() {
		h := HoldingAt(l.OperationsFor(key.PortfolioID, key.AssetSymbol), at)
		if h.AssetSymbol == "" {
			continue
		}
		holdings = append(holdings, h)
	}

	return holdings
}
