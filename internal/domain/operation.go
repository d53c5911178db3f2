package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OperationKind is the direction of a trade.
type OperationKind string

const (
	OperationBuy  OperationKind = "BUY"
	OperationSell OperationKind = "SELL"
)

// ParseOperationKind normalizes and validates an operation kind.
func ParseOperationKind(s string) (OperationKind, error) {
	k := OperationKind(strings.ToUpper(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// Validate checks the kind is BUY or SELL.
func (k OperationKind) Validate() error {
	switch k {
	case OperationBuy, OperationSell:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// TimestampPrecision is the resolution operation times are stored at.
const TimestampPrecision = time.Microsecond

// NormalizeTimestamp returns t in UTC at storage precision. Ordering must
// be decided on the same instant that is persisted.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampPrecision)
}

// Operation is a single buy or sell of an asset inside a portfolio.
type Operation struct {
	ExecutedAt  time.Time
	CreatedAt   time.Time
	ID          string
	PortfolioID string
	AssetSymbol string
	Kind        OperationKind
	Currency    Currency
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// PartitionKey identifies the ledger an operation belongs to.
type PartitionKey struct {
	PortfolioID string
	AssetSymbol string
}

// Partition returns the operation's ledger partition.
func (o *Operation) Partition() PartitionKey {
	return PartitionKey{PortfolioID: o.PortfolioID, AssetSymbol: o.AssetSymbol}
}

// Validate checks the operation fields independent of any history.
func (o *Operation) Validate() error {
	if !o.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}

	if !o.UnitPrice.IsPositive() {
		return ErrInvalidPrice
	}

	if err := ValidateAmount(o.Quantity); err != nil {
		return err
	}

	if err := ValidateAmount(o.UnitPrice); err != nil {
		return err
	}

	if err := o.Kind.Validate(); err != nil {
		return err
	}

	if err := o.Currency.Validate(); err != nil {
		return err
	}

	return ValidateAssetSymbol(o.AssetSymbol)
}

// SignedQuantity returns +quantity for buys and -quantity for sells.
func (o *Operation) SignedQuantity() decimal.Decimal {
	if o.Kind == OperationSell {
		return o.Quantity.Neg()
	}
	return o.Quantity
}

// Total returns quantity * unit price.
func (o *Operation) Total() decimal.Decimal {
	return o.Quantity.Mul(o.UnitPrice)
}

// NormalizeAssetSymbol upper-cases and trims a ticker.
func NormalizeAssetSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
