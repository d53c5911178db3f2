package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// Operation errors
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("unit price must be positive")
	ErrInvalidKind        = errors.New("operation kind must be BUY or SELL")
	ErrOperationNotFound  = errors.New("operation not found")
	ErrNegativeHolding    = errors.New("operation would leave a negative holding")
	ErrUnknownAsset       = errors.New("asset is not part of this ledger")
	ErrCurrencyMismatch   = errors.New("operation currency differs from the asset ledger currency")
	ErrEmptyPatch         = errors.New("edit must change at least one field")
	ErrDuplicateOperation = errors.New("operation already exists")

	// Portfolio errors
	ErrPortfolioNotFound = errors.New("portfolio not found")

	// Currency errors
	ErrInvalidCurrency     = errors.New("currency must be ARS or USD")
	ErrInvalidExchangeRate = errors.New("exchange rate must have positive buy and sell quotes")
	ErrMissingExchangeRate = errors.New("exchange rate not available")
	ErrMissingPrice        = errors.New("live price not available for asset")

	// Pending mutation errors
	ErrInvalidTransition = errors.New("invalid pending mutation transition")
)

// NegativeHoldingError reports the first point in time at which replaying a
// ledger partition drives the held quantity below zero.
type NegativeHoldingError struct {
	PortfolioID string
	AssetSymbol string
	OperationID string
	At          time.Time
	Shortfall   decimal.Decimal
}

func (e *NegativeHoldingError) Error() string {
	return fmt.Sprintf("%s: selling %s on %s exceeds holdings by %s",
		ErrNegativeHolding, e.AssetSymbol, e.At.Format(time.DateOnly), e.Shortfall)
}

// Is lets errors.Is match ErrNegativeHolding.
func (e *NegativeHoldingError) Is(target error) bool {
	return target == ErrNegativeHolding
}
