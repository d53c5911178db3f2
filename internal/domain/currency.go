package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is one of the two currencies a portfolio is tracked in.
type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate checks the currency is supported.
func (c Currency) Validate() error {
	switch c {
	case CurrencyARS, CurrencyUSD:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, string(c))
	}
}

// Other returns the opposite currency.
func (c Currency) Other() Currency {
	if c == CurrencyUSD {
		return CurrencyARS
	}
	return CurrencyUSD
}

// ExchangeRate is a pair of ARS-per-USD quotes with a bid/ask spread.
// Buy is what the market pays for a dollar, Sell is what it charges for one.
type ExchangeRate struct {
	Buy       decimal.Decimal
	Sell      decimal.Decimal
	FetchedAt time.Time
	Source    string
	Stale     bool
}

// Validate checks both quotes are positive.
func (r ExchangeRate) Validate() error {
	if !r.Buy.IsPositive() || !r.Sell.IsPositive() {
		return ErrInvalidExchangeRate
	}
	return nil
}

// Spread returns Sell - Buy.
func (r ExchangeRate) Spread() decimal.Decimal {
	return r.Sell.Sub(r.Buy)
}

// ToOtherCurrency converts amount out of from into the other currency.
// ARS to USD divides by the sell quote (cost of acquiring dollars);
// USD to ARS multiplies by the buy quote (what dollars fetch back).
// A round trip therefore loses the spread.
func ToOtherCurrency(amount decimal.Decimal, from Currency, rate ExchangeRate) decimal.Decimal {
	if from == CurrencyARS {
		return amount.Div(rate.Sell)
	}
	return amount.Mul(rate.Buy)
}

// Convert converts amount from one currency to another. Same-currency
// conversions are the identity and never touch the rate.
func Convert(amount decimal.Decimal, from, to Currency, rate ExchangeRate) decimal.Decimal {
	if from == to {
		return amount
	}
	return ToOtherCurrency(amount, from, rate)
}
