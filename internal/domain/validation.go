package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidPortfolioName = errors.New("invalid portfolio name")
	ErrInvalidAssetSymbol   = errors.New("invalid asset symbol")
	ErrAmountTooLarge       = errors.New("amount exceeds maximum allowed")
	ErrAmountTooPrecise     = errors.New("amount has too many decimal places")
)

// Validation constants
const (
	MaxPortfolioNameLength = 255
	MinPortfolioNameLength = 1
	MaxAssetSymbolLength   = 20
	MaxOperationAmount     = "1000000000000" // 1 trillion
	MaxAmountDecimals      = 18              // NUMERIC(38,18)
)

var assetSymbolRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)

// ValidatePortfolioName validates portfolio name
func ValidatePortfolioName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) < MinPortfolioNameLength {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidPortfolioName)
	}

	if len(name) > MaxPortfolioNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidPortfolioName, MaxPortfolioNameLength)
	}

	dangerous := []string{"--", "/*", "*/", ";"}
	for _, pattern := range dangerous {
		if strings.Contains(name, pattern) {
			return fmt.Errorf("%w: contains forbidden characters", ErrInvalidPortfolioName)
		}
	}

	return nil
}

// ValidateAssetSymbol validates a normalized ticker such as GGAL, AAPL.BA or AL30D.
func ValidateAssetSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol cannot be empty", ErrInvalidAssetSymbol)
	}

	if len(symbol) > MaxAssetSymbolLength {
		return fmt.Errorf("%w: symbol exceeds %d characters", ErrInvalidAssetSymbol, MaxAssetSymbolLength)
	}

	if !assetSymbolRegex.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidAssetSymbol, symbol)
	}

	return nil
}

// ValidateAmount validates an operation quantity or unit price upper bound.
func ValidateAmount(amount decimal.Decimal) error {
	maxAmount, _ := decimal.NewFromString(MaxOperationAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxOperationAmount)
	}

	if !amount.Equal(amount.Truncate(MaxAmountDecimals)) {
		return fmt.Errorf("%w: at most %d are stored", ErrAmountTooPrecise, MaxAmountDecimals)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
