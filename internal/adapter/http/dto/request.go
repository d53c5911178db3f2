package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
)

// Mutation actions accepted by the validate endpoint.
const (
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// CreatePortfolioRequest represents a request to create a portfolio.
type CreatePortfolioRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePortfolioRequest) ToUseCaseInput() usecase.CreatePortfolioInput {
	return usecase.CreatePortfolioInput{
		Name:    r.Name,
		OwnerID: r.OwnerID,
	}
}

// CreateOperationRequest represents a request to record a buy or sell.
type CreateOperationRequest struct {
	AssetSymbol string          `json:"asset_symbol"`
	Kind        string          `json:"kind"`
	Currency    string          `json:"currency"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ExecutedAt  *time.Time      `json:"executed_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateOperationRequest) ToUseCaseInput(portfolioID string) usecase.CreateOperationInput {
	return usecase.CreateOperationInput{
		PortfolioID: portfolioID,
		AssetSymbol: r.AssetSymbol,
		Kind:        r.Kind,
		Currency:    r.Currency,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		ExecutedAt:  r.ExecutedAt,
	}
}

// PatchOperationRequest carries the fields of an edit. Omitted fields keep
// their stored value.
type PatchOperationRequest struct {
	AssetSymbol *string          `json:"asset_symbol,omitempty"`
	Kind        *string          `json:"kind,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	ExecutedAt  *time.Time       `json:"executed_at,omitempty"`
}

// ToPatch parses the request into a domain patch.
func (r *PatchOperationRequest) ToPatch() (domain.OperationPatch, error) {
	patch := domain.OperationPatch{
		AssetSymbol: r.AssetSymbol,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
	}

	if r.Kind != nil {
		kind, err := domain.ParseOperationKind(*r.Kind)
		if err != nil {
			return domain.OperationPatch{}, err
		}
		patch.Kind = &kind
	}

	if r.Currency != nil {
		currency, err := domain.ParseCurrency(*r.Currency)
		if err != nil {
			return domain.OperationPatch{}, err
		}
		patch.Currency = &currency
	}

	if r.ExecutedAt != nil {
		at := domain.NormalizeTimestamp(*r.ExecutedAt)
		patch.ExecutedAt = &at
	}

	return patch, nil
}

// ValidateMutationRequest asks whether a mutation would be accepted.
type ValidateMutationRequest struct {
	Action      string                  `json:"action"`
	OperationID string                  `json:"operation_id,omitempty"`
	Operation   *CreateOperationRequest `json:"operation,omitempty"`
	Patch       *PatchOperationRequest  `json:"patch,omitempty"`
}

// ToMutation builds the domain mutation for portfolioID.
func (r *ValidateMutationRequest) ToMutation(portfolioID string, now time.Time) (domain.Mutation, error) {
	switch strings.ToLower(strings.TrimSpace(r.Action)) {
	case ActionCreate:
		if r.Operation == nil {
			return nil, fmt.Errorf("operation is required for %q", ActionCreate)
		}
		op, err := usecase.BuildOperation(r.Operation.ToUseCaseInput(portfolioID), now)
		if err != nil {
			return nil, err
		}
		return domain.CreateMutation{Operation: op}, nil

	case ActionEdit:
		if r.OperationID == "" || r.Patch == nil {
			return nil, fmt.Errorf("operation_id and patch are required for %q", ActionEdit)
		}
		patch, err := r.Patch.ToPatch()
		if err != nil {
			return nil, err
		}
		return domain.EditMutation{ID: r.OperationID, Patch: patch}, nil

	case ActionDelete:
		if r.OperationID == "" {
			return nil, fmt.Errorf("operation_id is required for %q", ActionDelete)
		}
		return domain.DeleteMutation{ID: r.OperationID}, nil
	}

	return nil, fmt.Errorf("unknown action %q", r.Action)
}

// PriceRequest is a caller-supplied live price.
type PriceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	// Currency defaults to the holding's currency.
	Currency string `json:"currency,omitempty"`
}

// ValuationRequest represents a request to value a portfolio.
type ValuationRequest struct {
	Prices map[string]PriceRequest `json:"prices"`
}

// ToUseCaseInput converts to use case input. Symbols are normalized the same
// way operations are.
func (r *ValuationRequest) ToUseCaseInput(portfolioID string) (usecase.ValuationInput, error) {
	prices := make(map[string]domain.LivePrice, len(r.Prices))
	for symbol, p := range r.Prices {
		price := domain.LivePrice{Amount: p.Amount}
		if p.Currency != "" {
			currency, err := domain.ParseCurrency(p.Currency)
			if err != nil {
				return usecase.ValuationInput{}, err
			}
			price.Currency = currency
		}
		if p.Amount.IsNegative() {
			return usecase.ValuationInput{}, fmt.Errorf("%w: price of %s", domain.ErrInvalidPrice, symbol)
		}
		prices[domain.NormalizeAssetSymbol(symbol)] = price
	}

	return usecase.ValuationInput{PortfolioID: portfolioID, Prices: prices}, nil
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
