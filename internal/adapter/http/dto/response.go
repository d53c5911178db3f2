package dto

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// NegativeHoldingDetails describes where a ledger would go negative.
func NegativeHoldingDetails(err error) map[string]any {
	var negErr *domain.NegativeHoldingError
	if !errors.As(err, &negErr) {
		return nil
	}
	return map[string]any{
		"asset_symbol": negErr.AssetSymbol,
		"operation_id": negErr.OperationID,
		"date":         negErr.At.Format(time.DateOnly),
		"shortfall":    negErr.Shortfall.String(),
	}
}

// PortfolioResponse represents a portfolio in API responses.
type PortfolioResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PortfolioFromDomain converts domain portfolio to response.
func PortfolioFromDomain(p *domain.Portfolio) *PortfolioResponse {
	return &PortfolioResponse{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ListPortfoliosResponse represents a list of portfolios.
type ListPortfoliosResponse struct {
	Portfolios []*PortfolioResponse `json:"portfolios"`
	Total      int64                `json:"total"`
}

// PortfoliosFromDomain converts domain portfolios to responses.
func PortfoliosFromDomain(portfolios []*domain.Portfolio) []*PortfolioResponse {
	result := make([]*PortfolioResponse, len(portfolios))
	for i, p := range portfolios {
		result[i] = PortfolioFromDomain(p)
	}
	return result
}

// OperationResponse represents an operation in API responses.
type OperationResponse struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	AssetSymbol string          `json:"asset_symbol"`
	Kind        string          `json:"kind"`
	Currency    string          `json:"currency"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	ExecutedAt  time.Time       `json:"executed_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OperationFromDomain converts domain operation to response.
func OperationFromDomain(op *domain.Operation) *OperationResponse {
	return &OperationResponse{
		ID:          op.ID,
		PortfolioID: op.PortfolioID,
		AssetSymbol: op.AssetSymbol,
		Kind:        string(op.Kind),
		Currency:    string(op.Currency),
		Quantity:    op.Quantity,
		UnitPrice:   op.UnitPrice,
		Total:       op.Total(),
		ExecutedAt:  op.ExecutedAt,
		CreatedAt:   op.CreatedAt,
	}
}

// ToDomain converts the response back to a domain operation.
func (r *OperationResponse) ToDomain() domain.Operation {
	return domain.Operation{
		ID:          r.ID,
		PortfolioID: r.PortfolioID,
		AssetSymbol: r.AssetSymbol,
		Kind:        domain.OperationKind(r.Kind),
		Currency:    domain.Currency(r.Currency),
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		ExecutedAt:  r.ExecutedAt,
		CreatedAt:   r.CreatedAt,
	}
}

// ListOperationsResponse represents a page of operations.
type ListOperationsResponse struct {
	Operations []*OperationResponse `json:"operations"`
	Total      int64                `json:"total"`
}

// OperationsFromDomain converts domain operations to responses.
func OperationsFromDomain(ops []*domain.Operation) []*OperationResponse {
	result := make([]*OperationResponse, len(ops))
	for i, op := range ops {
		result[i] = OperationFromDomain(op)
	}
	return result
}

// HoldingResponse represents a position.
type HoldingResponse struct {
	AssetSymbol string          `json:"asset_symbol"`
	Currency    string          `json:"currency"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	CostBasis   decimal.Decimal `json:"cost_basis"`
}

// HoldingFromDomain converts a domain holding to response.
func HoldingFromDomain(h domain.Holding) HoldingResponse {
	return HoldingResponse{
		AssetSymbol: h.AssetSymbol,
		Currency:    string(h.Currency),
		Quantity:    h.Quantity,
		AverageCost: h.AverageCost,
		CostBasis:   h.CostBasis(),
	}
}

// HoldingsResponse lists the positions of a portfolio.
type HoldingsResponse struct {
	PortfolioID string            `json:"portfolio_id"`
	At          *time.Time        `json:"at,omitempty"`
	Holdings    []HoldingResponse `json:"holdings"`
}

// HoldingsFromDomain converts domain holdings to a response.
func HoldingsFromDomain(portfolioID string, at *time.Time, holdings []domain.Holding) HoldingsResponse {
	resp := HoldingsResponse{
		PortfolioID: portfolioID,
		At:          at,
		Holdings:    make([]HoldingResponse, len(holdings)),
	}
	for i, h := range holdings {
		resp.Holdings[i] = HoldingFromDomain(h)
	}
	return resp
}

// ExchangeRateResponse represents the ARS/USD quote.
type ExchangeRateResponse struct {
	Buy       decimal.Decimal `json:"buy"`
	Sell      decimal.Decimal `json:"sell"`
	Spread    decimal.Decimal `json:"spread"`
	FetchedAt time.Time       `json:"fetched_at"`
	Source    string          `json:"source,omitempty"`
	Stale     bool            `json:"stale"`
}

// ExchangeRateFromDomain converts a domain rate to response.
func ExchangeRateFromDomain(r *domain.ExchangeRate) *ExchangeRateResponse {
	if r == nil {
		return nil
	}
	return &ExchangeRateResponse{
		Buy:       r.Buy,
		Sell:      r.Sell,
		Spread:    r.Spread(),
		FetchedAt: r.FetchedAt,
		Source:    r.Source,
		Stale:     r.Stale,
	}
}

// PositionResponse is one valued position.
type PositionResponse struct {
	AssetSymbol       string          `json:"asset_symbol"`
	Currency          string          `json:"currency"`
	CostCurrency      string          `json:"cost_currency"`
	Quantity          decimal.Decimal `json:"quantity"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	Gain              decimal.Decimal `json:"gain"`
	GainPct           decimal.Decimal `json:"gain_pct"`
	ValueARS          decimal.Decimal `json:"value_ars"`
	ValueUSD          decimal.Decimal `json:"value_usd"`
	CostBasisARS      decimal.Decimal `json:"cost_basis_ars"`
	CostBasisUSD      decimal.Decimal `json:"cost_basis_usd"`
	GainARS           decimal.Decimal `json:"gain_ars"`
	GainUSD           decimal.Decimal `json:"gain_usd"`
	PortfolioSharePct decimal.Decimal `json:"portfolio_share_pct"`
}

// ValuationResponse represents a valued portfolio.
type ValuationResponse struct {
	PortfolioID   string                `json:"portfolio_id"`
	Positions     []PositionResponse    `json:"positions"`
	TotalValueARS decimal.Decimal       `json:"total_value_ars"`
	TotalValueUSD decimal.Decimal       `json:"total_value_usd"`
	TotalGainARS  decimal.Decimal       `json:"total_gain_ars"`
	TotalGainUSD  decimal.Decimal       `json:"total_gain_usd"`
	Rate          *ExchangeRateResponse `json:"rate,omitempty"`
	NativeOnly    bool                  `json:"native_only"`
	Warning       string                `json:"warning,omitempty"`
}

// ValuationFromDomain converts a valued portfolio to response.
func ValuationFromDomain(portfolioID string, v *domain.ValuedPortfolio) ValuationResponse {
	resp := ValuationResponse{
		PortfolioID:   portfolioID,
		Positions:     make([]PositionResponse, len(v.Positions)),
		TotalValueARS: v.TotalValueARS,
		TotalValueUSD: v.TotalValueUSD,
		TotalGainARS:  v.TotalGainARS,
		TotalGainUSD:  v.TotalGainUSD,
		Rate:          ExchangeRateFromDomain(v.Rate),
		NativeOnly:    v.NativeOnly,
	}
	for i, p := range v.Positions {
		resp.Positions[i] = PositionResponse{
			AssetSymbol:       p.AssetSymbol,
			Currency:          string(p.Currency),
			CostCurrency:      string(p.CostCurrency),
			Quantity:          p.Quantity,
			AverageCost:       p.AverageCost,
			CostBasis:         p.CostBasis,
			CurrentValue:      p.CurrentValue,
			Gain:              p.Gain,
			GainPct:           p.GainPct,
			ValueARS:          p.ValueARS,
			ValueUSD:          p.ValueUSD,
			CostBasisARS:      p.CostBasisARS,
			CostBasisUSD:      p.CostBasisUSD,
			GainARS:           p.GainARS,
			GainUSD:           p.GainUSD,
			PortfolioSharePct: p.PortfolioSharePct,
		}
	}
	return resp
}

// PreviewResponse reports whether a mutation would be accepted.
type PreviewResponse struct {
	Valid   bool             `json:"valid"`
	Error   string           `json:"error,omitempty"`
	Details map[string]any   `json:"details,omitempty"`
	Holding *HoldingResponse `json:"holding,omitempty"`
}

// PreviewFromUseCase converts a preview result to response.
func PreviewFromUseCase(r *usecase.PreviewResult) PreviewResponse {
	if !r.Valid {
		return PreviewResponse{
			Valid:   false,
			Error:   r.Err.Error(),
			Details: NegativeHoldingDetails(r.Err),
		}
	}
	h := HoldingFromDomain(r.Holding)
	return PreviewResponse{Valid: true, Holding: &h}
}

// ViolationResponse is one inconsistent partition.
type ViolationResponse struct {
	PortfolioID string          `json:"portfolio_id"`
	AssetSymbol string          `json:"asset_symbol"`
	OperationID string          `json:"operation_id"`
	At          time.Time       `json:"at"`
	Shortfall   decimal.Decimal `json:"shortfall"`
	Reason      string          `json:"reason"`
}

// ConsistencyReportResponse represents a reconciliation report.
type ConsistencyReportResponse struct {
	CheckedAt  time.Time           `json:"checked_at"`
	Consistent bool                `json:"consistent"`
	Partitions int                 `json:"partitions"`
	Operations int                 `json:"operations"`
	Violations []ViolationResponse `json:"violations"`
}

// ConsistencyReportFromUseCase converts a report to response.
func ConsistencyReportFromUseCase(r *usecase.ConsistencyReport) ConsistencyReportResponse {
	resp := ConsistencyReportResponse{
		CheckedAt:  r.CheckedAt,
		Consistent: r.Consistent,
		Partitions: r.Partitions,
		Operations: r.Operations,
		Violations: make([]ViolationResponse, len(r.Violations)),
	}
	for i, v := range r.Violations {
		resp.Violations[i] = ViolationResponse{
			PortfolioID: v.PortfolioID,
			AssetSymbol: v.AssetSymbol,
			OperationID: v.OperationID,
			At:          v.At,
			Shortfall:   v.Shortfall,
			Reason:      v.Reason,
		}
	}
	return resp
}
