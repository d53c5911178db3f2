package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goportfolio/internal/adapter/http/dto"
	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/infrastructure/logger"
	"github.com/iho/goportfolio/internal/usecase"
)

// HoldingService defines the behavior needed by HoldingHandler.
type HoldingService interface {
	GetHoldings(ctx context.Context, portfolioID string, at *time.Time) ([]domain.Holding, error)
	ValuePortfolio(ctx context.Context, input usecase.ValuationInput) (*domain.ValuedPortfolio, error)
	CurrentRate(ctx context.Context) (*domain.ExchangeRate, error)
}

// HoldingHandler serves holdings, valuations and the exchange rate.
type HoldingHandler struct {
	holdingUC HoldingService
}

// NewHoldingHandler creates a new HoldingHandler.
func NewHoldingHandler(holdingUC HoldingService) *HoldingHandler {
	return &HoldingHandler{holdingUC: holdingUC}
}

// Holdings returns the positions of a portfolio, optionally as of ?at=.
func (h *HoldingHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	at, err := parseTimeQuery(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	portfolioID := chi.URLParam(r, "id")
	holdings, err := h.holdingUC.GetHoldings(r.Context(), portfolioID, at)
	if err != nil {
		writeDomainError(w, r, "failed to compute holdings", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HoldingsFromDomain(portfolioID, at, holdings))
}

// Valuation values the portfolio at caller-supplied prices. Without an
// exchange rate the native-only figures are returned with a warning.
func (h *HoldingHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	var req dto.ValuationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	portfolioID := chi.URLParam(r, "id")
	input, err := req.ToUseCaseInput(portfolioID)
	if err != nil {
		writeDomainError(w, r, "invalid prices", err)
		return
	}

	valued, err := h.holdingUC.ValuePortfolio(r.Context(), input)
	if err != nil && !(errors.Is(err, domain.ErrMissingExchangeRate) && valued != nil) {
		writeDomainError(w, r, "failed to value portfolio", err)
		return
	}

	resp := dto.ValuationFromDomain(portfolioID, valued)
	if err != nil {
		logger.FromContext(r.Context()).Warn().Err(err).Str("portfolio_id", portfolioID).Msg("valuation without exchange rate")
		resp.Warning = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

// Rate returns the current ARS/USD quote.
func (h *HoldingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.holdingUC.CurrentRate(r.Context())
	if err != nil {
		writeDomainError(w, r, "exchange rate unavailable", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExchangeRateFromDomain(rate))
}
