package handler

import (
	"context"
	"net/http"

	"github.com/iho/goportfolio/internal/adapter/http/dto"
	"github.com/iho/goportfolio/internal/usecase"
)

// ReconciliationService defines the behavior needed by LedgerHandler.
type ReconciliationService interface {
	CheckLedgerConsistency(ctx context.Context) (*usecase.ConsistencyReport, error)
	ReconcilePortfolio(ctx context.Context, portfolioID string) (*usecase.ConsistencyReport, error)
}

// LedgerHandler handles ledger-wide checks.
type LedgerHandler struct {
	reconciliationUC ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reconciliationUC ReconciliationService) *LedgerHandler {
	return &LedgerHandler{reconciliationUC: reconciliationUC}
}

// Consistency replays the stored ledger and reports every partition that
// goes negative. ?portfolio_id= narrows the check to one portfolio.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	var (
		report *usecase.ConsistencyReport
		err    error
	)

	if portfolioID := r.URL.Query().Get("portfolio_id"); portfolioID != "" {
		report, err = h.reconciliationUC.ReconcilePortfolio(r.Context(), portfolioID)
	} else {
		report, err = h.reconciliationUC.CheckLedgerConsistency(r.Context())
	}
	if err != nil {
		writeDomainError(w, r, "failed to check ledger consistency", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyReportFromUseCase(report))
}
