package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goportfolio/internal/adapter/http/dto"
	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
)

// PortfolioService defines the behavior needed by PortfolioHandler.
type PortfolioService interface {
	CreatePortfolio(ctx context.Context, input usecase.CreatePortfolioInput) (*domain.Portfolio, error)
	GetPortfolio(ctx context.Context, id string) (*domain.Portfolio, error)
	ListPortfolios(ctx context.Context, input usecase.ListPortfoliosInput) ([]*domain.Portfolio, error)
}

// PortfolioHandler handles portfolio-related HTTP requests.
type PortfolioHandler struct {
	portfolioUC PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioUC PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioUC: portfolioUC}
}

// Create creates a new portfolio.
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	portfolio, err := h.portfolioUC.CreatePortfolio(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, "failed to create portfolio", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PortfolioFromDomain(portfolio))
}

// Get retrieves a portfolio by ID.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing portfolio ID", "")
		return
	}

	portfolio, err := h.portfolioUC.GetPortfolio(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, "failed to get portfolio", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PortfolioFromDomain(portfolio))
}

// List lists portfolios.
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.portfolioUC.ListPortfolios(r.Context(), usecase.ListPortfoliosInput{
		Limit:  parseIntQuery(r, "limit", 20),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, "failed to list portfolios", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListPortfoliosResponse{
		Portfolios: dto.PortfoliosFromDomain(portfolios),
		Total:      int64(len(portfolios)),
	})
}
