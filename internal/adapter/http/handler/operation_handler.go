package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goportfolio/internal/adapter/http/dto"
	"github.com/iho/goportfolio/internal/domain"
	"github.com/iho/goportfolio/internal/usecase"
)

// OperationService defines the behavior needed by OperationHandler.
type OperationService interface {
	CreateOperation(ctx context.Context, input usecase.CreateOperationInput) (*domain.Operation, error)
	EditOperation(ctx context.Context, input usecase.EditOperationInput) (*domain.Operation, error)
	DeleteOperation(ctx context.Context, portfolioID, operationID string) error
	ListOperations(ctx context.Context, input usecase.ListOperationsInput) ([]*domain.Operation, error)
	PreviewMutation(ctx context.Context, portfolioID string, m domain.Mutation) (*usecase.PreviewResult, error)
}

// OperationHandler handles operation-related HTTP requests.
type OperationHandler struct {
	operationUC OperationService
	now         func() time.Time
}

// NewOperationHandler creates a new OperationHandler.
func NewOperationHandler(operationUC OperationService) *OperationHandler {
	return &OperationHandler{operationUC: operationUC, now: time.Now}
}

// Create records a buy or sell.
func (h *OperationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOperationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	op, err := h.operationUC.CreateOperation(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, r, "failed to create operation", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.OperationFromDomain(op))
}

// List lists the operations of a portfolio in execution order.
func (h *OperationHandler) List(w http.ResponseWriter, r *http.Request) {
	ops, err := h.operationUC.ListOperations(r.Context(), usecase.ListOperationsInput{
		PortfolioID: chi.URLParam(r, "id"),
		Limit:       parseIntQuery(r, "limit", 50),
		Offset:      parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, "failed to list operations", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListOperationsResponse{
		Operations: dto.OperationsFromDomain(ops),
		Total:      int64(len(ops)),
	})
}

// Patch edits an operation.
func (h *OperationHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var req dto.PatchOperationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		writeDomainError(w, r, "invalid patch", err)
		return
	}

	op, err := h.operationUC.EditOperation(r.Context(), usecase.EditOperationInput{
		PortfolioID: chi.URLParam(r, "id"),
		OperationID: chi.URLParam(r, "opID"),
		Patch:       patch,
	})
	if err != nil {
		writeDomainError(w, r, "failed to edit operation", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OperationFromDomain(op))
}

// Delete removes an operation.
func (h *OperationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.operationUC.DeleteOperation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "opID"))
	if err != nil {
		writeDomainError(w, r, "failed to delete operation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Validate reports whether a mutation would be accepted without applying it.
func (h *OperationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateMutationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	m, err := req.ToMutation(chi.URLParam(r, "id"), h.now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mutation", err.Error())
		return
	}

	result, err := h.operationUC.PreviewMutation(r.Context(), chi.URLParam(r, "id"), m)
	if err != nil {
		writeDomainError(w, r, "failed to validate mutation", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PreviewFromUseCase(result))
}
