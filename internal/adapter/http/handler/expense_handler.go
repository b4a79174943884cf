package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gosplit/internal/adapter/http/dto"
	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
)

const maxBodyBytes = 1 << 20

// ExpenseService defines the behavior needed by ExpenseHandler to create and read expenses.
type ExpenseService interface {
	CreateExpense(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error)
	GetExpense(ctx context.Context, id, requesterID string) (*domain.Expense, error)
}

// SettlementService settles expense shares.
type SettlementService interface {
	Settle(ctx context.Context, input usecase.SettleInput) (*usecase.SettlementResult, error)
}

// ExpenseListService builds the per-user expense listing.
type ExpenseListService interface {
	ListUserExpenses(ctx context.Context, userID string) (domain.UserExpenses, error)
}

// ExpenseHandler handles expense-related HTTP requests.
type ExpenseHandler struct {
	expenseUC    ExpenseService
	settlementUC SettlementService
	listUC       ExpenseListService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseUC ExpenseService, settlementUC SettlementService, listUC ExpenseListService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseUC:    expenseUC,
		settlementUC: settlementUC,
		listUC:       listUC,
	}
}

// Create creates a new expense paid by the requester.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	var req dto.CreateExpenseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeDomainError(w, r, "invalid expense", err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	expense, err := h.expenseUC.CreateExpense(r.Context(), req.ToUseCaseInput(userID))
	if err != nil {
		writeDomainError(w, r, "failed to create expense", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.CreateExpenseResponse{
		ExpenseID: expense.ID,
		Message:   dto.ExpenseCreatedMessage,
	})
}

// Get retrieves an expense visible to the requester.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing expense ID", "")
		return
	}

	expense, err := h.expenseUC.GetExpense(r.Context(), id, userID)
	if err != nil {
		writeDomainError(w, r, "failed to get expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpenseFromDomain(expense))
}

// List returns what the requester owes and what others owe them.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	view, err := h.listUC.ListUserExpenses(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, "failed to list expenses", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UserExpensesFromDomain(view))
}

// Settle settles shares of an expense created by the requester. An empty
// body settles every pending share.
func (h *ExpenseHandler) Settle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing expense ID", "")
		return
	}

	var req dto.SettleExpenseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.settlementUC.Settle(r.Context(), usecase.SettleInput{
		ExpenseID:   id,
		RequesterID: userID,
		UserIDs:     req.UserIDs,
	})
	if err != nil {
		writeDomainError(w, r, "failed to settle expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromResult(result))
}
