package handler

import (
	"context"
	"encoding/csv"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iho/gosplit/internal/adapter/http/dto"
	"github.com/iho/gosplit/internal/domain"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	ListOweSummary(ctx context.Context, userID string) (domain.OweSummary, error)
	BalanceSheet(ctx context.Context, userID string) ([]domain.BalanceSheetRow, error)
}

// BalanceSheetFilename names the CSV attachment.
const BalanceSheetFilename = "balance_sheet.csv"

// BalanceHandler handles balance views.
type BalanceHandler struct {
	balanceUC BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(balanceUC BalanceService) *BalanceHandler {
	return &BalanceHandler{balanceUC: balanceUC}
}

// Owe returns pending totals per counterparty.
func (h *BalanceHandler) Owe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	summary, err := h.balanceUC.ListOweSummary(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, "failed to get owe summary", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OweSummaryFromDomain(summary))
}

// Sheet returns every share the requester holds.
func (h *BalanceHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	rows, err := h.balanceUC.BalanceSheet(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, "failed to get balance sheet", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceSheetFromDomain(rows))
}

// Download returns the balance sheet as a CSV attachment.
func (h *BalanceHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := requester(w, r)
	if !ok {
		return
	}

	rows, err := h.balanceUC.BalanceSheet(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, "failed to get balance sheet", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+BalanceSheetFilename+`"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(dto.BalanceSheetCSVRecords(rows)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write balance sheet csv")
	}
}
