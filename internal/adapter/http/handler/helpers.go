package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iho/gosplit/internal/adapter/http/dto"
	"github.com/iho/gosplit/internal/domain"
)

// MsgNothingToSettle is returned when a settle request finds no pending share.
const MsgNothingToSettle = "No pending payments to settle for this expense."

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrExpenseNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNothingToSettle),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its mapped status. Unmapped errors are
// logged and answered with an opaque message.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := mapDomainError(err)

	var mismatch *domain.SplitMismatchError
	switch {
	case status == http.StatusInternalServerError:
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg(message)
		writeError(w, status, message, "internal server error")
	case errors.As(err, &mismatch):
		writeJSON(w, status, dto.ErrorResponse{
			Error:    message,
			Message:  err.Error(),
			Expected: dto.Money(mismatch.Expected),
			Actual:   dto.Money(mismatch.Actual),
			Delta:    dto.Money(mismatch.Delta),
		})
	case errors.Is(err, domain.ErrNothingToSettle):
		writeError(w, status, message, MsgNothingToSettle)
	default:
		writeError(w, status, message, err.Error())
	}
}

// requester returns the authenticated user id or answers 401.
func requester(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := domain.UserFromContext(r.Context())
	if !ok || user.ID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized.Error())
		return "", false
	}
	return user.ID, true
}
