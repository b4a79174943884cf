package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/gosplit/internal/adapter/http/dto"
	"github.com/iho/gosplit/internal/domain"
)

// withUser attaches an authenticated user and chi URL params to req.
func withUser(req *http.Request, userID string, params map[string]string) *http.Request {
	ctx := domain.ContextWithUser(req.Context(), &domain.User{ID: userID})
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"expense not found", domain.ErrExpenseNotFound, http.StatusNotFound},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"participant not found", &domain.ParticipantNotFoundError{UserID: "u9"}, http.StatusNotFound},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("%w: u2", domain.ErrMissingValue), http.StatusBadRequest},
		{"out of range", domain.ErrOutOfRange, http.StatusBadRequest},
		{"nothing to settle", domain.ErrNothingToSettle, http.StatusBadRequest},
		{"expired token", domain.ErrExpiredToken, http.StatusUnauthorized},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteDomainError_SplitMismatchCarriesDelta(t *testing.T) {
	_, err := domain.ExactSplit{}.Split(domain.SplitInput{
		Total:        decimal.NewFromInt(9000),
		CreatorID:    "u1",
		CreatorValue: decimal.NewNullDecimal(decimal.NewFromInt(1000)),
		Entries: domain.ParticipantEntries{
			{UserID: "u2", Value: decimal.NewNullDecimal(decimal.NewFromInt(2000))},
		},
	})
	if err == nil {
		t.Fatal("expected mismatch error")
	}

	rec := httptest.NewRecorder()
	writeDomainError(rec, httptest.NewRequest(http.MethodPost, "/expenses", nil), "invalid split", err)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decodeError(t, rec)
	if resp.Expected != "9000.00" || resp.Actual != "3000.00" || resp.Delta != "6000.00" {
		t.Fatalf("unexpected mismatch body: %+v", resp)
	}
}

func TestWriteDomainError_InternalIsOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil), "failed", errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Message != "internal server error" {
		t.Fatalf("expected opaque message, got %q", resp.Message)
	}
}

func TestRequester_Unauthenticated(t *testing.T) {
	rec := httptest.NewRecorder()
	if _, ok := requester(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil)); ok {
		t.Fatal("expected no requester")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
