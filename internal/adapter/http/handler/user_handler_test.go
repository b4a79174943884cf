package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/gosplit/internal/adapter/http/dto"
	"github.com/iho/gosplit/internal/domain"
)

type userServiceStub struct {
	byEmailFn func(ctx context.Context, email string) (*domain.User, error)
}

func (s *userServiceStub) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.byEmailFn(ctx, email)
}

func TestUserHandler_GetByEmail(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{
		byEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			if email != "john@example.com" {
				return nil, domain.ErrUserNotFound
			}
			return &domain.User{ID: "u1", Name: "John", Email: email}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/users/by-email/john@example.com", nil), "u2",
		map[string]string{"email": "john%40example.com"})
	rec := httptest.NewRecorder()
	handler.GetByEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UserID != "u1" || resp.Name != "John" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = withUser(httptest.NewRequest(http.MethodGet, "/users/by-email/nobody@example.com", nil), "u2",
		map[string]string{"email": "nobody@example.com"})
	rec = httptest.NewRecorder()
	handler.GetByEmail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUserHandler_GetByEmail_Invalid(t *testing.T) {
	handler := NewUserHandler(&userServiceStub{
		byEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return nil, domain.ErrInvalidEmail
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/users/by-email/nope", nil), "u2",
		map[string]string{"email": "nope"})
	rec := httptest.NewRecorder()
	handler.GetByEmail(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
