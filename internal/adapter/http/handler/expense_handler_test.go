package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gosplit/internal/adapter/http/dto"
	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
)

type expenseServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error)
	getFn    func(ctx context.Context, id, requesterID string) (*domain.Expense, error)
}

func (s *expenseServiceStub) CreateExpense(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error) {
	return s.createFn(ctx, input)
}

func (s *expenseServiceStub) GetExpense(ctx context.Context, id, requesterID string) (*domain.Expense, error) {
	return s.getFn(ctx, id, requesterID)
}

type settlementServiceStub struct {
	settleFn func(ctx context.Context, input usecase.SettleInput) (*usecase.SettlementResult, error)
}

func (s *settlementServiceStub) Settle(ctx context.Context, input usecase.SettleInput) (*usecase.SettlementResult, error) {
	return s.settleFn(ctx, input)
}

type expenseListStub struct {
	listFn func(ctx context.Context, userID string) (domain.UserExpenses, error)
}

func (s *expenseListStub) ListUserExpenses(ctx context.Context, userID string) (domain.UserExpenses, error) {
	return s.listFn(ctx, userID)
}

func TestExpenseHandler_Create_Success(t *testing.T) {
	var captured usecase.CreateExpenseInput
	handler := NewExpenseHandler(&expenseServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error) {
			captured = input
			return &domain.Expense{ID: "exp-1"}, nil
		},
	}, nil, nil)

	body := `{"description":"Trip","amount":9000,"split_method":"percentage",
		"participants_data":{"u3":40,"u2":50},"self_percentage":10}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body)), "u1", nil)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.CreatorID != "u1" || captured.SplitMethod != domain.SplitPercentage {
		t.Fatalf("unexpected input: %+v", captured)
	}
	if ids := captured.Participants.UserIDs(); len(ids) != 2 || ids[0] != "u3" || ids[1] != "u2" {
		t.Fatalf("expected participants in document order, got %v", ids)
	}
	if !captured.CreatorValue.Valid || !captured.CreatorValue.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected creator percentage 10, got %+v", captured.CreatorValue)
	}

	var resp dto.CreateExpenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ExpenseID != "exp-1" || resp.Message != dto.ExpenseCreatedMessage {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExpenseHandler_Create_DuplicateParticipant(t *testing.T) {
	handler := NewExpenseHandler(&expenseServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}, nil, nil)

	body := `{"description":"Trip","amount":90,"split_method":"equal","participants_data":{"u2":0,"u2":0}}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body)), "u1", nil)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExpenseHandler_Create_InvalidBody(t *testing.T) {
	handler := NewExpenseHandler(&expenseServiceStub{}, nil, nil)

	req := withUser(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString("{")), "u1", nil)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "invalid request body" {
		t.Fatalf("unexpected error: %+v", resp)
	}
}

func TestExpenseHandler_Create_UnknownParticipant(t *testing.T) {
	handler := NewExpenseHandler(&expenseServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error) {
			return nil, &domain.ParticipantNotFoundError{UserID: "ghost"}
		},
	}, nil, nil)

	body := `{"description":"Trip","amount":90,"split_method":"equal","participants_data":{"ghost":0}}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/expenses", bytes.NewBufferString(body)), "u1", nil)
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExpenseHandler_Get(t *testing.T) {
	handler := NewExpenseHandler(&expenseServiceStub{
		getFn: func(ctx context.Context, id, requesterID string) (*domain.Expense, error) {
			if requesterID != "u2" {
				return nil, domain.ErrExpenseNotFound
			}
			return &domain.Expense{
				ID:          id,
				Amount:      decimal.NewFromInt(90),
				SplitMethod: domain.SplitEqual,
				CreatedBy:   "u1",
				CreatedAt:   time.Now(),
				Participants: []*domain.Participant{
					{UserID: "u2", Amount: decimal.NewFromInt(45), Status: domain.StatusPending},
				},
			}, nil
		},
	}, nil, nil)

	req := withUser(httptest.NewRequest(http.MethodGet, "/expenses/exp-1", nil), "u2", map[string]string{"id": "exp-1"})
	rec := httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp dto.ExpenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ExpenseID != "exp-1" || len(resp.Participants) != 1 || resp.Participants[0].Amount != "45.00" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	req = withUser(httptest.NewRequest(http.MethodGet, "/expenses/exp-1", nil), "u9", map[string]string{"id": "exp-1"})
	rec = httptest.NewRecorder()
	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for outsider, got %d", rec.Code)
	}
}

func TestExpenseHandler_Settle_EmptyBodySettlesAll(t *testing.T) {
	var captured usecase.SettleInput
	handler := NewExpenseHandler(nil, &settlementServiceStub{
		settleFn: func(ctx context.Context, input usecase.SettleInput) (*usecase.SettlementResult, error) {
			captured = input
			return &usecase.SettlementResult{Settled: []string{}, Count: 2, Message: usecase.MsgAllSettled}, nil
		},
	}, nil)

	req := withUser(httptest.NewRequest(http.MethodPost, "/expenses/exp-1/settle", nil), "u1", map[string]string{"id": "exp-1"})
	rec := httptest.NewRecorder()
	handler.Settle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.ExpenseID != "exp-1" || captured.RequesterID != "u1" || len(captured.UserIDs) != 0 {
		t.Fatalf("unexpected input: %+v", captured)
	}
	var resp dto.SettleExpenseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != usecase.MsgAllSettled || resp.Count != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExpenseHandler_Settle_Targeted(t *testing.T) {
	var captured usecase.SettleInput
	handler := NewExpenseHandler(nil, &settlementServiceStub{
		settleFn: func(ctx context.Context, input usecase.SettleInput) (*usecase.SettlementResult, error) {
			captured = input
			return &usecase.SettlementResult{Settled: []string{"Bob"}, Count: 1}, nil
		},
	}, nil)

	body := `{"user_ids":["u2"]}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/expenses/exp-1/settle", bytes.NewBufferString(body)), "u1", map[string]string{"id": "exp-1"})
	rec := httptest.NewRecorder()
	handler.Settle(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(captured.UserIDs) != 1 || captured.UserIDs[0] != "u2" {
		t.Fatalf("unexpected user ids: %v", captured.UserIDs)
	}
}

func TestExpenseHandler_Settle_NothingToSettle(t *testing.T) {
	handler := NewExpenseHandler(nil, &settlementServiceStub{
		settleFn: func(ctx context.Context, input usecase.SettleInput) (*usecase.SettlementResult, error) {
			return nil, domain.ErrNothingToSettle
		},
	}, nil)

	req := withUser(httptest.NewRequest(http.MethodPost, "/expenses/exp-1/settle", nil), "u1", map[string]string{"id": "exp-1"})
	rec := httptest.NewRecorder()
	handler.Settle(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Message != MsgNothingToSettle {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestExpenseHandler_List(t *testing.T) {
	handler := NewExpenseHandler(nil, nil, &expenseListStub{
		listFn: func(ctx context.Context, userID string) (domain.UserExpenses, error) {
			return domain.UserExpenses{
				IOwe: []domain.OwedShare{{
					ExpenseID: "exp-1",
					Amount:    decimal.NewFromInt(3000),
					Creator:   domain.UserRef{ID: "u1", Name: "John", Email: "john@example.com"},
					Status:    domain.StatusPending,
				}},
			}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/expenses", nil), "u2", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp dto.UserExpensesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.IOwe) != 1 || resp.IOwe[0].CreatedBy != "john@example.com" || resp.OthersOweMe == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
