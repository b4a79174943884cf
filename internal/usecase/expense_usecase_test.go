package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
	"github.com/iho/gosplit/internal/usecase/mocks"
)

type expenseFixture struct {
	tx           txMocks
	expenses     *mocks.MockExpenseRepository
	participants *mocks.MockParticipantRepository
	outbox       *mocks.MockOutboxRepository
	audit        *mocks.MockAuditRepository
	users        *mocks.MockUserDirectory
	retrier      *mocks.MockRetrier
	uc           *usecase.ExpenseUseCase
}

func newExpenseFixture(t *testing.T) *expenseFixture {
	ctrl := gomock.NewController(t)
	f := &expenseFixture{
		tx:           newTxMocks(t, ctrl),
		expenses:     mocks.NewMockExpenseRepository(ctrl),
		participants: mocks.NewMockParticipantRepository(ctrl),
		outbox:       mocks.NewMockOutboxRepository(ctrl),
		audit:        mocks.NewMockAuditRepository(ctrl),
		users:        mocks.NewMockUserDirectory(ctrl),
		retrier:      mocks.NewMockRetrier(ctrl),
	}
	f.retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, op func() error) error { return op() },
	).AnyTimes()
	f.uc = usecase.NewExpenseUseCase(
		f.tx.manager, f.expenses, f.participants, f.outbox, f.audit,
		f.users, sequentialIDs(ctrl), f.retrier, testMetrics(),
	)
	return f
}

func (f *expenseFixture) expectUsers(creator *domain.User, participants ...*domain.User) {
	f.users.EXPECT().GetUser(gomock.Any(), creator.ID).Return(creator, nil)
	if len(participants) == 0 {
		return
	}
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}
	f.users.EXPECT().ResolveUsers(gomock.Any(), ids).Return(usersByID(participants...), nil)
}

func entries(vals ...string) domain.ParticipantEntries {
	out := domain.ParticipantEntries{}
	for i := 0; i+1 < len(vals); i += 2 {
		e := domain.ParticipantEntry{UserID: vals[i]}
		if vals[i+1] != "" {
			e.Value = decimal.NewNullDecimal(dec(vals[i+1]))
		}
		out = append(out, e)
	}
	return out
}

func TestExpenseUseCase_CreateEqualSplit(t *testing.T) {
	f := newExpenseFixture(t)
	f.expectUsers(alice, bob, carol, dave)
	f.tx.expectCommit()

	var stored []*domain.Participant
	f.expenses.EXPECT().Create(gomock.Any(), f.tx.tx, gomock.Any()).Return(nil)
	f.participants.EXPECT().CreateBatch(gomock.Any(), f.tx.tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, ps []*domain.Participant) error {
			stored = ps
			return nil
		},
	)
	f.outbox.EXPECT().Create(gomock.Any(), f.tx.tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ usecase.Transaction, e *domain.OutboxEvent) error {
			if e.EventType != domain.EventTypeExpenseCreated {
				t.Errorf("unexpected event type %s", e.EventType)
			}
			return nil
		},
	)
	f.audit.EXPECT().CreateTx(gomock.Any(), f.tx.tx, gomock.Any()).Return(nil)

	expense, err := f.uc.CreateExpense(context.Background(), usecase.CreateExpenseInput{
		Description:    "  Cabin weekend ",
		Amount:         dec("9000"),
		SplitMethod:    domain.SplitEqual,
		CreatorID:      alice.ID,
		Participants:   entries("u2", "", "u3", "", "u4", ""),
		IncludeCreator: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if expense.Description != "Cabin weekend" {
		t.Errorf("expected trimmed description, got %q", expense.Description)
	}
	if len(stored) != 4 || len(expense.Participants) != 4 {
		t.Fatalf("expected 4 participants, got %d", len(stored))
	}
	for _, p := range stored {
		if !p.Amount.Equal(dec("2250")) || !p.Percentage.Decimal.Equal(dec("25")) {
			t.Errorf("unexpected share %s (%s%%) for %s", p.Amount, p.Percentage.Decimal, p.UserID)
		}
		if p.ExpenseID != expense.ID {
			t.Errorf("participant %s not linked to expense", p.ID)
		}
	}
	if stored[0].UserID != alice.ID || stored[0].Status != domain.StatusSettled {
		t.Errorf("expected creator share first and settled, got %+v", stored[0])
	}
	for _, p := range stored[1:] {
		if p.Status != domain.StatusPending {
			t.Errorf("expected pending status for %s", p.UserID)
		}
	}
}

func TestExpenseUseCase_ExactMismatchWritesNothing(t *testing.T) {
	f := newExpenseFixture(t)
	f.expectUsers(alice, bob, carol)

	_, err := f.uc.CreateExpense(context.Background(), usecase.CreateExpenseInput{
		Description:  "Groceries",
		Amount:       dec("9000"),
		SplitMethod:  domain.SplitExact,
		CreatorID:    alice.ID,
		Participants: entries("u2", "2500", "u3", "5000"),
		CreatorValue: decimal.NewNullDecimal(dec("1000")),
	})

	var mismatch *domain.SplitMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SplitMismatchError, got %v", err)
	}
	if !mismatch.Delta.Equal(dec("500")) {
		t.Errorf("expected delta 500, got %s", mismatch.Delta)
	}
}

func TestExpenseUseCase_UnknownParticipant(t *testing.T) {
	f := newExpenseFixture(t)
	f.users.EXPECT().GetUser(gomock.Any(), alice.ID).Return(alice, nil)
	f.users.EXPECT().ResolveUsers(gomock.Any(), []string{"u2", "ghost"}).Return(usersByID(bob), nil)

	_, err := f.uc.CreateExpense(context.Background(), usecase.CreateExpenseInput{
		Description:  "Taxi",
		Amount:       dec("30"),
		SplitMethod:  domain.SplitEqual,
		CreatorID:    alice.ID,
		Participants: entries("u2", "", "ghost", ""),
	})

	var notFound *domain.ParticipantNotFoundError
	if !errors.As(err, &notFound) || notFound.UserID != "ghost" {
		t.Fatalf("expected ParticipantNotFoundError for ghost, got %v", err)
	}
}

func TestExpenseUseCase_UnknownCreator(t *testing.T) {
	f := newExpenseFixture(t)
	f.users.EXPECT().GetUser(gomock.Any(), "nobody").Return(nil, domain.ErrUserNotFound)

	_, err := f.uc.CreateExpense(context.Background(), usecase.CreateExpenseInput{
		Description:  "Taxi",
		Amount:       dec("30"),
		SplitMethod:  domain.SplitEqual,
		CreatorID:    "nobody",
		Participants: entries("u2", ""),
	})
	if !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestExpenseUseCase_ParticipantInsertFailureRollsBack(t *testing.T) {
	f := newExpenseFixture(t)
	f.expectUsers(alice, bob)
	f.tx.expectRollback()

	insertErr := errors.New("insert failed")
	f.expenses.EXPECT().Create(gomock.Any(), f.tx.tx, gomock.Any()).Return(nil)
	f.participants.EXPECT().CreateBatch(gomock.Any(), f.tx.tx, gomock.Any()).Return(insertErr)

	_, err := f.uc.CreateExpense(context.Background(), usecase.CreateExpenseInput{
		Description:    "Lunch",
		Amount:         dec("20"),
		SplitMethod:    domain.SplitEqual,
		CreatorID:      alice.ID,
		Participants:   entries("u2", ""),
		IncludeCreator: true,
	})
	if !errors.Is(err, insertErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
}

func TestExpenseUseCase_ValidationBeforeLookups(t *testing.T) {
	tests := []struct {
		name  string
		input usecase.CreateExpenseInput
		want  error
	}{
		{
			name:  "blank description",
			input: usecase.CreateExpenseInput{Description: " ", Amount: dec("10"), SplitMethod: domain.SplitEqual, CreatorID: "u1"},
			want:  domain.ErrInvalidDescription,
		},
		{
			name:  "zero amount",
			input: usecase.CreateExpenseInput{Description: "x", Amount: decimal.Zero, SplitMethod: domain.SplitEqual, CreatorID: "u1"},
			want:  domain.ErrInvalidAmount,
		},
		{
			name:  "unknown method",
			input: usecase.CreateExpenseInput{Description: "x", Amount: dec("10"), SplitMethod: "shares", CreatorID: "u1"},
			want:  domain.ErrUnsupportedMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExpenseFixture(t)
			_, err := f.uc.CreateExpense(context.Background(), tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExpenseUseCase_RejectionMetrics(t *testing.T) {
	m := testMetrics()
	uc := usecase.NewExpenseUseCase(nil, nil, nil, nil, nil, nil, nil, nil, m)

	_, err := uc.CreateExpense(context.Background(), usecase.CreateExpenseInput{Description: "", Amount: dec("1")})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := testutil.ToFloat64(m.SplitRejections.WithLabelValues("invalid_input")); got != 1 {
		t.Fatalf("expected one rejection, got %v", got)
	}
}

func TestExpenseUseCase_GetExpenseVisibility(t *testing.T) {
	ctrl := gomock.NewController(t)
	expenses := mocks.NewMockExpenseRepository(ctrl)
	participants := mocks.NewMockParticipantRepository(ctrl)
	uc := usecase.NewExpenseUseCase(nil, expenses, participants, nil, nil, nil, nil, nil, nil)

	expense := &domain.Expense{ID: "e1", CreatedBy: alice.ID}
	shares := []*domain.Participant{{ID: "p1", ExpenseID: "e1", UserID: bob.ID}}
	expenses.EXPECT().GetByID(gomock.Any(), "e1").Return(expense, nil).Times(2)
	participants.EXPECT().ListByExpense(gomock.Any(), "e1").Return(shares, nil).Times(2)

	got, err := uc.GetExpense(context.Background(), "e1", bob.ID)
	if err != nil || len(got.Participants) != 1 {
		t.Fatalf("participant should see expense, got %v err=%v", got, err)
	}

	if _, err := uc.GetExpense(context.Background(), "e1", carol.ID); !errors.Is(err, domain.ErrExpenseNotFound) {
		t.Fatalf("outsider should get ErrExpenseNotFound, got %v", err)
	}
}
