package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/infrastructure/metrics"
)

// ExpenseUseCase creates expenses and their participant shares.
type ExpenseUseCase struct {
	txManager       TransactionManager
	expenseRepo     ExpenseRepository
	participantRepo ParticipantRepository
	outboxRepo      OutboxRepository
	auditRepo       AuditRepository
	users           UserDirectory
	idGen           IDGenerator
	retrier         Retrier
	metrics         *metrics.Metrics
}

// NewExpenseUseCase creates a new ExpenseUseCase. outboxRepo, auditRepo,
// retrier and metrics are optional.
func NewExpenseUseCase(
	txManager TransactionManager,
	expenseRepo ExpenseRepository,
	participantRepo ParticipantRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	users UserDirectory,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *ExpenseUseCase {
	return &ExpenseUseCase{
		txManager:       txManager,
		expenseRepo:     expenseRepo,
		participantRepo: participantRepo,
		outboxRepo:      outboxRepo,
		auditRepo:       auditRepo,
		users:           users,
		idGen:           idGen,
		retrier:         retrier,
		metrics:         metrics,
	}
}

// CreateExpenseInput contains input for creating an expense.
type CreateExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	SplitMethod domain.SplitMethod
	CreatorID   string
	// Participants excludes the creator.
	Participants domain.ParticipantEntries
	// IncludeCreator adds the creator to an equal split.
	IncludeCreator bool
	// CreatorValue is the creator's amount or percentage for exact and percentage splits.
	CreatorValue decimal.NullDecimal
}

// CreateExpense validates the split, resolves every participant and
// persists the expense with all shares atomically.
func (uc *ExpenseUseCase) CreateExpense(ctx context.Context, input CreateExpenseInput) (*domain.Expense, error) {
	expense, err := uc.createExpense(ctx, input)
	if err != nil {
		if uc.metrics != nil && (errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrParticipantNotFound)) {
			uc.metrics.SplitRejections.WithLabelValues(metrics.RejectionReason(err)).Inc()
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ExpensesCreated.WithLabelValues(string(expense.SplitMethod)).Inc()
		uc.metrics.ExpenseAmount.Observe(expense.Amount.InexactFloat64())
	}

	return expense, nil
}

func (uc *ExpenseUseCase) createExpense(ctx context.Context, input CreateExpenseInput) (*domain.Expense, error) {
	// 1. Validate input
	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	strategy, err := domain.StrategyFor(input.SplitMethod)
	if err != nil {
		return nil, err
	}
	if input.CreatorID == "" {
		return nil, domain.ErrUnauthorized
	}

	// 2. Resolve every user reference before anything is written
	if err := uc.resolveParticipants(ctx, input); err != nil {
		return nil, err
	}

	// 3. Compute shares
	amount := domain.RoundMoney(input.Amount)
	shares, err := strategy.Split(domain.SplitInput{
		Total:          amount,
		CreatorID:      input.CreatorID,
		IncludeCreator: input.IncludeCreator,
		CreatorValue:   input.CreatorValue,
		Entries:        input.Participants,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expense := &domain.Expense{
		ID:          uc.idGen.Generate(),
		Description: strings.TrimSpace(input.Description),
		Amount:      amount,
		SplitMethod: input.SplitMethod,
		CreatedBy:   input.CreatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	expense.Participants = domain.NewParticipants(expense.ID, shares, uc.idGen.Generate, now)

	// 4. Persist atomically
	if err := uc.retry(ctx, func() error { return uc.persist(ctx, expense) }); err != nil {
		return nil, err
	}

	return expense, nil
}

func (uc *ExpenseUseCase) resolveParticipants(ctx context.Context, input CreateExpenseInput) error {
	if _, err := uc.users.GetUser(ctx, input.CreatorID); err != nil {
		if isNotFound(err) {
			return &domain.ParticipantNotFoundError{UserID: input.CreatorID}
		}
		return err
	}

	ids := input.Participants.UserIDs()
	if len(ids) == 0 {
		return nil
	}

	known, err := uc.users.ResolveUsers(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return &domain.ParticipantNotFoundError{UserID: id}
		}
	}
	return nil
}

func (uc *ExpenseUseCase) persist(ctx context.Context, expense *domain.Expense) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.expenseRepo.Create(txCtx, tx, expense); err != nil {
		return err
	}

	if err := uc.participantRepo.CreateBatch(txCtx, tx, expense.Participants); err != nil {
		return err
	}

	if uc.outboxRepo != nil {
		event := domain.NewExpenseCreatedEvent(uc.idGen.Generate(), expense)
		if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
			return err
		}
	}

	if uc.auditRepo != nil {
		auditLog := domain.NewExpenseAudit(uc.idGen.Generate(), expense.CreatedBy,
			domain.AuditActionExpenseCreate, expense.ID, map[string]any{
				"description":  expense.Description,
				"amount":       expense.Amount.StringFixed(domain.MoneyPlaces),
				"split_method": expense.SplitMethod,
				"participants": len(expense.Participants),
			}, expense.CreatedAt)
		if err := uc.auditRepo.CreateTx(txCtx, tx, auditLog); err != nil {
			return err
		}
	}

	return tx.Commit(txCtx)
}

func (uc *ExpenseUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}

// GetExpense returns an expense with its participant shares. Only the
// creator and the participants can see it.
func (uc *ExpenseUseCase) GetExpense(ctx context.Context, id, requesterID string) (*domain.Expense, error) {
	expense, err := uc.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	participants, err := uc.participantRepo.ListByExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	visible := expense.CreatedBy == requesterID
	for _, p := range participants {
		if p.UserID == requesterID {
			visible = true
		}
	}
	if !visible {
		return nil, domain.ErrExpenseNotFound
	}

	expense.Participants = participants
	return expense, nil
}
