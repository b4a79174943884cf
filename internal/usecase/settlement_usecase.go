package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/infrastructure/metrics"
)

// Settlement messages
const (
	MsgAllSettled         = "All participants have been settled."
	MsgNoneSettled        = "No participants were settled."
	msgSettledForUsers    = "Expense settled for users: %s."
	msgSomeNotSettledList = "Some users could not be settled: %v"
)

// SettlementUseCase moves participant shares from pending to settled.
type SettlementUseCase struct {
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

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	expenseRepo ExpenseRepository,
	participantRepo ParticipantRepository,
	outboxRepo OutboxRepository,
	auditRepo AuditRepository,
	users UserDirectory,
	idGen IDGenerator,
	retrier Retrier,
	metrics *metrics.Metrics,
) *SettlementUseCase {
	return &SettlementUseCase{
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

// SettleInput contains input for settling an expense.
type SettleInput struct {
	ExpenseID   string
	RequesterID string
	// UserIDs selects the shares to settle. Empty settles every pending share.
	UserIDs []string
}

// SettlementResult reports the outcome of a settlement.
type SettlementResult struct {
	// Settled holds display names of users whose share was settled.
	Settled []string
	// NotSettled holds user ids that had no pending share on the expense.
	NotSettled []string
	// Count is the number of shares that changed.
	Count   int64
	Message string
	// NotSettledSummary is set when NotSettled is non-empty.
	NotSettledSummary string
}

// Settle settles the requested shares of an expense. Only the creator may
// settle; anyone else sees ErrExpenseNotFound.
func (uc *SettlementUseCase) Settle(ctx context.Context, input SettleInput) (*SettlementResult, error) {
	start := time.Now()

	expense, err := uc.expenseRepo.GetByID(ctx, input.ExpenseID)
	if err != nil {
		return nil, err
	}
	if expense.CreatedBy != input.RequesterID {
		return nil, domain.ErrExpenseNotFound
	}

	mode := "targeted"
	if len(input.UserIDs) == 0 {
		mode = "all"
	}
	if uc.metrics != nil {
		uc.metrics.SettlementRequests.WithLabelValues(mode).Inc()
	}

	var result *SettlementResult
	err = uc.retry(ctx, func() error {
		var opErr error
		if mode == "all" {
			result, opErr = uc.settleAll(ctx, expense, input.RequesterID)
		} else {
			result, opErr = uc.settleUsers(ctx, expense, input.RequesterID, input.UserIDs)
		}
		return opErr
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ParticipantsSettled.Add(float64(result.Count))
		uc.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	}

	return result, nil
}

func (uc *SettlementUseCase) settleAll(ctx context.Context, expense *domain.Expense, requesterID string) (*SettlementResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	count, err := uc.participantRepo.SettleAllPending(txCtx, tx, expense.ID, now)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, domain.ErrNothingToSettle
	}

	payload := domain.ExpenseSettledEvent{
		ExpenseID: expense.ID,
		SettledBy: requesterID,
		Count:     count,
		All:       true,
	}
	if err := uc.record(txCtx, tx, payload, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return &SettlementResult{
		Settled:    []string{},
		NotSettled: []string{},
		Count:      count,
		Message:    MsgAllSettled,
	}, nil
}

func (uc *SettlementUseCase) settleUsers(ctx context.Context, expense *domain.Expense, requesterID string, userIDs []string) (*SettlementResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	var settledIDs, notSettled []string
	for _, userID := range userIDs {
		participant, err := uc.participantRepo.GetPendingForUpdate(txCtx, tx, expense.ID, userID)
		if err != nil {
			if isParticipantMissing(err) {
				notSettled = append(notSettled, userID)
				continue
			}
			return nil, err
		}

		if err := participant.Settle(now); err != nil {
			notSettled = append(notSettled, userID)
			continue
		}
		if err := uc.participantRepo.UpdateStatus(txCtx, tx, participant.ID, participant.Status, now); err != nil {
			return nil, err
		}
		settledIDs = append(settledIDs, userID)
	}

	if len(settledIDs) > 0 {
		payload := domain.ExpenseSettledEvent{
			ExpenseID: expense.ID,
			SettledBy: requesterID,
			UserIDs:   settledIDs,
			Count:     int64(len(settledIDs)),
		}
		if err := uc.record(txCtx, tx, payload, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	names := uc.displayNames(ctx, settledIDs)

	result := &SettlementResult{
		Settled:    names,
		NotSettled: notSettled,
		Count:      int64(len(settledIDs)),
		Message:    MsgNoneSettled,
	}
	if result.NotSettled == nil {
		result.NotSettled = []string{}
	}
	if len(names) > 0 {
		result.Message = fmt.Sprintf(msgSettledForUsers, strings.Join(names, ", "))
	}
	if len(notSettled) > 0 {
		result.NotSettledSummary = fmt.Sprintf(msgSomeNotSettledList, notSettled)
	}
	return result, nil
}

// record writes the settlement event and audit row inside tx.
func (uc *SettlementUseCase) record(ctx context.Context, tx Transaction, payload domain.ExpenseSettledEvent, now time.Time) error {
	if uc.outboxRepo != nil {
		event := domain.NewExpenseSettledEvent(uc.idGen.Generate(), payload, now)
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
	}

	if uc.auditRepo != nil {
		auditLog := domain.NewExpenseAudit(uc.idGen.Generate(), payload.SettledBy,
			domain.AuditActionExpenseSettle, payload.ExpenseID, payload, now)
		if err := uc.auditRepo.CreateTx(ctx, tx, auditLog); err != nil {
			return err
		}
	}

	return nil
}

// displayNames runs after commit, so a directory failure falls back to
// user ids instead of failing a settlement that already happened.
func (uc *SettlementUseCase) displayNames(ctx context.Context, ids []string) []string {
	names := make([]string, 0, len(ids))
	if len(ids) == 0 {
		return names
	}

	users, err := uc.users.ResolveUsers(ctx, ids)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Strs("user_ids", ids).Msg("failed to resolve settled user names")
		users = nil
	}
	for _, id := range ids {
		name := id
		if u, ok := users[id]; ok && u != nil && u.Name != "" {
			name = u.Name
		}
		names = append(names, name)
	}
	return names
}

func (uc *SettlementUseCase) retry(ctx context.Context, op func() error) error {
	if uc.retrier == nil {
		return op()
	}
	return uc.retrier.Retry(ctx, op)
}
