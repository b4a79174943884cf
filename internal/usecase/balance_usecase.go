package usecase

import (
	"context"
	"time"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/infrastructure/metrics"
)

// BalanceUseCase computes per-user views over all shares. Nothing is
// cached; every call reads current state.
type BalanceUseCase struct {
	participantRepo ParticipantRepository
	users           UserDirectory
	metrics         *metrics.Metrics
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(participantRepo ParticipantRepository, users UserDirectory, metrics *metrics.Metrics) *BalanceUseCase {
	return &BalanceUseCase{
		participantRepo: participantRepo,
		users:           users,
		metrics:         metrics,
	}
}

// ListUserExpenses returns what the user owes and what others owe on expenses they created.
func (uc *BalanceUseCase) ListUserExpenses(ctx context.Context, userID string) (domain.UserExpenses, error) {
	defer uc.observe("user_expenses", time.Now())

	mine, created, users, err := uc.load(ctx, userID, true)
	if err != nil {
		return domain.UserExpenses{}, err
	}

	return domain.BuildUserExpenses(userID, mine, created, users), nil
}

// ListOweSummary totals pending amounts per counterparty in both directions.
func (uc *BalanceUseCase) ListOweSummary(ctx context.Context, userID string) (domain.OweSummary, error) {
	defer uc.observe("owe_summary", time.Now())

	mine, created, users, err := uc.load(ctx, userID, true)
	if err != nil {
		return domain.OweSummary{}, err
	}

	return domain.BuildOweSummary(userID, mine, created, users), nil
}

// BalanceSheet lists every share the user holds.
func (uc *BalanceUseCase) BalanceSheet(ctx context.Context, userID string) ([]domain.BalanceSheetRow, error) {
	defer uc.observe("balance_sheet", time.Now())

	mine, _, users, err := uc.load(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	return domain.BuildBalanceSheet(mine, users), nil
}

func (uc *BalanceUseCase) load(ctx context.Context, userID string, withCreated bool) ([]domain.Share, []domain.Share, map[string]*domain.User, error) {
	mine, err := uc.participantRepo.ListSharesByUser(ctx, userID)
	if err != nil {
		return nil, nil, nil, err
	}

	var created []domain.Share
	if withCreated {
		created, err = uc.participantRepo.ListSharesByCreator(ctx, userID)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	users, err := uc.users.ResolveUsers(ctx, domain.ShareUserIDs(mine, created))
	if err != nil {
		return nil, nil, nil, err
	}

	return mine, created, users, nil
}

func (uc *BalanceUseCase) observe(view string, start time.Time) {
	if uc.metrics != nil {
		uc.metrics.ViewDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	}
}
