package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
)

const participantColumns = `p.id, p.expense_id, p.user_id, p.amount, p.percentage, p.status, p.updated_at`

const shareColumns = participantColumns + `,
		e.description, e.amount, e.split_method, e.created_by, e.created_at, e.updated_at`

// ParticipantRepository implements usecase.ParticipantRepository.
type ParticipantRepository struct {
	db querier
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(pool *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: pool}
}

// CreateBatch inserts all shares of an expense in one round trip.
func (r *ParticipantRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, participants []*domain.Participant) error {
	query := `
		INSERT INTO participants (id, expense_id, user_id, amount, percentage, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, p := range participants {
		batch.Queue(query,
			p.ID,
			p.ExpenseID,
			p.UserID,
			decimalToNumeric(p.Amount),
			nullDecimalToNumeric(p.Percentage),
			string(p.Status),
			p.UpdatedAt,
		)
	}

	return pgxTx(tx).SendBatch(ctx, batch).Close()
}

// GetPendingForUpdate locks the pending share of userID on expenseID.
func (r *ParticipantRepository) GetPendingForUpdate(ctx context.Context, tx usecase.Transaction, expenseID, userID string) (*domain.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participants p
		WHERE p.expense_id = $1 AND p.user_id = $2 AND p.status = 'pending'
		FOR UPDATE
	`

	p, err := scanParticipant(pgxTx(tx).QueryRow(ctx, query, expenseID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrParticipantNotFound
	}
	return p, err
}

// UpdateStatus sets the status of one share.
func (r *ParticipantRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.ParticipantStatus, updatedAt time.Time) error {
	query := `UPDATE participants SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := pgxTx(tx).Exec(ctx, query, id, string(status), updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

// SettleAllPending settles every pending share of an expense.
func (r *ParticipantRepository) SettleAllPending(ctx context.Context, tx usecase.Transaction, expenseID string, updatedAt time.Time) (int64, error) {
	query := `
		UPDATE participants
		SET status = 'settled', updated_at = $2
		WHERE expense_id = $1 AND status = 'pending'
	`

	tag, err := pgxTx(tx).Exec(ctx, query, expenseID, updatedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByExpense returns the shares of an expense, creator first.
func (r *ParticipantRepository) ListByExpense(ctx context.Context, expenseID string) ([]*domain.Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM participants p
		JOIN expenses e ON e.id = p.expense_id
		WHERE p.expense_id = $1
		ORDER BY (p.user_id = e.created_by) DESC, p.id
	`

	rows, err := r.db.Query(ctx, query, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ListSharesByUser returns every share held by userID.
func (r *ParticipantRepository) ListSharesByUser(ctx context.Context, userID string) ([]domain.Share, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM participants p
		JOIN expenses e ON e.id = p.expense_id
		WHERE p.user_id = $1
		ORDER BY e.created_at, e.id
	`
	return r.listShares(ctx, query, userID)
}

// ListSharesByCreator returns every share on expenses created by creatorID.
func (r *ParticipantRepository) ListSharesByCreator(ctx context.Context, creatorID string) ([]domain.Share, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM participants p
		JOIN expenses e ON e.id = p.expense_id
		WHERE e.created_by = $1
		ORDER BY e.created_at, e.id, p.user_id
	`
	return r.listShares(ctx, query, creatorID)
}

func (r *ParticipantRepository) listShares(ctx context.Context, query string, arg string) ([]domain.Share, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []domain.Share
	for rows.Next() {
		var (
			s             domain.Share
			amount, pct   pgtype.Numeric
			status        string
			expenseAmount pgtype.Numeric
			method        string
		)
		err := rows.Scan(
			&s.Participant.ID, &s.Participant.ExpenseID, &s.Participant.UserID,
			&amount, &pct, &status, &s.Participant.UpdatedAt,
			&s.Expense.Description, &expenseAmount, &method,
			&s.Expense.CreatedBy, &s.Expense.CreatedAt, &s.Expense.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		s.Participant.Amount = numericToDecimal(amount)
		s.Participant.Percentage = numericToNullDecimal(pct)
		s.Participant.Status = domain.ParticipantStatus(status)
		s.Expense.ID = s.Participant.ExpenseID
		s.Expense.Amount = numericToDecimal(expenseAmount)
		s.Expense.SplitMethod = domain.SplitMethod(method)
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	var (
		p           domain.Participant
		amount, pct pgtype.Numeric
		status      string
	)
	if err := row.Scan(&p.ID, &p.ExpenseID, &p.UserID, &amount, &pct, &status, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Amount = numericToDecimal(amount)
	p.Percentage = numericToNullDecimal(pct)
	p.Status = domain.ParticipantStatus(status)
	return &p, nil
}
