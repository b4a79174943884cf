package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{db: store.db}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Name, domain.NormalizeEmail(user.Email), toUnix(user.CreatedAt),
	)
	return err
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE id = ?`, id))
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE email = ?`, domain.NormalizeEmail(email)))
}

// ListByIDs retrieves the users among ids that exist.
func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT id, name, email, created_at FROM users WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user    domain.User
		created int64
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &created)
	if isNoRows(err) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.CreatedAt = fromUnix(created)
	return &user, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db *sql.DB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(store *Store) *ExpenseRepository {
	return &ExpenseRepository{db: store.db}
}

// Create inserts an expense within a transaction.
func (r *ExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, expense *domain.Expense) error {
	_, err := sqlTx(tx).ExecContext(ctx,
		`INSERT INTO expenses (id, description, amount, split_method, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.Description,
		expense.Amount.StringFixed(domain.MoneyPlaces),
		string(expense.SplitMethod),
		expense.CreatedBy,
		toUnix(expense.CreatedAt),
		toUnix(expense.UpdatedAt),
	)
	return err
}

// GetByID retrieves an expense without its participants.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	var (
		e                  domain.Expense
		method             string
		created, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, description, amount, split_method, created_by, created_at, updated_at
		 FROM expenses WHERE id = ?`, id,
	).Scan(&e.ID, &e.Description, &e.Amount, &method, &e.CreatedBy, &created, &updatedAt)
	if isNoRows(err) {
		return nil, domain.ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}

	e.SplitMethod = domain.SplitMethod(method)
	e.CreatedAt = fromUnix(created)
	e.UpdatedAt = fromUnix(updatedAt)
	return &e, nil
}

const participantColumns = `p.id, p.expense_id, p.user_id, p.amount, p.percentage, p.status, p.updated_at`

// ParticipantRepository implements usecase.ParticipantRepository.
type ParticipantRepository struct {
	db *sql.DB
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(store *Store) *ParticipantRepository {
	return &ParticipantRepository{db: store.db}
}

// CreateBatch inserts all shares of an expense.
func (r *ParticipantRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, participants []*domain.Participant) error {
	stmt, err := sqlTx(tx).PrepareContext(ctx,
		`INSERT INTO participants (id, expense_id, user_id, amount, percentage, status, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range participants {
		var pct any
		if p.Percentage.Valid {
			pct = p.Percentage.Decimal.StringFixed(domain.MoneyPlaces)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.ExpenseID, p.UserID,
			p.Amount.StringFixed(domain.MoneyPlaces), pct,
			string(p.Status), toUnix(p.UpdatedAt),
		); err != nil {
			return err
		}
	}
	return nil
}

// GetPendingForUpdate returns the pending share of userID on expenseID.
// The transaction already holds the database write lock.
func (r *ParticipantRepository) GetPendingForUpdate(ctx context.Context, tx usecase.Transaction, expenseID, userID string) (*domain.Participant, error) {
	p, err := scanParticipant(sqlTx(tx).QueryRowContext(ctx,
		`SELECT `+participantColumns+`
		 FROM participants p
		 WHERE p.expense_id = ? AND p.user_id = ? AND p.status = 'pending'`,
		expenseID, userID,
	))
	if isNoRows(err) {
		return nil, domain.ErrParticipantNotFound
	}
	return p, err
}

// UpdateStatus sets the status of one share.
func (r *ParticipantRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.ParticipantStatus, updatedAt time.Time) error {
	res, err := sqlTx(tx).ExecContext(ctx,
		`UPDATE participants SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toUnix(updatedAt), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

// SettleAllPending settles every pending share of an expense.
func (r *ParticipantRepository) SettleAllPending(ctx context.Context, tx usecase.Transaction, expenseID string, updatedAt time.Time) (int64, error) {
	res, err := sqlTx(tx).ExecContext(ctx,
		`UPDATE participants SET status = 'settled', updated_at = ?
		 WHERE expense_id = ? AND status = 'pending'`,
		toUnix(updatedAt), expenseID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListByExpense returns the shares of an expense, creator first.
func (r *ParticipantRepository) ListByExpense(ctx context.Context, expenseID string) ([]*domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+participantColumns+`
		 FROM participants p
		 JOIN expenses e ON e.id = p.expense_id
		 WHERE p.expense_id = ?
		 ORDER BY (p.user_id = e.created_by) DESC, p.id`,
		expenseID,
	)
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
	return r.listShares(ctx, `WHERE p.user_id = ? ORDER BY e.created_at, e.id`, userID)
}

// ListSharesByCreator returns every share on expenses created by creatorID.
func (r *ParticipantRepository) ListSharesByCreator(ctx context.Context, creatorID string) ([]domain.Share, error) {
	return r.listShares(ctx, `WHERE e.created_by = ? ORDER BY e.created_at, e.id, p.user_id`, creatorID)
}

func (r *ParticipantRepository) listShares(ctx context.Context, filter, arg string) ([]domain.Share, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+participantColumns+`,
		        e.description, e.amount, e.split_method, e.created_by, e.created_at, e.updated_at
		 FROM participants p
		 JOIN expenses e ON e.id = p.expense_id
		 `+filter,
		arg,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []domain.Share
	for rows.Next() {
		var (
			s                            domain.Share
			status, method               string
			pUpdated, eCreated, eUpdated int64
		)
		err := rows.Scan(
			&s.Participant.ID, &s.Participant.ExpenseID, &s.Participant.UserID,
			&s.Participant.Amount, &s.Participant.Percentage, &status, &pUpdated,
			&s.Expense.Description, &s.Expense.Amount, &method,
			&s.Expense.CreatedBy, &eCreated, &eUpdated,
		)
		if err != nil {
			return nil, err
		}

		s.Participant.Status = domain.ParticipantStatus(status)
		s.Participant.UpdatedAt = fromUnix(pUpdated)
		s.Expense.ID = s.Participant.ExpenseID
		s.Expense.SplitMethod = domain.SplitMethod(method)
		s.Expense.CreatedAt = fromUnix(eCreated)
		s.Expense.UpdatedAt = fromUnix(eUpdated)
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func scanParticipant(row rowScanner) (*domain.Participant, error) {
	var (
		p       domain.Participant
		pct     decimal.NullDecimal
		status  string
		updated int64
	)
	if err := row.Scan(&p.ID, &p.ExpenseID, &p.UserID, &p.Amount, &pct, &status, &updated); err != nil {
		return nil, err
	}
	p.Percentage = pct
	p.Status = domain.ParticipantStatus(status)
	p.UpdatedAt = fromUnix(updated)
	return &p, nil
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{db: store.db}
}

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	_, err = sqlTx(tx).ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, aggregate_type, event_type, payload, created_at, published)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.AggregateID, event.AggregateType, event.EventType,
		string(payload), toUnix(event.CreatedAt), event.Published,
	)
	return err
}

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at
		 FROM outbox_events WHERE published = 0
		 ORDER BY created_at, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var (
			event   domain.OutboxEvent
			payload string
			created int64
		)
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.AggregateType, &event.EventType, &payload, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &event.Payload); err != nil {
			return nil, fmt.Errorf("outbox event %s: invalid payload: %w", event.ID, err)
		}
		event.CreatedAt = fromUnix(created)
		events = append(events, &event)
	}
	return events, rows.Err()
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET published = 1, published_at = ? WHERE id = ?`,
		toUnix(publishedAt), id,
	)
	return err
}

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{db: store.db}
}

// CreateTx inserts an audit log entry within a transaction.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	var after any
	if log.AfterState != nil {
		data, err := json.Marshal(log.AfterState)
		if err != nil {
			return err
		}
		after = string(data)
	}

	_, err := sqlTx(tx).ExecContext(ctx,
		`INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, after_state, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.UserID, string(log.Action), log.ResourceType, log.ResourceID,
		after, string(log.Status), toUnix(log.CreatedAt),
	)
	return err
}

// ListByResource retrieves all audit logs for a resource, newest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, resource_type, resource_id, after_state, status, created_at
		 FROM audit_logs WHERE resource_type = ? AND resource_id = ?
		 ORDER BY created_at DESC, id`,
		resourceType, resourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var (
			log            domain.AuditLog
			action, status string
			after          sql.NullString
			created        int64
		)
		if err := rows.Scan(&log.ID, &log.UserID, &action, &log.ResourceType, &log.ResourceID, &after, &status, &created); err != nil {
			return nil, err
		}
		log.Action = domain.AuditAction(action)
		log.Status = domain.AuditStatus(status)
		log.CreatedAt = fromUnix(created)
		if after.Valid {
			if err := json.Unmarshal([]byte(after.String), &log.AfterState); err != nil {
				return nil, fmt.Errorf("audit log %s: invalid after state: %w", log.ID, err)
			}
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
