package usecase

import (
	"context"
	"time"

	"github.com/iho/gosplit/internal/domain"
)

// UserRepository defines data access for the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
}

// ExpenseRepository defines data access for expenses.
type ExpenseRepository interface {
	Create(ctx context.Context, tx Transaction, expense *domain.Expense) error
	GetByID(ctx context.Context, id string) (*domain.Expense, error)
}

// ParticipantRepository defines data access for participant shares.
type ParticipantRepository interface {
	CreateBatch(ctx context.Context, tx Transaction, participants []*domain.Participant) error
	// GetPendingForUpdate locks the pending share of userID on expenseID.
	// Returns domain.ErrParticipantNotFound when there is none.
	GetPendingForUpdate(ctx context.Context, tx Transaction, expenseID, userID string) (*domain.Participant, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.ParticipantStatus, updatedAt time.Time) error
	// SettleAllPending settles every pending share on expenseID and returns how many changed.
	SettleAllPending(ctx context.Context, tx Transaction, expenseID string, updatedAt time.Time) (int64, error)
	ListByExpense(ctx context.Context, expenseID string) ([]*domain.Participant, error)
	// ListSharesByUser returns every share held by userID joined with its expense.
	ListSharesByUser(ctx context.Context, userID string) ([]domain.Share, error)
	// ListSharesByCreator returns every share on expenses created by creatorID.
	ListSharesByCreator(ctx context.Context, creatorID string) ([]domain.Share, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so the request may be retried.
	Release(ctx context.Context, key string) error
}

// UserDirectory resolves user references for the expense engine.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ResolveUsers(ctx context.Context, ids []string) (map[string]*domain.User, error)
}
