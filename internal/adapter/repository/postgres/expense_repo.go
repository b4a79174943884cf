package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
)

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db querier
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{db: pool}
}

// Create inserts an expense within a transaction.
func (r *ExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (id, description, amount, split_method, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := pgxTx(tx).Exec(ctx, query,
		expense.ID,
		expense.Description,
		decimalToNumeric(expense.Amount),
		string(expense.SplitMethod),
		expense.CreatedBy,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	return err
}

// GetByID retrieves an expense without its participants.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	query := `
		SELECT id, description, amount, split_method, created_by, created_at, updated_at
		FROM expenses
		WHERE id = $1
	`

	var (
		e      domain.Expense
		amount pgtype.Numeric
		method string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.Description, &amount, &method, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}

	e.Amount = numericToDecimal(amount)
	e.SplitMethod = domain.SplitMethod(method)
	return &e, nil
}
