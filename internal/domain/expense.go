package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitMethod selects how an expense total is divided.
type SplitMethod string

const (
	SplitEqual      SplitMethod = "equal"
	SplitExact      SplitMethod = "exact"
	SplitPercentage SplitMethod = "percentage"
)

// Valid reports whether m is a known split method.
func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitExact, SplitPercentage:
		return true
	}
	return false
}

// ParticipantStatus is the settlement state of a share.
type ParticipantStatus string

const (
	// StatusPending means the share is still owed to the expense creator.
	StatusPending ParticipantStatus = "pending"

	// StatusSettled means the share has been paid. Terminal.
	StatusSettled ParticipantStatus = "settled"
)

// Expense is a shared cost paid by its creator. Immutable once created.
type Expense struct {
	ID           string
	Description  string
	Amount       decimal.Decimal
	SplitMethod  SplitMethod
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Participants []*Participant
}

// Participant is one user's share of an expense.
type Participant struct {
	ID         string
	ExpenseID  string
	UserID     string
	Amount     decimal.Decimal
	Percentage decimal.NullDecimal
	Status     ParticipantStatus
	UpdatedAt  time.Time
}

// IsPending reports whether the share is still owed.
func (p *Participant) IsPending() bool {
	return p.Status == StatusPending
}

// Settle marks a pending share as paid.
func (p *Participant) Settle(at time.Time) error {
	if p.Status != StatusPending {
		return ErrAlreadySettled
	}
	p.Status = StatusSettled
	p.UpdatedAt = at
	return nil
}

// Share is a participant row joined with the expense it belongs to.
type Share struct {
	Participant Participant
	Expense     Expense
}

// NewParticipants turns computed shares into participant rows for expense.
func NewParticipants(expenseID string, shares []ParticipantShare, ids func() string, at time.Time) []*Participant {
	out := make([]*Participant, 0, len(shares))
	for _, s := range shares {
		out = append(out, &Participant{
			ID:         ids(),
			ExpenseID:  expenseID,
			UserID:     s.UserID,
			Amount:     s.Amount,
			Percentage: s.Percentage,
			Status:     s.Status,
			UpdatedAt:  at,
		})
	}
	return out
}
