package domain

import "time"

// Event types
const (
	EventTypeExpenseCreated = "expense.created"
	EventTypeExpenseSettled = "expense.settled"
)

// Aggregate types
const (
	AggregateTypeExpense = "expense"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// ExpenseCreatedEvent payload
type ExpenseCreatedEvent struct {
	ExpenseID    string   `json:"expense_id"`
	CreatedBy    string   `json:"created_by"`
	Amount       string   `json:"amount"`
	SplitMethod  string   `json:"split_method"`
	Participants []string `json:"participants"`
}

// ExpenseSettledEvent payload
type ExpenseSettledEvent struct {
	ExpenseID string   `json:"expense_id"`
	SettledBy string   `json:"settled_by"`
	UserIDs   []string `json:"user_ids,omitempty"`
	Count     int64    `json:"count"`
	All       bool     `json:"all"`
}

// NewExpenseCreatedEvent builds the outbox event for a new expense.
func NewExpenseCreatedEvent(id string, e *Expense) *OutboxEvent {
	users := make([]string, 0, len(e.Participants))
	for _, p := range e.Participants {
		users = append(users, p.UserID)
	}
	return &OutboxEvent{
		ID:            id,
		AggregateID:   e.ID,
		AggregateType: AggregateTypeExpense,
		EventType:     EventTypeExpenseCreated,
		Payload: MarshalState(ExpenseCreatedEvent{
			ExpenseID:    e.ID,
			CreatedBy:    e.CreatedBy,
			Amount:       e.Amount.StringFixed(MoneyPlaces),
			SplitMethod:  string(e.SplitMethod),
			Participants: users,
		}),
		CreatedAt: e.CreatedAt,
	}
}

// NewExpenseSettledEvent builds the outbox event for a settlement.
func NewExpenseSettledEvent(id string, payload ExpenseSettledEvent, at time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   payload.ExpenseID,
		AggregateType: AggregateTypeExpense,
		EventType:     EventTypeExpenseSettled,
		Payload:       MarshalState(payload),
		CreatedAt:     at,
	}
}
