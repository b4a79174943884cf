package domain

import (
	"encoding/json"
	"time"
)

// SystemActor is recorded when a change has no authenticated user.
const SystemActor = "system"

// AuditAction names a state change on an expense.
type AuditAction string

const (
	AuditActionExpenseCreate AuditAction = "expense.create"
	AuditActionExpenseSettle AuditAction = "expense.settle"
)

// AuditStatus is the outcome of an audited action. Rows are only written
// for committed changes.
type AuditStatus string

const AuditStatusSuccess AuditStatus = "success"

// JSON is a decoded JSON object.
type JSON map[string]any

// AuditLog is written in the same transaction as the change it records.
type AuditLog struct {
	ID           string
	UserID       string
	Action       AuditAction
	ResourceType string
	ResourceID   string
	AfterState   JSON
	Status       AuditStatus
	CreatedAt    time.Time
}

// NewExpenseAudit records action on expenseID with state as the after image.
func NewExpenseAudit(id, actor string, action AuditAction, expenseID string, state any, at time.Time) *AuditLog {
	if actor == "" {
		actor = SystemActor
	}
	return &AuditLog{
		ID:           id,
		UserID:       actor,
		Action:       action,
		ResourceType: AggregateTypeExpense,
		ResourceID:   expenseID,
		AfterState:   MarshalState(state),
		Status:       AuditStatusSuccess,
		CreatedAt:    at,
	}
}

// MarshalState round-trips v through JSON into a generic object. Values
// that do not encode as an object yield an error entry.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var out JSON
	if err := json.Unmarshal(data, &out); err != nil {
		return JSON{"error": "state is not an object"}
	}
	return out
}
