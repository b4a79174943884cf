package domain

import (
	"testing"
	"time"
)

func TestNewExpenseAudit(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	log := NewExpenseAudit("a1", "", AuditActionExpenseSettle, "e1",
		ExpenseSettledEvent{ExpenseID: "e1", Count: 2, All: true}, at)

	if log.UserID != SystemActor {
		t.Fatalf("expected system actor, got %q", log.UserID)
	}
	if log.ResourceType != AggregateTypeExpense || log.ResourceID != "e1" {
		t.Fatalf("unexpected resource %s/%s", log.ResourceType, log.ResourceID)
	}
	if log.Status != AuditStatusSuccess || !log.CreatedAt.Equal(at) {
		t.Fatalf("unexpected status or time: %s %s", log.Status, log.CreatedAt)
	}
	// numbers come back as float64 after the JSON round trip
	if log.AfterState["count"] != float64(2) || log.AfterState["all"] != true {
		t.Fatalf("unexpected after state: %v", log.AfterState)
	}
}

func TestMarshalState(t *testing.T) {
	if got := MarshalState(nil); got != nil {
		t.Fatalf("expected nil state, got %v", got)
	}
	if got := MarshalState([]string{"a"}); got["error"] == nil {
		t.Fatalf("expected error entry for non-object, got %v", got)
	}
	if got := MarshalState(func() {}); got["error"] == nil {
		t.Fatalf("expected error entry for unencodable value, got %v", got)
	}
}
