package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/gosplit/internal/domain"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.ExpensesCreated == nil || m.ParticipantsSettled == nil || m.ViewDuration == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.ExpensesCreated.WithLabelValues("equal").Inc()
	m.ParticipantsSettled.Add(3)

	if got := testutil.ToFloat64(m.ExpensesCreated.WithLabelValues("equal")); got != 1 {
		t.Fatalf("expected 1 equal expense, got %v", got)
	}
	if got := testutil.ToFloat64(m.ParticipantsSettled); got != 3 {
		t.Fatalf("expected 3 settled participants, got %v", got)
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestRejectionReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&domain.SplitMismatchError{}, "mismatch"},
		{fmt.Errorf("%w: u2", domain.ErrOutOfRange), "out_of_range"},
		{&domain.ParticipantNotFoundError{UserID: "x"}, "unknown_participant"},
		{domain.ErrInvalidDescription, "invalid_input"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		if got := RejectionReason(tt.err); got != tt.want {
			t.Errorf("RejectionReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
