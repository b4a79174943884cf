package metrics

import (
	"errors"

	"github.com/iho/gosplit/internal/domain"
)

var reasons = []struct {
	err   error
	label string
}{
	{domain.ErrSplitMismatch, "mismatch"},
	{domain.ErrOutOfRange, "out_of_range"},
	{domain.ErrMissingValue, "missing_value"},
	{domain.ErrMissingParticipants, "missing_participants"},
	{domain.ErrDuplicateParticipant, "duplicate_participant"},
	{domain.ErrNegativeShare, "negative_share"},
	{domain.ErrUnsupportedMethod, "unsupported_method"},
	{domain.ErrParticipantNotFound, "unknown_participant"},
	{domain.ErrValidation, "invalid_input"},
}

// RejectionReason maps an expense creation failure to a low-cardinality label.
func RejectionReason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "internal"
}
