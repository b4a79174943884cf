package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
)

// ParticipantsData is the participants_data object. Keys are user ids and
// values the split value; document order is preserved.
type ParticipantsData domain.ParticipantEntries

var errNotObject = errors.New("participants_data must be an object")

// UnmarshalJSON decodes the object token by token so that key order is kept
// and repeated keys are rejected.
func (p *ParticipantsData) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*p = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	entries := ParticipantsData{}
	seen := make(map[string]struct{})
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		userID := strings.TrimSpace(keyTok.(string))

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value decimal.NullDecimal
		if err := value.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("participants_data[%q]: %w", userID, err)
		}

		if _, dup := seen[userID]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateParticipant, userID)
		}
		seen[userID] = struct{}{}
		entries = append(entries, domain.ParticipantEntry{UserID: userID, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*p = entries
	return nil
}

// MarshalJSON writes the entries back as an object in order.
func (p ParticipantsData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.UserID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if e.Value.Valid {
			buf.WriteString(e.Value.Decimal.String())
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CreateExpenseRequest represents a request to create an expense.
type CreateExpenseRequest struct {
	Description      string              `json:"description"`
	Amount           decimal.Decimal     `json:"amount"`
	SplitMethod      string              `json:"split_method"`
	ParticipantsData ParticipantsData    `json:"participants_data"`
	Self             bool                `json:"self"`
	SelfAmount       decimal.NullDecimal `json:"self_amount"`
	SelfPercentage   decimal.NullDecimal `json:"self_percentage"`
}

// ToUseCaseInput converts to use case input for creatorID.
func (r *CreateExpenseRequest) ToUseCaseInput(creatorID string) usecase.CreateExpenseInput {
	method := domain.SplitMethod(strings.ToLower(strings.TrimSpace(r.SplitMethod)))

	input := usecase.CreateExpenseInput{
		Description:  r.Description,
		Amount:       r.Amount,
		SplitMethod:  method,
		CreatorID:    creatorID,
		Participants: domain.ParticipantEntries(r.ParticipantsData),
	}

	switch method {
	case domain.SplitEqual:
		input.IncludeCreator = r.Self
	case domain.SplitExact:
		input.CreatorValue = r.SelfAmount
	case domain.SplitPercentage:
		input.CreatorValue = r.SelfPercentage
	}

	return input
}

// SettleExpenseRequest selects the shares to settle. An empty body settles all.
type SettleExpenseRequest struct {
	UserIDs []string `json:"user_ids,omitempty"`
}
