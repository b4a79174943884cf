package dto

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gosplit/internal/domain"
)

func TestParticipantsData_KeepsDocumentOrder(t *testing.T) {
	var req CreateExpenseRequest
	body := `{"description":"Trip","amount":9000,"split_method":"exact",
		"participants_data":{"zed":"2000","amy":2000,"mid":4000.5,"none":null},
		"self_amount":1000}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	entries := domain.ParticipantEntries(req.ParticipantsData)
	assert.Equal(t, []string{"zed", "amy", "mid", "none"}, entries.UserIDs())
	assert.True(t, entries[0].Value.Decimal.Equal(decimal.NewFromInt(2000)))
	assert.True(t, entries[2].Value.Decimal.Equal(decimal.RequireFromString("4000.5")))
	assert.False(t, entries[3].Value.Valid)
}

func TestParticipantsData_RejectsDuplicateKeys(t *testing.T) {
	var p ParticipantsData
	err := json.Unmarshal([]byte(`{"u1":10,"u2":20,"u1":30}`), &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateParticipant))
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestParticipantsData_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array", `["u1","u2"]`},
		{"boolean value", `{"u1":true}`},
		{"text value", `{"u1":"ten"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p ParticipantsData
			assert.Error(t, json.Unmarshal([]byte(tt.body), &p))
		})
	}
}

func TestParticipantsData_NullAndRoundTrip(t *testing.T) {
	var p ParticipantsData
	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Nil(t, p)

	in := ParticipantsData{
		{UserID: "b", Value: decimal.NewNullDecimal(decimal.RequireFromString("12.5"))},
		{UserID: "a"},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":12.5,"a":null}`, string(data))
	assert.Equal(t, `{"b":12.5,"a":null}`, string(data))
}

func TestCreateExpenseRequest_ToUseCaseInput(t *testing.T) {
	pct := decimal.NewNullDecimal(decimal.NewFromInt(10))
	amt := decimal.NewNullDecimal(decimal.NewFromInt(1000))
	participants := ParticipantsData{{UserID: "u2"}}

	tests := []struct {
		name        string
		req         CreateExpenseRequest
		wantMethod  domain.SplitMethod
		wantInclude bool
		wantValue   decimal.NullDecimal
	}{
		{
			name:        "equal uses self",
			req:         CreateExpenseRequest{SplitMethod: "equal", Self: true, SelfAmount: amt},
			wantMethod:  domain.SplitEqual,
			wantInclude: true,
		},
		{
			name:       "exact uses self_amount",
			req:        CreateExpenseRequest{SplitMethod: " Exact ", Self: true, SelfAmount: amt, SelfPercentage: pct},
			wantMethod: domain.SplitExact,
			wantValue:  amt,
		},
		{
			name:       "percentage uses self_percentage",
			req:        CreateExpenseRequest{SplitMethod: "percentage", SelfAmount: amt, SelfPercentage: pct},
			wantMethod: domain.SplitPercentage,
			wantValue:  pct,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Description = "Trip"
			tt.req.Amount = decimal.NewFromInt(9000)
			tt.req.ParticipantsData = participants

			got := tt.req.ToUseCaseInput("u1")
			assert.Equal(t, "u1", got.CreatorID)
			assert.Equal(t, tt.wantMethod, got.SplitMethod)
			assert.Equal(t, tt.wantInclude, got.IncludeCreator)
			assert.Equal(t, tt.wantValue, got.CreatorValue)
			assert.Equal(t, []string{"u2"}, got.Participants.UserIDs())
		})
	}
}
