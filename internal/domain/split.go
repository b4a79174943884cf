package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParticipantEntry is one user reference with its raw split value. The
// value is an amount for exact splits, a percentage for percentage splits
// and ignored for equal splits.
type ParticipantEntry struct {
	UserID string
	Value  decimal.NullDecimal
}

// ParticipantEntries is an ordered list of entries keyed by user id.
type ParticipantEntries []ParticipantEntry

// UserIDs returns the user references in input order.
func (e ParticipantEntries) UserIDs() []string {
	ids := make([]string, 0, len(e))
	for _, entry := range e {
		ids = append(ids, entry.UserID)
	}
	return ids
}

// SplitInput is everything a strategy needs to compute shares.
type SplitInput struct {
	Total     decimal.Decimal
	CreatorID string
	// IncludeCreator adds the creator to an equal split.
	IncludeCreator bool
	// CreatorValue is the creator's amount (exact) or percentage (percentage).
	CreatorValue decimal.NullDecimal
	Entries      ParticipantEntries
}

// ParticipantShare is a computed share before persistence.
type ParticipantShare struct {
	UserID     string
	Amount     decimal.Decimal
	Percentage decimal.NullDecimal
	Status     ParticipantStatus
}

// SplitStrategy divides an expense total into participant shares. The
// creator's share, when present, comes first and is already settled.
type SplitStrategy interface {
	Method() SplitMethod
	Split(in SplitInput) ([]ParticipantShare, error)
}

// StrategyFor returns the strategy implementing method.
func StrategyFor(method SplitMethod) (SplitStrategy, error) {
	switch method {
	case SplitEqual:
		return EqualSplit{}, nil
	case SplitExact:
		return ExactSplit{}, nil
	case SplitPercentage:
		return PercentageSplit{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(method))
	}
}

// EqualSplit gives every participant the same share.
type EqualSplit struct{}

func (EqualSplit) Method() SplitMethod { return SplitEqual }

func (EqualSplit) Split(in SplitInput) ([]ParticipantShare, error) {
	if err := in.validate(in.IncludeCreator); err != nil {
		return nil, err
	}

	divisor := int64(len(in.Entries))
	if in.IncludeCreator {
		divisor++
	}

	share := RoundMoney(in.Total.Div(decimal.NewFromInt(divisor)))
	pct := decimal.NewNullDecimal(PercentageShare(share, in.Total))

	shares := make([]ParticipantShare, 0, divisor)
	if in.IncludeCreator {
		shares = append(shares, ParticipantShare{UserID: in.CreatorID, Amount: share, Percentage: pct, Status: StatusSettled})
	}
	for _, e := range in.Entries {
		shares = append(shares, ParticipantShare{UserID: e.UserID, Amount: share, Percentage: pct, Status: StatusPending})
	}

	spreadResidual(shares, in.Total)
	return shares, nil
}

// ExactSplit takes each participant's amount as given.
type ExactSplit struct{}

func (ExactSplit) Method() SplitMethod { return SplitExact }

func (ExactSplit) Split(in SplitInput) ([]ParticipantShare, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if !in.CreatorValue.Valid {
		return nil, fmt.Errorf("%w: creator amount", ErrMissingValue)
	}

	shares := make([]ParticipantShare, 0, len(in.Entries)+1)
	add := func(userID string, value decimal.Decimal, status ParticipantStatus) error {
		amount := RoundMoney(value)
		if amount.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeShare, userID)
		}
		shares = append(shares, ParticipantShare{
			UserID:     userID,
			Amount:     amount,
			Percentage: decimal.NewNullDecimal(PercentageShare(amount, in.Total)),
			Status:     status,
		})
		return nil
	}

	if err := add(in.CreatorID, in.CreatorValue.Decimal, StatusSettled); err != nil {
		return nil, err
	}
	for _, e := range in.Entries {
		if !e.Value.Valid {
			return nil, fmt.Errorf("%w: %s", ErrMissingValue, e.UserID)
		}
		if err := add(e.UserID, e.Value.Decimal, StatusPending); err != nil {
			return nil, err
		}
	}

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	if !MoneyEqual(sum, in.Total) {
		return nil, newSplitMismatch(in.Total, sum)
	}
	return shares, nil
}

// PercentageSplit assigns each participant a percentage of the total.
type PercentageSplit struct{}

func (PercentageSplit) Method() SplitMethod { return SplitPercentage }

func (PercentageSplit) Split(in SplitInput) ([]ParticipantShare, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if !in.CreatorValue.Valid {
		return nil, fmt.Errorf("%w: creator percentage", ErrMissingValue)
	}

	type pctEntry struct {
		userID string
		pct    decimal.Decimal
		status ParticipantStatus
	}
	entries := make([]pctEntry, 0, len(in.Entries)+1)
	entries = append(entries, pctEntry{in.CreatorID, RoundMoney(in.CreatorValue.Decimal), StatusSettled})
	for _, e := range in.Entries {
		if !e.Value.Valid {
			return nil, fmt.Errorf("%w: %s", ErrMissingValue, e.UserID)
		}
		entries = append(entries, pctEntry{e.UserID, RoundMoney(e.Value.Decimal), StatusPending})
	}

	// Range is checked on every entry before the sum.
	sum := decimal.Zero
	for _, e := range entries {
		if e.pct.IsNegative() || e.pct.GreaterThan(Hundred) {
			return nil, fmt.Errorf("%w: %s has %s", ErrOutOfRange, e.userID, e.pct.StringFixed(2))
		}
		sum = sum.Add(e.pct)
	}
	if !MoneyEqual(sum, Hundred) {
		return nil, newSplitMismatch(Hundred, sum)
	}

	shares := make([]ParticipantShare, 0, len(entries))
	for _, e := range entries {
		shares = append(shares, ParticipantShare{
			UserID:     e.userID,
			Amount:     PercentageOf(in.Total, e.pct),
			Percentage: decimal.NewNullDecimal(e.pct),
			Status:     e.status,
		})
	}
	// Percentages within a cent of 100 are accepted, so the amounts are
	// always reconciled against the total.
	spreadResidual(shares, in.Total)
	return shares, nil
}

func (in SplitInput) validate(creatorIncluded bool) error {
	if !in.Total.IsPositive() {
		return ErrInvalidAmount
	}

	seen := make(map[string]struct{}, len(in.Entries))
	for _, e := range in.Entries {
		id := strings.TrimSpace(e.UserID)
		if id == "" {
			return fmt.Errorf("%w: empty user reference", ErrMissingParticipants)
		}
		if id == in.CreatorID {
			return fmt.Errorf("%w: creator %s", ErrDuplicateParticipant, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
	}

	if len(in.Entries) == 0 && !creatorIncluded {
		return ErrMissingParticipants
	}
	return nil
}

// spreadResidual hands the cents lost to rounding back to the shares in
// order, one cent each, so the amounts add up to total exactly. Cents are
// never taken from a share that would drop below zero.
func spreadResidual(shares []ParticipantShare, total decimal.Decimal) {
	if len(shares) == 0 {
		return
	}

	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s.Amount)
	}
	residual := total.Sub(sum)
	if residual.IsZero() {
		return
	}

	step := Cent
	if residual.IsNegative() {
		step = Cent.Neg()
	}
	n := residual.Div(step).IntPart()
	for i, skipped := 0, 0; n > 0 && skipped < len(shares); i++ {
		idx := i % len(shares)
		next := shares[idx].Amount.Add(step)
		if next.IsNegative() {
			skipped++
			continue
		}
		shares[idx].Amount = next
		skipped = 0
		n--
	}
}
