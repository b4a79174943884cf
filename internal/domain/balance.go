package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// UserExpenses lists what a user owes and what is owed on expenses they created.
type UserExpenses struct {
	IOwe        []OwedShare
	OthersOweMe []CreatedExpense
}

// OwedShare is a pending share the user holds on someone else's expense.
type OwedShare struct {
	ExpenseID   string
	Description string
	Amount      decimal.Decimal
	SplitMethod SplitMethod
	Creator     UserRef
	Status      ParticipantStatus
	CreatedAt   time.Time
}

// CreatedExpense is an expense the user paid, with the other participants.
type CreatedExpense struct {
	ExpenseID    string
	Description  string
	Amount       decimal.Decimal
	SplitMethod  SplitMethod
	CreatedAt    time.Time
	Participants []ParticipantLine
}

// ParticipantLine is one counterparty's share on a created expense.
type ParticipantLine struct {
	User   UserRef
	Amount decimal.Decimal
	Status ParticipantStatus
}

// UserRef is the display identity of a user in a view.
type UserRef struct {
	ID    string
	Name  string
	Email string
}

// OweSummary totals pending money per counterparty in both directions.
type OweSummary struct {
	PeopleIOwe  []CounterpartyTotal
	PeopleOweMe []CounterpartyTotal
}

// CounterpartyTotal is the pending sum owed between the user and one other user.
type CounterpartyTotal struct {
	UserID string
	Name   string
	Total  decimal.Decimal
}

// BalanceSheetRow is one share the user holds.
type BalanceSheetRow struct {
	ExpenseID   string
	Description string
	UserShare   decimal.Decimal
	TotalAmount decimal.Decimal
	SplitMethod SplitMethod
	CreatedBy   string
	CreatedAt   time.Time
	Status      ParticipantStatus
}

// BuildUserExpenses reduces the user's own shares and the shares on
// expenses they created into the two expense listings.
func BuildUserExpenses(userID string, myShares, createdShares []Share, users map[string]*User) UserExpenses {
	out := UserExpenses{
		IOwe:        []OwedShare{},
		OthersOweMe: []CreatedExpense{},
	}

	for _, s := range sortShares(myShares) {
		if !s.Participant.IsPending() || s.Participant.UserID != userID || s.Expense.CreatedBy == userID {
			continue
		}
		out.IOwe = append(out.IOwe, OwedShare{
			ExpenseID:   s.Expense.ID,
			Description: s.Expense.Description,
			Amount:      s.Participant.Amount,
			SplitMethod: s.Expense.SplitMethod,
			Creator:     refFor(s.Expense.CreatedBy, users),
			Status:      s.Participant.Status,
			CreatedAt:   s.Expense.CreatedAt,
		})
	}

	index := make(map[string]int)
	for _, s := range sortShares(createdShares) {
		if s.Expense.CreatedBy != userID {
			continue
		}
		i, ok := index[s.Expense.ID]
		if !ok {
			i = len(out.OthersOweMe)
			index[s.Expense.ID] = i
			out.OthersOweMe = append(out.OthersOweMe, CreatedExpense{
				ExpenseID:    s.Expense.ID,
				Description:  s.Expense.Description,
				Amount:       s.Expense.Amount,
				SplitMethod:  s.Expense.SplitMethod,
				CreatedAt:    s.Expense.CreatedAt,
				Participants: []ParticipantLine{},
			})
		}
		if s.Participant.UserID == userID {
			continue
		}
		out.OthersOweMe[i].Participants = append(out.OthersOweMe[i].Participants, ParticipantLine{
			User:   refFor(s.Participant.UserID, users),
			Amount: s.Participant.Amount,
			Status: s.Participant.Status,
		})
	}

	return out
}

// BuildOweSummary sums pending shares per counterparty. The two directions
// are reported separately and never netted against each other.
func BuildOweSummary(userID string, myShares, createdShares []Share, users map[string]*User) OweSummary {
	iOwe := newTotals()
	for _, s := range myShares {
		if !s.Participant.IsPending() || s.Participant.UserID != userID || s.Expense.CreatedBy == userID {
			continue
		}
		iOwe.add(s.Expense.CreatedBy, s.Participant.Amount)
	}

	oweMe := newTotals()
	for _, s := range createdShares {
		if !s.Participant.IsPending() || s.Expense.CreatedBy != userID || s.Participant.UserID == userID {
			continue
		}
		oweMe.add(s.Participant.UserID, s.Participant.Amount)
	}

	return OweSummary{
		PeopleIOwe:  iOwe.list(users),
		PeopleOweMe: oweMe.list(users),
	}
}

// BuildBalanceSheet lists every share the user holds, settled or not.
func BuildBalanceSheet(myShares []Share, users map[string]*User) []BalanceSheetRow {
	rows := make([]BalanceSheetRow, 0, len(myShares))
	for _, s := range sortShares(myShares) {
		rows = append(rows, BalanceSheetRow{
			ExpenseID:   s.Expense.ID,
			Description: s.Expense.Description,
			UserShare:   s.Participant.Amount,
			TotalAmount: s.Expense.Amount,
			SplitMethod: s.Expense.SplitMethod,
			CreatedBy:   refFor(s.Expense.CreatedBy, users).Name,
			CreatedAt:   s.Expense.CreatedAt,
			Status:      s.Participant.Status,
		})
	}
	return rows
}

type totals struct {
	order []string
	sums  map[string]decimal.Decimal
}

func newTotals() *totals {
	return &totals{sums: make(map[string]decimal.Decimal)}
}

func (t *totals) add(userID string, amount decimal.Decimal) {
	cur, ok := t.sums[userID]
	if !ok {
		t.order = append(t.order, userID)
	}
	t.sums[userID] = cur.Add(amount)
}

func (t *totals) list(users map[string]*User) []CounterpartyTotal {
	out := make([]CounterpartyTotal, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, CounterpartyTotal{
			UserID: id,
			Name:   refFor(id, users).Name,
			Total:  t.sums[id],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func refFor(userID string, users map[string]*User) UserRef {
	if u, ok := users[userID]; ok && u != nil {
		return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return UserRef{ID: userID}
}

// sortShares orders by expense creation time, then expense id, then user id.
func sortShares(shares []Share) []Share {
	out := make([]Share, len(shares))
	copy(out, shares)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Expense.CreatedAt.Equal(b.Expense.CreatedAt) {
			return a.Expense.CreatedAt.Before(b.Expense.CreatedAt)
		}
		if a.Expense.ID != b.Expense.ID {
			return a.Expense.ID < b.Expense.ID
		}
		return a.Participant.UserID < b.Participant.UserID
	})
	return out
}

// ShareUserIDs collects every user referenced by the given shares.
func ShareUserIDs(groups ...[]Share) []string {
	seen := make(map[string]struct{})
	var ids []string
	addID := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, shares := range groups {
		for _, s := range shares {
			addID(s.Participant.UserID)
			addID(s.Expense.CreatedBy)
		}
	}
	return ids
}
