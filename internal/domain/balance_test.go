package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = &User{ID: "u1", Name: "Alice", Email: "alice@example.com"}
	bob   = &User{ID: "u2", Name: "Bob", Email: "bob@example.com"}
	carol = &User{ID: "u3", Name: "Carol", Email: "carol@example.com"}

	directory = map[string]*User{alice.ID: alice, bob.ID: bob, carol.ID: carol}
)

func share(expenseID, creator, user, amount string, status ParticipantStatus, at time.Time) Share {
	return Share{
		Participant: Participant{ExpenseID: expenseID, UserID: user, Amount: d(amount), Status: status},
		Expense: Expense{
			ID:          expenseID,
			Description: "expense " + expenseID,
			Amount:      d("100"),
			SplitMethod: SplitEqual,
			CreatedBy:   creator,
			CreatedAt:   at,
		},
	}
}

func TestBuildOweSummary_SameCreatorSumsPending(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bobShares := []Share{
		share("e1", "u1", "u2", "30", StatusPending, t0),
		share("e2", "u1", "u2", "20", StatusPending, t0.Add(time.Hour)),
		share("e3", "u1", "u2", "99", StatusSettled, t0.Add(2*time.Hour)),
	}

	summary := BuildOweSummary("u2", bobShares, nil, directory)
	require.Len(t, summary.PeopleIOwe, 1)
	assert.Equal(t, "Alice", summary.PeopleIOwe[0].Name)
	assert.Equal(t, "u1", summary.PeopleIOwe[0].UserID)
	assert.True(t, summary.PeopleIOwe[0].Total.Equal(d("50")))
	assert.Empty(t, summary.PeopleOweMe)
}

func TestBuildOweSummary_NoNetting(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mine := []Share{
		share("e1", "u2", "u1", "40", StatusPending, t0),
		share("e2", "u1", "u1", "10", StatusSettled, t0),
	}
	created := []Share{
		share("e2", "u1", "u1", "10", StatusSettled, t0),
		share("e2", "u1", "u2", "25", StatusPending, t0),
		share("e2", "u1", "u3", "25", StatusPending, t0),
	}

	summary := BuildOweSummary("u1", mine, created, directory)
	require.Len(t, summary.PeopleIOwe, 1)
	assert.True(t, summary.PeopleIOwe[0].Total.Equal(d("40")))

	require.Len(t, summary.PeopleOweMe, 2)
	assert.Equal(t, "Bob", summary.PeopleOweMe[0].Name)
	assert.Equal(t, "Carol", summary.PeopleOweMe[1].Name)
	assert.True(t, summary.PeopleOweMe[0].Total.Equal(d("25")))
}

func TestBuildOweSummary_GroupsByUserNotName(t *testing.T) {
	twin := &User{ID: "u9", Name: "Alice"}
	users := map[string]*User{alice.ID: alice, bob.ID: bob, twin.ID: twin}
	t0 := time.Now()
	mine := []Share{
		share("e1", "u1", "u2", "5", StatusPending, t0),
		share("e2", "u9", "u2", "7", StatusPending, t0),
	}

	summary := BuildOweSummary("u2", mine, nil, users)
	require.Len(t, summary.PeopleIOwe, 2)
	assert.Equal(t, "u1", summary.PeopleIOwe[0].UserID)
	assert.Equal(t, "u9", summary.PeopleIOwe[1].UserID)
}

func TestBuildUserExpenses(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mine := []Share{
		share("e2", "u1", "u1", "50", StatusSettled, t0.Add(time.Hour)),
		share("e1", "u3", "u1", "30", StatusPending, t0),
		share("e3", "u3", "u1", "30", StatusSettled, t0),
	}
	created := []Share{
		share("e2", "u1", "u1", "50", StatusSettled, t0.Add(time.Hour)),
		share("e2", "u1", "u2", "50", StatusPending, t0.Add(time.Hour)),
		share("e4", "u1", "u3", "100", StatusSettled, t0.Add(2*time.Hour)),
	}

	view := BuildUserExpenses("u1", mine, created, directory)

	require.Len(t, view.IOwe, 1)
	assert.Equal(t, "e1", view.IOwe[0].ExpenseID)
	assert.Equal(t, "carol@example.com", view.IOwe[0].Creator.Email)
	assert.True(t, view.IOwe[0].Amount.Equal(d("30")))

	require.Len(t, view.OthersOweMe, 2)
	assert.Equal(t, "e2", view.OthersOweMe[0].ExpenseID)
	require.Len(t, view.OthersOweMe[0].Participants, 1)
	assert.Equal(t, "Bob", view.OthersOweMe[0].Participants[0].User.Name)
	assert.Equal(t, StatusPending, view.OthersOweMe[0].Participants[0].Status)
	assert.Equal(t, StatusSettled, view.OthersOweMe[1].Participants[0].Status)
}

func TestBuildBalanceSheet(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mine := []Share{
		share("e2", "u1", "u2", "50", StatusSettled, t0.Add(time.Hour)),
		share("e1", "u3", "u2", "30", StatusPending, t0),
	}

	rows := BuildBalanceSheet(mine, directory)
	require.Len(t, rows, 2)
	assert.Equal(t, "e1", rows[0].ExpenseID)
	assert.Equal(t, "Carol", rows[0].CreatedBy)
	assert.True(t, rows[0].UserShare.Equal(d("30")))
	assert.True(t, rows[0].TotalAmount.Equal(d("100")))
	assert.Equal(t, StatusSettled, rows[1].Status)
}

func TestBuildViews_UnknownUserKeepsID(t *testing.T) {
	rows := BuildBalanceSheet([]Share{share("e1", "ghost", "u1", "1", StatusPending, time.Now())}, directory)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].CreatedBy)

	ids := ShareUserIDs([]Share{share("e1", "ghost", "u1", "1", StatusPending, time.Now())})
	assert.ElementsMatch(t, []string{"u1", "ghost"}, ids)
}
