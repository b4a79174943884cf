package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/usecase"
)

// Money renders an amount with two decimal places.
func Money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyPlaces)
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	// Expected, Actual and Delta are set for split mismatches.
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
	Delta    string `json:"delta,omitempty"`
}

// UserResponse represents a directory entry.
type UserResponse struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// UserFromDomain converts a domain user to response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{UserID: u.ID, Name: u.Name, Email: u.Email}
}

// CreateExpenseResponse is returned on a successful create.
type CreateExpenseResponse struct {
	ExpenseID string `json:"expense_id"`
	Message   string `json:"message"`
}

// ExpenseCreatedMessage is the create confirmation text.
const ExpenseCreatedMessage = "Expense created successfully."

// ExpenseResponse represents one expense with all its shares.
type ExpenseResponse struct {
	ExpenseID    string                `json:"expense_id"`
	Description  string                `json:"description"`
	Amount       string                `json:"amount"`
	SplitMethod  string                `json:"split_method"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants []ParticipantResponse `json:"participants"`
}

// ParticipantResponse represents one share of an expense.
type ParticipantResponse struct {
	UserID     string  `json:"user_id"`
	Amount     string  `json:"amount"`
	Percentage *string `json:"percentage"`
	Status     string  `json:"status"`
}

// ExpenseFromDomain converts a domain expense to response.
func ExpenseFromDomain(e *domain.Expense) *ExpenseResponse {
	resp := &ExpenseResponse{
		ExpenseID:    e.ID,
		Description:  e.Description,
		Amount:       Money(e.Amount),
		SplitMethod:  string(e.SplitMethod),
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
		Participants: make([]ParticipantResponse, 0, len(e.Participants)),
	}
	for _, p := range e.Participants {
		pr := ParticipantResponse{
			UserID: p.UserID,
			Amount: Money(p.Amount),
			Status: string(p.Status),
		}
		if p.Percentage.Valid {
			pct := Money(p.Percentage.Decimal)
			pr.Percentage = &pct
		}
		resp.Participants = append(resp.Participants, pr)
	}
	return resp
}

// SettleExpenseResponse reports a settlement.
type SettleExpenseResponse struct {
	Message           string   `json:"message"`
	Settled           []string `json:"settled"`
	Count             int64    `json:"count"`
	NotSettled        string   `json:"not_settled,omitempty"`
	NotSettledUserIDs []string `json:"not_settled_user_ids,omitempty"`
}

// SettlementFromResult converts a settlement result to response.
func SettlementFromResult(r *usecase.SettlementResult) *SettleExpenseResponse {
	return &SettleExpenseResponse{
		Message:           r.Message,
		Settled:           r.Settled,
		Count:             r.Count,
		NotSettled:        r.NotSettledSummary,
		NotSettledUserIDs: r.NotSettled,
	}
}

// UserExpensesResponse lists what the user owes and is owed.
type UserExpensesResponse struct {
	IOwe        []OwedShareResponse      `json:"i_owe"`
	OthersOweMe []CreatedExpenseResponse `json:"others_owe_me"`
}

// OwedShareResponse is a pending share on someone else's expense.
type OwedShareResponse struct {
	ExpenseID     string    `json:"expense_id"`
	Description   string    `json:"description"`
	Amount        string    `json:"amount"`
	SplitMethod   string    `json:"split_method"`
	CreatedBy     string    `json:"created_by"`
	CreatedByName string    `json:"created_by_name"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreatedExpenseResponse is an expense the user created.
type CreatedExpenseResponse struct {
	ExpenseID    string                    `json:"expense_id"`
	Description  string                    `json:"description"`
	Amount       string                    `json:"amount"`
	SplitMethod  string                    `json:"split_method"`
	CreatedAt    time.Time                 `json:"created_at"`
	Participants []ParticipantLineResponse `json:"participants"`
}

// ParticipantLineResponse is one counterparty on a created expense.
type ParticipantLineResponse struct {
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

// UserExpensesFromDomain converts the expense listing to response.
func UserExpensesFromDomain(v domain.UserExpenses) *UserExpensesResponse {
	resp := &UserExpensesResponse{
		IOwe:        make([]OwedShareResponse, 0, len(v.IOwe)),
		OthersOweMe: make([]CreatedExpenseResponse, 0, len(v.OthersOweMe)),
	}
	for _, s := range v.IOwe {
		resp.IOwe = append(resp.IOwe, OwedShareResponse{
			ExpenseID:     s.ExpenseID,
			Description:   s.Description,
			Amount:        Money(s.Amount),
			SplitMethod:   string(s.SplitMethod),
			CreatedBy:     s.Creator.Email,
			CreatedByName: s.Creator.Name,
			Status:        string(s.Status),
			CreatedAt:     s.CreatedAt,
		})
	}
	for _, e := range v.OthersOweMe {
		ce := CreatedExpenseResponse{
			ExpenseID:    e.ExpenseID,
			Description:  e.Description,
			Amount:       Money(e.Amount),
			SplitMethod:  string(e.SplitMethod),
			CreatedAt:    e.CreatedAt,
			Participants: make([]ParticipantLineResponse, 0, len(e.Participants)),
		}
		for _, p := range e.Participants {
			ce.Participants = append(ce.Participants, ParticipantLineResponse{
				UserID:    p.User.ID,
				UserName:  p.User.Name,
				UserEmail: p.User.Email,
				Amount:    Money(p.Amount),
				Status:    string(p.Status),
			})
		}
		resp.OthersOweMe = append(resp.OthersOweMe, ce)
	}
	return resp
}

// OweSummaryResponse totals pending money per counterparty.
type OweSummaryResponse struct {
	PeopleIOwe  []PersonIOweResponse   `json:"people_i_owe"`
	PeopleOweMe []PersonOwesMeResponse `json:"people_owe_me"`
}

// PersonIOweResponse is a creditor of the user.
type PersonIOweResponse struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	TotalOwe string `json:"total_owe"`
}

// PersonOwesMeResponse is a debtor of the user.
type PersonOwesMeResponse struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	TotalOwedToMe string `json:"total_owed_to_me"`
}

// OweSummaryFromDomain converts the owe summary to response.
func OweSummaryFromDomain(v domain.OweSummary) *OweSummaryResponse {
	resp := &OweSummaryResponse{
		PeopleIOwe:  make([]PersonIOweResponse, 0, len(v.PeopleIOwe)),
		PeopleOweMe: make([]PersonOwesMeResponse, 0, len(v.PeopleOweMe)),
	}
	for _, c := range v.PeopleIOwe {
		resp.PeopleIOwe = append(resp.PeopleIOwe, PersonIOweResponse{UserID: c.UserID, Name: c.Name, TotalOwe: Money(c.Total)})
	}
	for _, c := range v.PeopleOweMe {
		resp.PeopleOweMe = append(resp.PeopleOweMe, PersonOwesMeResponse{UserID: c.UserID, Name: c.Name, TotalOwedToMe: Money(c.Total)})
	}
	return resp
}

// BalanceSheetResponse is the user's flat statement.
type BalanceSheetResponse struct {
	IndividualExpenses []BalanceSheetRowResponse `json:"individual_expenses"`
}

// BalanceSheetRowResponse is one share the user holds.
type BalanceSheetRowResponse struct {
	ExpenseID   string    `json:"expense_id"`
	Description string    `json:"description"`
	UserShare   string    `json:"user_share"`
	TotalAmount string    `json:"total_amount"`
	SplitMethod string    `json:"split_method"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Status      string    `json:"status"`
}

// BalanceSheetFromDomain converts balance sheet rows to response.
func BalanceSheetFromDomain(rows []domain.BalanceSheetRow) *BalanceSheetResponse {
	resp := &BalanceSheetResponse{IndividualExpenses: make([]BalanceSheetRowResponse, 0, len(rows))}
	for _, r := range rows {
		resp.IndividualExpenses = append(resp.IndividualExpenses, BalanceSheetRowResponse{
			ExpenseID:   r.ExpenseID,
			Description: r.Description,
			UserShare:   Money(r.UserShare),
			TotalAmount: Money(r.TotalAmount),
			SplitMethod: string(r.SplitMethod),
			CreatedBy:   r.CreatedBy,
			CreatedAt:   r.CreatedAt,
			Status:      string(r.Status),
		})
	}
	return resp
}

// BalanceSheetCSVHeader is the header row of the CSV download.
var BalanceSheetCSVHeader = []string{
	"Expense ID", "Description", "Amount", "Split Method", "Created By", "Created At", "Your Share", "Status",
}

// BalanceSheetCSVTimeFormat formats Created At in the CSV download.
const BalanceSheetCSVTimeFormat = "2006-01-02 15:04:05"

// BalanceSheetCSVRecords renders rows for encoding/csv.
func BalanceSheetCSVRecords(rows []domain.BalanceSheetRow) [][]string {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, BalanceSheetCSVHeader)
	for _, r := range rows {
		records = append(records, []string{
			r.ExpenseID,
			r.Description,
			Money(r.TotalAmount),
			string(r.SplitMethod),
			r.CreatedBy,
			r.CreatedAt.UTC().Format(BalanceSheetCSVTimeFormat),
			Money(r.UserShare),
			string(r.Status),
		})
	}
	return records
}
