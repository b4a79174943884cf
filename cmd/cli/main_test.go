package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

func newFakeAPI(t *testing.T, status int, contentType, body string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()

	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Header: r.Header.Clone(), Body: string(raw)})
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOweCommandSendsIdentity(t *testing.T) {
	srv, seen := newFakeAPI(t, http.StatusOK, "application/json", `{"people_i_owe":[],"people_owe_me":[]}`)

	out, err := execute(t, "--url", srv.URL, "--user", "u2", "--token", "tok", "owe")
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "/api/v1/balances/owe", req.Path)
	assert.Equal(t, "u2", req.Header.Get("X-User-ID"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "{\n  \"people_i_owe\": [],\n  \"people_owe_me\": []\n}\n", out)
}

func TestSheetCSVCommand(t *testing.T) {
	csvBody := "Expense ID,Description\nexp-1,Dinner\n"
	srv, seen := newFakeAPI(t, http.StatusOK, "text/csv", csvBody)

	out, err := execute(t, "--url", srv.URL, "sheet", "--csv")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/balances/sheet/download", (*seen)[0].Path)
	assert.Equal(t, csvBody, out)
}

func TestSettleCommand(t *testing.T) {
	srv, seen := newFakeAPI(t, http.StatusOK, "application/json", `{"message":"ok","settled":["Bob"],"count":1}`)

	_, err := execute(t, "--url", srv.URL, "settle", "exp-1", "--user-id", "u2", "--user-id", "u3")
	require.NoError(t, err)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/expenses/exp-1/settle", req.Path)
	assert.JSONEq(t, `{"user_ids":["u2","u3"]}`, req.Body)
}

func TestUserCommandEscapesEmail(t *testing.T) {
	srv, seen := newFakeAPI(t, http.StatusOK, "application/json", `{"user_id":"u1","name":"Alice","email":"a+b@example.com"}`)

	_, err := execute(t, "--url", srv.URL, "user", "a+b@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix((*seen)[0].Path, "/api/v1/users/by-email/"))
}

func TestCreateCommandKeepsParticipantOrder(t *testing.T) {
	srv, seen := newFakeAPI(t, http.StatusCreated, "application/json", `{"expense_id":"exp-1","message":"Expense created successfully."}`)

	out, err := execute(t, "--url", srv.URL, "create",
		"--description", "Trip", "--amount", "100", "--method", "exact",
		"--participant", "zed=30", "--participant", "amy=30", "--self-value", "40")
	require.NoError(t, err)
	assert.Contains(t, out, `"expense_id": "exp-1"`)

	body := (*seen)[0].Body
	assert.Less(t, strings.Index(body, `"zed"`), strings.Index(body, `"amy"`))

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &sent))
	assert.Equal(t, "exact", sent["split_method"])
	assert.Equal(t, "40", sent["self_amount"])
}

func TestAPIErrorIsReported(t *testing.T) {
	srv, _ := newFakeAPI(t, http.StatusBadRequest, "application/json",
		`{"error":"failed to create expense","message":"split does not add up","expected":"100.00","actual":"90.00","delta":"10.00"}`)

	_, err := execute(t, "--url", srv.URL, "create", "--description", "Trip", "--amount", "100", "--method", "exact", "--participant", "u2=90", "--self-value", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "delta 10.00")
}

func TestCreateOptionsRequest(t *testing.T) {
	opts := &createOptions{description: "Dinner", amount: "90", method: "equal", participants: []string{"u2", "u3"}, self: true}
	req, err := opts.request()
	require.NoError(t, err)
	assert.True(t, req.Amount.Equal(decimal.NewFromInt(90)))
	require.Len(t, req.ParticipantsData, 2)
	assert.False(t, req.ParticipantsData[0].Value.Valid)
	assert.True(t, req.Self)

	opts = &createOptions{description: "Dinner", amount: "90", method: "equal", selfValue: "10"}
	_, err = opts.request()
	assert.Error(t, err)

	opts = &createOptions{description: "Dinner", amount: "ninety", method: "equal"}
	_, err = opts.request()
	assert.Error(t, err)
}

func TestParseParticipant(t *testing.T) {
	entry, err := parseParticipant("u2=12.5")
	require.NoError(t, err)
	assert.Equal(t, "u2", entry.UserID)
	assert.True(t, entry.Value.Decimal.Equal(decimal.RequireFromString("12.5")))

	_, err = parseParticipant("=3")
	assert.Error(t, err)
	_, err = parseParticipant("u2=abc")
	assert.Error(t, err)
}
