package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/gosplit/internal/adapter/http/dto"
	"github.com/iho/gosplit/internal/domain"
	"github.com/iho/gosplit/internal/infrastructure/logging"
)

type rootOptions struct {
	baseURL string
	token   string
	userID  string
	timeout time.Duration
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "gosplit-cli",
		Short:         "GoSplit CLI tool",
		Long:          `A command line interface for interacting with the GoSplit API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("GOSPLIT_URL", "http://localhost:8080"), "Base URL of the GoSplit API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("GOSPLIT_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", os.Getenv("GOSPLIT_USER"), "User id sent as X-User-ID when the server runs without auth")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log requests to stderr")

	client := func(cmd *cobra.Command) *apiClient {
		level := logging.ParseLevel("warn")
		if opts.verbose {
			level = logging.ParseLevel("debug")
		}
		log := logging.New(cmd.ErrOrStderr(), logging.Options{Level: level, NoColor: os.Getenv("NO_COLOR") != ""})
		return newAPIClient(opts.baseURL, opts.token, opts.userID, opts.timeout, log)
	}

	rootCmd.AddCommand(
		userCmd(client),
		expensesCmd(client),
		oweCmd(client),
		sheetCmd(client),
		settleCmd(client),
		createCmd(client),
	)

	return rootCmd
}

type clientFunc func(cmd *cobra.Command) *apiClient

func userCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "user <email>",
		Short: "Look a user up by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := client(cmd).do(cmd.Context(), "GET", "/api/v1/users/by-email/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func expensesCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "expenses",
		Short: "List what you owe and what others owe you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := client(cmd).do(cmd.Context(), "GET", "/api/v1/expenses", nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func oweCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "owe",
		Short: "Show pending totals per person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := client(cmd).do(cmd.Context(), "GET", "/api/v1/balances/owe", nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
}

func sheetCmd(client clientFunc) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Show every share you hold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asCSV {
				raw, err := client(cmd).do(cmd.Context(), "GET", "/api/v1/balances/sheet/download", nil)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(raw)
				return err
			}

			raw, err := client(cmd).do(cmd.Context(), "GET", "/api/v1/balances/sheet", nil)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Print the balance sheet as CSV")

	return cmd
}

func settleCmd(client clientFunc) *cobra.Command {
	var userIDs []string

	cmd := &cobra.Command{
		Use:   "settle <expense-id>",
		Short: "Settle shares of an expense you created",
		Long:  "Settle the given users' shares, or every pending share when no --user-id is passed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := client(cmd).do(cmd.Context(), "POST", "/api/v1/expenses/"+url.PathEscape(args[0])+"/settle",
				dto.SettleExpenseRequest{UserIDs: userIDs})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().StringSliceVar(&userIDs, "user-id", nil, "User id to settle (repeatable)")

	return cmd
}

type createOptions struct {
	description  string
	amount       string
	method       string
	participants []string
	self         bool
	selfValue    string
}

func createCmd(client clientFunc) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an expense you paid",
		Example: `  gosplit-cli create --description Dinner --amount 9000 --method equal --participant u2 --participant u3 --self
  gosplit-cli create --description Trip --amount 100 --method exact --participant u2=60 --self-value 40`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			raw, err := client(cmd).do(cmd.Context(), "POST", "/api/v1/expenses", req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}

	cmd.Flags().StringVar(&opts.description, "description", "", "Expense description")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "Expense total")
	cmd.Flags().StringVar(&opts.method, "method", string(domain.SplitEqual), "Split method: equal, exact or percentage")
	cmd.Flags().StringArrayVar(&opts.participants, "participant", nil, "Participant as id or id=value (repeatable)")
	cmd.Flags().BoolVar(&opts.self, "self", false, "Include yourself in an equal split")
	cmd.Flags().StringVar(&opts.selfValue, "self-value", "", "Your own amount (exact) or percentage (percentage)")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// request builds the create body. Participant order follows the flags.
func (o *createOptions) request() (*dto.CreateExpenseRequest, error) {
	amount, err := decimal.NewFromString(o.amount)
	if err != nil {
		return nil, fmt.Errorf("invalid --amount %q: %w", o.amount, err)
	}

	req := &dto.CreateExpenseRequest{
		Description:      o.description,
		Amount:           amount,
		SplitMethod:      o.method,
		ParticipantsData: dto.ParticipantsData{},
		Self:             o.self,
	}

	for _, p := range o.participants {
		entry, err := parseParticipant(p)
		if err != nil {
			return nil, err
		}
		req.ParticipantsData = append(req.ParticipantsData, entry)
	}

	if o.selfValue != "" {
		v, err := decimal.NewFromString(o.selfValue)
		if err != nil {
			return nil, fmt.Errorf("invalid --self-value %q: %w", o.selfValue, err)
		}
		switch domain.SplitMethod(strings.ToLower(o.method)) {
		case domain.SplitExact:
			req.SelfAmount = decimal.NewNullDecimal(v)
		case domain.SplitPercentage:
			req.SelfPercentage = decimal.NewNullDecimal(v)
		default:
			return nil, fmt.Errorf("--self-value applies to exact and percentage splits only")
		}
	}

	return req, nil
}

func parseParticipant(s string) (domain.ParticipantEntry, error) {
	id, value, hasValue := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ParticipantEntry{}, fmt.Errorf("invalid --participant %q: missing user id", s)
	}

	entry := domain.ParticipantEntry{UserID: id}
	if hasValue {
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return domain.ParticipantEntry{}, fmt.Errorf("invalid --participant %q: %w", s, err)
		}
		entry.Value = decimal.NewNullDecimal(d)
	}
	return entry, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
