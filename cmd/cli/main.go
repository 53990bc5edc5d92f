package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// apiClient talks to the walletledger HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
	out     io.Writer
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("request failed (status %d): %s", e.Status, truncate(e.Body, 500))
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
	)

	c := &apiClient{out: out}

	rootCmd := &cobra.Command{
		Use:           "walletledger-cli",
		Short:         "walletledger CLI tool",
		Long:          `A command line interface for interacting with the walletledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.baseURL = baseURL
			c.http = &http.Client{Timeout: timeout}
		},
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the walletledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		balanceCmd(c),
		summaryCmd(c),
		mutationCmd(c, "debit", "Debit amount plus fee from a holder"),
		mutationCmd(c, "credit", "Credit amount to a holder"),
		transactionsCmd(c),
		adminCmd(c),
		reconcileCmd(c),
	)

	return rootCmd
}

func balanceCmd(c *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <holder> <currency>",
		Short: "Show a holder's balance in one currency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, accountPath(args[0], "balances", url.PathEscape(args[1])), nil, nil)
		},
	}
}

func summaryCmd(c *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <holder>",
		Short: "Show every balance of a holder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, accountPath(args[0], "balances"), nil, nil)
		},
	}
}

func mutationCmd(c *apiClient, kind, short string) *cobra.Command {
	var (
		referenceID    string
		description    string
		fee            string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   kind + " <holder> <amount> <currency>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}

			body := map[string]any{
				"amount":       amount,
				"currency":     args[2],
				"reference_id": referenceID,
				"description":  description,
			}
			if fee != "" {
				f, err := decimal.NewFromString(fee)
				if err != nil {
					return fmt.Errorf("invalid fee %q: %w", fee, err)
				}
				body["fee"] = f
			}

			headers := map[string]string{}
			if idempotencyKey != "" {
				headers["Idempotency-Key"] = idempotencyKey
			}

			return c.do(http.MethodPost, accountPath(args[0], kind), body, headers)
		},
	}

	cmd.Flags().StringVar(&referenceID, "ref", "", "Reference id recorded on the transaction")
	cmd.Flags().StringVar(&description, "description", "", "Audit description")
	cmd.Flags().StringVar(&fee, "fee", "", "Fee credited to the admin holder")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency-Key header")

	return cmd
}

func transactionsCmd(c *apiClient) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "transactions <holder>",
		Short: "List a holder's transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.do(http.MethodGet, accountPath(args[0], "transactions")+pageQuery(limit, offset), nil, nil)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func adminCmd(c *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Show or change the holder that receives fees",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Show the admin holder",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.do(http.MethodGet, "/api/v1/admin", nil, nil)
			},
		},
		&cobra.Command{
			Use:   "set <holder>",
			Short: "Change the admin holder",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.do(http.MethodPut, "/api/v1/admin", map[string]string{"holder": args[0]}, nil)
			},
		},
	)

	return cmd
}

func reconcileCmd(c *apiClient) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "reconcile [holder]",
		Short: "Replay transaction logs against stored balances",
		Long:  "With a holder, reconcile that holder. Without one, report on a page of holders.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return c.do(http.MethodGet, accountPath(args[0], "reconciliation"), nil, nil)
			}
			return c.do(http.MethodGet, "/api/v1/reconciliation"+pageQuery(limit, offset), nil, nil)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Holders per report")
	cmd.Flags().IntVar(&offset, "offset", 0, "Holder offset")

	return cmd
}

// do sends the request and prints the JSON answer. A 207 prints the body and
// returns an error so scripts notice the failed fee credit.
func (c *apiClient) do(method, path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{Status: resp.StatusCode, Body: string(raw)}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	printJSON(c.out, decoded)

	if resp.StatusCode == http.StatusMultiStatus {
		return &apiError{Status: resp.StatusCode, Body: "mutation committed but the fee credit failed"}
	}

	return nil
}

func accountPath(holder string, parts ...string) string {
	p := "/api/v1/accounts/" + url.PathEscape(holder)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func pageQuery(limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return "?" + q.Encode()
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
