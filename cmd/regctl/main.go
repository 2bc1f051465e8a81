package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, getenv func(string) string) *cobra.Command {
	envOr := func(k, def string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return def
	}

	cl := &client{
		BaseURL:   envOr("TICKETDESK_ADMIN_URL", "http://localhost:8080"),
		Token:     envOr("TICKETDESK_ADMIN_TOKEN", ""),
		OutFormat: envOr("TICKETDESK_OUTPUT", "text"),
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Out:       out,
	}

	root := &cobra.Command{
		Use:           "regctl",
		Short:         "Admin CLI for the TicketDesk registration back-office",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cl.OutFormat != "json" && cl.OutFormat != "text" {
				return fmt.Errorf("--output must be json or text")
			}
			if cmd.Name() != "login" && cl.Token == "" {
				return fmt.Errorf("missing token (flag --token or env TICKETDESK_ADMIN_TOKEN); run 'regctl login' first")
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&cl.BaseURL, "api-url", cl.BaseURL, "Base URL of the back-office API (env TICKETDESK_ADMIN_URL)")
	root.PersistentFlags().StringVar(&cl.Token, "token", cl.Token, "Operator access token (env TICKETDESK_ADMIN_TOKEN)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "output", cl.OutFormat, "Output format: json|text")

	// login
	var loginEmail, loginPassword string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange operator credentials for an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if loginEmail == "" {
				return fmt.Errorf("--email is required")
			}
			if loginPassword == "" {
				loginPassword = getenv("TICKETDESK_ADMIN_PASSWORD")
			}
			payload := map[string]string{"email": loginEmail, "password": loginPassword}
			if cl.OutFormat == "json" {
				return cl.call("login", http.MethodPost, "/api/auth/login", payload)
			}
			status, body, err := cl.do(http.MethodPost, "/api/auth/login", payload)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("login failed: status=%d body=%s", status, string(body))
			}
			token, err := accessToken(body)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Operator email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Operator password (env TICKETDESK_ADMIN_PASSWORD)")

	// list
	var listStatus, listSearch, listPreference, listSort, listOrder string
	var listPage, listPageSize int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "status", listStatus)
			setIf(q, "search", listSearch)
			setIf(q, "preference", listPreference)
			setIf(q, "sort", listSort)
			setIf(q, "order", listOrder)
			if listPage > 0 {
				q.Set("page", strconv.Itoa(listPage))
			}
			if listPageSize > 0 {
				q.Set("page_size", strconv.Itoa(listPageSize))
			}
			return cl.call("list", http.MethodGet, withQuery("/api/admin/registrations", q), nil)
		},
	}
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status: pending|approved|rejected")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Substring match on name or email")
	listCmd.Flags().StringVar(&listPreference, "preference", "", "Filter by event preference")
	listCmd.Flags().StringVar(&listSort, "sort", "", "Sort field: created_at|updated_at|email|full_name|status")
	listCmd.Flags().StringVar(&listOrder, "order", "", "Sort order: asc|desc")
	listCmd.Flags().IntVar(&listPage, "page", 0, "Page number (1-based)")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 0, "Page size")

	// lookup
	var lookupMode string
	lookupCmd := &cobra.Command{
		Use:   "lookup <email>",
		Short: "Find registrations by email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"email": {args[0]}}
			setIf(q, "mode", lookupMode)
			return cl.call("lookup", http.MethodGet, withQuery("/api/admin/registrations/lookup", q), nil)
		},
	}
	lookupCmd.Flags().StringVar(&lookupMode, "mode", "", "Match mode: exact|insensitive")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("get", http.MethodGet, registrationPath(args[0], ""), nil)
		},
	}

	approveCmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending registration and notify the registrant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("approve", http.MethodPost, registrationPath(args[0], "approve"), nil)
		},
	}

	var rejectReason string
	rejectCmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending registration and notify the registrant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if rejectReason != "" {
				payload = map[string]string{"reason": rejectReason}
			}
			return cl.call("reject", http.MethodPost, registrationPath(args[0], "reject"), payload)
		},
	}
	rejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Reason included in the rejection email")

	resendCmd := &cobra.Command{
		Use:   "resend <id>",
		Short: "Resend the approval email to an approved registrant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("resend", http.MethodPost, registrationPath(args[0], "resend"), nil)
		},
	}

	notesCmd := &cobra.Command{
		Use:   "notes <id> <text>",
		Short: "Replace the operator notes of a registration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("notes", http.MethodPut, registrationPath(args[0], "notes"), map[string]string{"notes": args[1]})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("delete", http.MethodDelete, registrationPath(args[0], ""), nil)
		},
	}

	deliveriesCmd := &cobra.Command{
		Use:   "deliveries <id>",
		Short: "Show the email delivery history of a registration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("deliveries", http.MethodGet, registrationPath(args[0], "deliveries"), nil)
		},
	}

	var exportFormat, exportFile string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export all registrations as CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "format", exportFormat)
			status, body, err := cl.do(http.MethodGet, withQuery("/api/admin/export", q), nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("export failed: status=%d body=%s", status, string(body))
			}
			if exportFile == "" || exportFile == "-" {
				_, err = out.Write(body)
				return err
			}
			if err := os.WriteFile(exportFile, body, 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "wrote %d bytes to %s\n", len(body), exportFile)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Export format: csv|json")
	exportCmd.Flags().StringVar(&exportFile, "file", "", "Write to file instead of stdout")

	var statsDays int
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the registration overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if statsDays > 0 {
				q.Set("days", strconv.Itoa(statsDays))
			}
			return cl.call("stats", http.MethodGet, withQuery("/api/admin/stats", q), nil)
		},
	}
	statsCmd.Flags().IntVar(&statsDays, "days", 0, "Window size in days")

	emailStatsCmd := &cobra.Command{
		Use:   "email-stats",
		Short: "Show per-template delivery statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("email-stats", http.MethodGet, "/api/admin/email-stats", nil)
		},
	}

	root.AddCommand(loginCmd, listCmd, lookupCmd, getCmd, approveCmd, rejectCmd, resendCmd,
		notesCmd, deleteCmd, deliveriesCmd, exportCmd, statsCmd, emailStatsCmd)
	return root
}

func registrationPath(id, action string) string {
	p := "/api/admin/registrations/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
