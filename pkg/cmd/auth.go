package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tesserabio/tessera-cli/pkg/auth"
	"github.com/tesserabio/tessera-cli/pkg/output"
)

func NewLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Tessera platform",
		Long: `Authenticate with the Tessera platform via the system browser.

With --refresh-token (or TESSCTL_REFRESH_TOKEN) the browser flow is skipped
and the token is exchanged directly, for CI and other non-interactive use.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			session, err := buildSession(cmd.Context(), rt)
			if err != nil {
				return err
			}
			if err := session.Login(cmd.Context(), auth.LoginOptions{RefreshToken: rt.refreshTokenOverride}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Login successful. Credentials stored securely (%s).\n", session.StorageBackend())
			return nil
		},
	}
}

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			session, err := buildSession(cmd.Context(), rt)
			if err != nil {
				return err
			}
			if err := session.Logout(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out. Stored credentials removed.")
			return nil
		},
	}
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			env, err := rt.ResolveEnvironment()
			if err != nil {
				return &Error{Code: CodeConfigError, Err: err}
			}
			session, err := buildSession(cmd.Context(), rt)
			if err != nil {
				return err
			}
			if err := session.Restore(cmd.Context()); err != nil {
				return err
			}

			summary := output.StatusSummary{
				Environment:    string(env),
				Account:        rt.Account(),
				State:          string(session.State()),
				StorageBackend: session.StorageBackend(),
			}
			if cred, ok := session.Current(); ok {
				summary.TokenExpiry = cred.ExpiresAt.UTC().Format(time.RFC3339)
				summary.Renewable = cred.Renewable()
			}

			format, err := rt.OutputFormat()
			if err != nil {
				return &Error{Code: CodeConfigError, Err: err}
			}
			if format == output.FormatTable {
				output.WriteStatusTable(rt.Writer(), summary)
				return nil
			}
			return output.WriteObject(rt.Writer(), format, summary)
		},
	}
}
