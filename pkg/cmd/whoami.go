package cmd

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/spf13/cobra"

	"github.com/tesserabio/tessera-cli/pkg/output"
)

// Identity is the subset of token claims whoami renders. The token is
// parsed without signature verification: we only display what the
// provider already told us, the platform does its own verification.
type Identity struct {
	Subject  string `json:"subject" yaml:"subject"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Issuer   string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
}

func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity of the stored credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			session, err := buildSession(cmd.Context(), rt)
			if err != nil {
				return err
			}
			token, err := session.AccessToken(cmd.Context())
			if err != nil {
				return err
			}
			identity, err := identityFromToken(token)
			if err != nil {
				return err
			}

			format, err := rt.OutputFormat()
			if err != nil {
				return &Error{Code: CodeConfigError, Err: err}
			}
			if format == output.FormatTable {
				if identity.Email != "" {
					_, _ = fmt.Fprintln(rt.Writer(), identity.Email)
				} else if identity.Username != "" {
					_, _ = fmt.Fprintln(rt.Writer(), identity.Username)
				} else {
					_, _ = fmt.Fprintln(rt.Writer(), identity.Subject)
				}
				return nil
			}
			return output.WriteObject(rt.Writer(), format, identity)
		},
	}
}

func identityFromToken(token string) (Identity, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("failed to parse access token claims: %w", err)
	}
	id := Identity{}
	if sub, ok := claims["sub"].(string); ok {
		id.Subject = sub
	}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if username, ok := claims["preferred_username"].(string); ok {
		id.Username = username
	}
	if iss, ok := claims["iss"].(string); ok {
		id.Issuer = iss
	}
	return id, nil
}
