package auth

import (
	"errors"
	"fmt"
)

// Error kinds for token-endpoint failures. Terminal kinds require a fresh
// interactive login; transient kinds may be retried by the caller.
const (
	KindInvalidGrant        = "invalid_grant"
	KindInvalidRefreshToken = "invalid_refresh_token"
	KindTransient           = "transient"
)

var (
	// ErrLoginTimeout is returned when no authorization callback arrives
	// before the login timeout elapses.
	ErrLoginTimeout = errors.New("login timed out waiting for the browser callback")

	// ErrLoginCancelled is returned when the login attempt is interrupted
	// by the caller (context cancellation).
	ErrLoginCancelled = errors.New("login cancelled")

	// ErrAuthenticationRequired is returned when no usable credential
	// exists and interactive login is disabled.
	ErrAuthenticationRequired = errors.New("authentication required: run 'tessctl login'")
)

// LoginDeniedError reports that the identity provider rejected the
// authorization request (user denied consent, policy failure, ...).
type LoginDeniedError struct {
	Code        string
	Description string
}

func (e *LoginDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("login denied by identity provider: %s (%s)", e.Code, e.Description)
	}
	return fmt.Sprintf("login denied by identity provider: %s", e.Code)
}

// ExchangeError reports a failed authorization-code exchange.
type ExchangeError struct {
	Kind string
	Err  error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed (%s): %v", e.Kind, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }

// Terminal reports whether the authorization code was rejected outright
// (expired or reused); retrying without a new login cannot succeed.
func (e *ExchangeError) Terminal() bool { return e.Kind == KindInvalidGrant }

// RefreshError reports a failed refresh-token exchange.
type RefreshError struct {
	Kind string
	Err  error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed (%s): %v", e.Kind, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Terminal reports whether the refresh token itself was rejected; the
// caller must fall back to interactive login.
func (e *RefreshError) Terminal() bool { return e.Kind == KindInvalidRefreshToken }
