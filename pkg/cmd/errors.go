package cmd

import (
	"errors"
	"fmt"

	"github.com/tesserabio/tessera-cli/pkg/auth"
	"github.com/tesserabio/tessera-cli/pkg/auth/store"
	"github.com/tesserabio/tessera-cli/pkg/client"
)

// Stable error codes rendered as "tessctl: [CODE] message" so scripts can
// grep for them.
const (
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeLoginTimeout       = "LOGIN_TIMEOUT"
	CodeLoginDenied        = "LOGIN_DENIED"
	CodeLoginCancelled     = "LOGIN_CANCELLED"
	CodeStorageError       = "STORAGE_ERROR"
	CodeTokenExchangeError = "TOKEN_EXCHANGE_ERROR"
	CodeRefreshError       = "REFRESH_ERROR"
	CodeAPIError           = "API_ERROR"
	CodeConfigError        = "CONFIG_ERROR"
)

// Error pairs an underlying failure with its stable code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps an error to its stable code. Errors from the auth, store,
// and client layers carry enough type information to classify without
// string matching.
func Classify(err error) string {
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	if errors.Is(err, auth.ErrAuthenticationRequired) {
		return CodeAuthRequired
	}
	if errors.Is(err, auth.ErrLoginTimeout) {
		return CodeLoginTimeout
	}
	if errors.Is(err, auth.ErrLoginCancelled) {
		return CodeLoginCancelled
	}
	var denied *auth.LoginDeniedError
	if errors.As(err, &denied) {
		return CodeLoginDenied
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return CodeStorageError
	}
	var exchangeErr *auth.ExchangeError
	if errors.As(err, &exchangeErr) {
		return CodeTokenExchangeError
	}
	var refreshErr *auth.RefreshError
	if errors.As(err, &refreshErr) {
		return CodeRefreshError
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return CodeAPIError
	}
	return ""
}

// Render formats an error for stderr. Classified errors carry their code;
// everything else renders as a plain message.
func Render(err error) string {
	var cliErr *Error
	if errors.As(err, &cliErr) {
		return fmt.Sprintf("tessctl: [%s] %v", cliErr.Code, cliErr.Err)
	}
	if code := Classify(err); code != "" {
		return fmt.Sprintf("tessctl: [%s] %v", code, err)
	}
	return fmt.Sprintf("tessctl: %v", err)
}
