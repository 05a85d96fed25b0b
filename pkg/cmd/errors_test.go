package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tesserabio/tessera-cli/pkg/auth"
	"github.com/tesserabio/tessera-cli/pkg/auth/store"
	"github.com/tesserabio/tessera-cli/pkg/client"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth required", auth.ErrAuthenticationRequired, CodeAuthRequired},
		{"wrapped auth required", fmt.Errorf("context: %w", auth.ErrAuthenticationRequired), CodeAuthRequired},
		{"login timeout", auth.ErrLoginTimeout, CodeLoginTimeout},
		{"login cancelled", auth.ErrLoginCancelled, CodeLoginCancelled},
		{"login denied", &auth.LoginDeniedError{Code: "access_denied"}, CodeLoginDenied},
		{"storage", &store.Error{Backend: store.BackendFile, Op: "save", Err: errors.New("disk full")}, CodeStorageError},
		{"exchange", &auth.ExchangeError{Kind: auth.KindInvalidGrant, Err: errors.New("bad code")}, CodeTokenExchangeError},
		{"refresh", &auth.RefreshError{Kind: auth.KindTransient, Err: errors.New("503")}, CodeRefreshError},
		{"api", &client.APIError{Status: 500, Message: "boom"}, CodeAPIError},
		{"cli error", &Error{Code: CodeConfigError, Err: errors.New("bad yaml")}, CodeConfigError},
		{"unclassified", errors.New("something else"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestRender(t *testing.T) {
	assert.Equal(t,
		"tessctl: [AUTH_REQUIRED] authentication required: run 'tessctl login'",
		Render(auth.ErrAuthenticationRequired))

	assert.Equal(t,
		"tessctl: [CONFIG_ERROR] bad yaml",
		Render(&Error{Code: CodeConfigError, Err: errors.New("bad yaml")}))

	assert.Equal(t, "tessctl: plain failure", Render(errors.New("plain failure")))
}
