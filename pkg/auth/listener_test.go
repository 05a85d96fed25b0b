package auth

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func callbackURL(l *CallbackListener, params url.Values) string {
	return l.RedirectURL() + "?" + params.Encode()
}

func TestCallbackListenerSuccess(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	l, err := NewCallbackListener(log)
	require.NoError(t, err)

	go func() {
		// Give Wait a moment to install the handler.
		time.Sleep(20 * time.Millisecond)
		resp, err := http.Get(callbackURL(l, url.Values{"state": {"xyz"}, "code": {"abc"}}))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	code, err := l.Wait(context.Background(), "xyz", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestCallbackListenerIgnoresMismatchedState(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	l, err := NewCallbackListener(log)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		// The forged redirect must be discarded and the listener must keep
		// waiting for the genuine one.
		resp, err := http.Get(callbackURL(l, url.Values{"state": {"wrong"}, "code": {"evil"}}))
		if err == nil {
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			_ = resp.Body.Close()
		}
		resp, err = http.Get(callbackURL(l, url.Values{"state": {"xyz"}, "code": {"abc"}}))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	code, err := l.Wait(context.Background(), "xyz", 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestCallbackListenerTimeoutReleasesPort(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	l, err := NewCallbackListener(log)
	require.NoError(t, err)
	addr := l.ln.Addr().String()

	start := time.Now()
	_, err = l.Wait(context.Background(), "xyz", 100*time.Millisecond)
	require.ErrorIs(t, err, ErrLoginTimeout)
	assert.Less(t, time.Since(start), time.Second)

	// The port must be rebindable immediately after.
	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err, "port was not released after timeout")
	_ = ln.Close()
}

func TestCallbackListenerProviderDenial(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	l, err := NewCallbackListener(log)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		resp, err := http.Get(callbackURL(l, url.Values{
			"error":             {"access_denied"},
			"error_description": {"user rejected the request"},
		}))
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	_, err = l.Wait(context.Background(), "xyz", 2*time.Second)
	require.Error(t, err)

	var denied *LoginDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "access_denied", denied.Code)
	assert.Contains(t, denied.Error(), "access_denied")
}

func TestCallbackListenerCancellation(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	l, err := NewCallbackListener(log)
	require.NoError(t, err)
	addr := l.ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = l.Wait(ctx, "xyz", 10*time.Second)
	require.ErrorIs(t, err, ErrLoginCancelled)

	ln, err := net.Listen("tcp", addr)
	require.NoError(t, err, "port was not released after cancellation")
	_ = ln.Close()
}

func TestCallbackListenerCloseIdempotent(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	l, err := NewCallbackListener(log)
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestCallbackListenerRedirectURL(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	l, err := NewCallbackListener(log)
	require.NoError(t, err)
	defer func() {
		_ = l.Close()
	}()

	u, err := url.Parse(l.RedirectURL())
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, callbackPath, u.Path)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.NotEqual(t, "0", port)
}
