package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const callbackPath = "/callback"

// CallbackListener receives the authorization redirect during interactive
// login. It binds an ephemeral loopback port at construction, accepts
// exactly one matching callback, and releases the port on every exit path.
type CallbackListener struct {
	ln        net.Listener
	srv       *http.Server
	log       *zap.SugaredLogger
	codeCh    chan string
	errCh     chan error
	accepted  atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewCallbackListener(log *zap.SugaredLogger) (*CallbackListener, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}
	l := &CallbackListener{
		ln:     ln,
		log:    log,
		codeCh: make(chan string, 1),
		errCh:  make(chan error, 1),
	}
	l.srv = &http.Server{Handler: http.HandlerFunc(l.handle)}
	return l, nil
}

// RedirectURL is the redirect_uri to register with the authorization
// request for this login attempt.
func (l *CallbackListener) RedirectURL() string {
	return fmt.Sprintf("http://%s%s", l.ln.Addr().String(), callbackPath)
}

// Wait blocks until a callback carrying the expected state arrives, the
// timeout elapses (ErrLoginTimeout), the provider reports a denial
// (*LoginDeniedError), or ctx is cancelled (ErrLoginCancelled). The
// listener is closed before Wait returns, whatever the outcome.
func (l *CallbackListener) Wait(ctx context.Context, expectedState string, timeout time.Duration) (string, error) {
	defer func() {
		_ = l.Close()
	}()

	l.srv.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.handleCallback(w, r, expectedState)
	})
	go func() {
		_ = l.srv.Serve(l.ln)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ErrLoginCancelled
	case <-timer.C:
		return "", ErrLoginTimeout
	case err := <-l.errCh:
		return "", err
	case code := <-l.codeCh:
		return code, nil
	}
}

// handle is replaced by Wait; requests arriving before Wait are rejected.
func (l *CallbackListener) handle(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "login attempt not started", http.StatusServiceUnavailable)
}

func (l *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string) {
	if r.URL.Path != callbackPath {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		if l.accepted.CompareAndSwap(false, true) {
			l.errCh <- &LoginDeniedError{Code: errCode, Description: q.Get("error_description")}
		}
		http.Error(w, "authentication failed, you can close this window", http.StatusBadRequest)
		return
	}
	if q.Get("state") != expectedState {
		// Not ours; a stale or forged redirect. Keep waiting for the real one.
		l.log.Warnw("callback with unexpected state ignored", "remote", r.RemoteAddr)
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		l.log.Warnw("callback without authorization code ignored", "remote", r.RemoteAddr)
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if !l.accepted.CompareAndSwap(false, true) {
		http.Error(w, "login already completed", http.StatusGone)
		return
	}
	_, _ = fmt.Fprintln(w, "Authentication complete. You can close this window.")
	l.codeCh <- code
}

// Close unbinds the port. Safe to call more than once.
func (l *CallbackListener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.srv.Close()
	})
	return l.closeErr
}
