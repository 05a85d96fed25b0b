package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tesserabio/tessera-cli/pkg/auth/store"
)

// State is the session's position in its lifecycle.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateRefreshing      State = "refreshing"
	StateLoggingIn       State = "logging-in"
)

// DefaultLoginTimeout bounds how long an interactive login waits for the
// browser callback.
const DefaultLoginTimeout = 5 * time.Minute

// Provider is the capability consumed by CLI commands and the demo web
// layer: obtain a valid access token, establish a session, tear it down.
type Provider interface {
	AccessToken(ctx context.Context) (string, error)
	Login(ctx context.Context, opts LoginOptions) error
	Logout() error
}

// LoginOptions control one explicit login. A RefreshToken bypasses the
// interactive browser flow entirely (non-interactive bootstrap for CI).
type LoginOptions struct {
	RefreshToken string
}

// SessionOptions configure a Session.
type SessionOptions struct {
	Store store.Store
	OAuth *OAuthClient
	Key   store.Key

	// Interactive permits the browser flow. When false, a missing or
	// unrenewable credential yields ErrAuthenticationRequired instead of
	// a prompt.
	Interactive bool

	// BootstrapRefreshToken, when set, is exchanged for a credential on
	// first use, before the store is consulted.
	BootstrapRefreshToken string

	LoginTimeout time.Duration
	OpenBrowser  func(url string) error
	Log          *zap.SugaredLogger
	Output       io.Writer
	Now          func() time.Time
}

// Session owns the in-memory credential for one storage key and serializes
// all refresh and login activity. The store owns the durable copy; the two
// are kept consistent by write-through on every successful login or
// refresh and by deletion on logout.
type Session struct {
	store        store.Store
	oauth        *OAuthClient
	key          store.Key
	interactive  bool
	bootstrap    string
	loginTimeout time.Duration
	openBrowser  func(url string) error
	log          *zap.SugaredLogger
	out          io.Writer
	now          func() time.Time

	mu     sync.Mutex
	loaded bool
	state  State
	cred   *Credential

	group singleflight.Group
}

var _ Provider = (*Session)(nil)

func NewSession(opts SessionOptions) *Session {
	s := &Session{
		store:        opts.Store,
		oauth:        opts.OAuth,
		key:          opts.Key,
		interactive:  opts.Interactive,
		bootstrap:    opts.BootstrapRefreshToken,
		loginTimeout: opts.LoginTimeout,
		openBrowser:  opts.OpenBrowser,
		log:          opts.Log,
		out:          opts.Output,
		now:          opts.Now,
		state:        StateUnauthenticated,
	}
	if s.loginTimeout == 0 {
		s.loginTimeout = DefaultLoginTimeout
	}
	if s.openBrowser == nil {
		s.openBrowser = openBrowser
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// AccessToken returns a valid access token: from cache when unexpired,
// otherwise via exactly one refresh-or-login shared by all concurrent
// callers. With interactive login disabled and no usable credential it
// returns ErrAuthenticationRequired.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	if s.cred != nil && s.cred.Valid(s.now()) {
		token := s.cred.AccessToken
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(s.key.String(), func() (any, error) {
		return s.renew(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// renew runs inside the single flight: at most one refresh or login is in
// progress per session, and queued callers all observe its outcome.
func (s *Session) renew(ctx context.Context) (string, error) {
	s.mu.Lock()
	// A caller that queued behind a completed flight may find a fresh
	// credential already in place.
	if s.cred != nil && s.cred.Valid(s.now()) {
		token := s.cred.AccessToken
		s.mu.Unlock()
		return token, nil
	}
	var current *Credential
	if s.cred != nil {
		c := *s.cred
		current = &c
	}
	s.mu.Unlock()

	if current != nil && current.Renewable() {
		s.setState(StateRefreshing)
		s.log.Debugw("refreshing access token", "key", s.key.String())
		fresh, err := s.oauth.Refresh(ctx, current.RefreshToken)
		if err != nil {
			var rerr *RefreshError
			if errors.As(err, &rerr) && rerr.Terminal() {
				// The provider rejected the refresh token; the stored copy
				// is useless now.
				if derr := s.store.Delete(s.key); derr != nil {
					s.log.Warnw("failed to clear stored credential", "error", derr)
				}
				s.setCredential(nil, StateUnauthenticated)
				if !s.interactive {
					return "", fmt.Errorf("%w: %w", ErrAuthenticationRequired, err)
				}
				return s.interactiveLogin(ctx)
			}
			// Transient failure: keep the stale credential, surface the
			// error, let the caller retry the outer operation.
			s.setState(StateAuthenticated)
			return "", err
		}
		if err := s.persist(fresh); err != nil {
			return "", err
		}
		return fresh.AccessToken, nil
	}

	if !s.interactive {
		return "", ErrAuthenticationRequired
	}
	return s.interactiveLogin(ctx)
}

// Login establishes a session explicitly. With opts.RefreshToken set it
// exchanges that token directly; otherwise it drives the interactive
// browser flow.
func (s *Session) Login(ctx context.Context, opts LoginOptions) error {
	if opts.RefreshToken != "" {
		cred, err := s.oauth.Refresh(ctx, opts.RefreshToken)
		if err != nil {
			return err
		}
		s.markLoaded()
		return s.persist(cred)
	}
	_, err, _ := s.group.Do(s.key.String(), func() (any, error) {
		s.markLoaded()
		return s.interactiveLogin(ctx)
	})
	return err
}

func (s *Session) interactiveLogin(ctx context.Context) (string, error) {
	s.setState(StateLoggingIn)
	cred, err := s.runBrowserFlow(ctx)
	if err != nil {
		s.setState(StateUnauthenticated)
		return "", err
	}
	if err := s.persist(cred); err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

func (s *Session) runBrowserFlow(ctx context.Context) (Credential, error) {
	pkce, err := NewPKCE()
	if err != nil {
		return Credential{}, err
	}
	listener, err := NewCallbackListener(s.log)
	if err != nil {
		return Credential{}, err
	}
	defer func() {
		_ = listener.Close()
	}()

	redirectURL := listener.RedirectURL()
	authURL := s.oauth.AuthorizationURL(pkce, redirectURL)
	_, _ = fmt.Fprintf(s.out, "Open the following URL in your browser:\n%s\n", authURL)
	if err := s.openBrowser(authURL); err != nil {
		s.log.Debugw("failed to open browser", "error", err)
	}

	code, err := listener.Wait(ctx, pkce.State, s.loginTimeout)
	if err != nil {
		return Credential{}, err
	}
	return s.oauth.ExchangeCode(ctx, code, pkce, redirectURL)
}

// Logout deletes the stored secret and drops the in-memory credential.
// Idempotent: logging out twice is not an error.
func (s *Session) Logout() error {
	if err := s.store.Delete(s.key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.cred = nil
	s.state = StateUnauthenticated
	return nil
}

// Restore loads the stored credential without renewing it, so callers
// can inspect State and Current before deciding to authenticate.
func (s *Session) Restore(ctx context.Context) error {
	return s.ensureLoaded(ctx)
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns a copy of the in-memory credential, if any. It does not
// trigger any network activity.
func (s *Session) Current() (Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return Credential{}, false
	}
	return *s.cred, true
}

// StorageBackend names the backend holding the durable credential copy.
func (s *Session) StorageBackend() string { return s.store.Backend() }

// ensureLoaded re-derives the initial state on first use: a bootstrap
// refresh token takes precedence, then the stored credential, then
// Unauthenticated.
func (s *Session) ensureLoaded(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	bootstrap := s.bootstrap
	s.mu.Unlock()

	if bootstrap != "" {
		cred, err := s.oauth.Refresh(ctx, bootstrap)
		if err != nil {
			return err
		}
		s.markLoaded()
		return s.persist(cred)
	}

	rec, found, err := s.store.Load(s.key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	if found {
		cred := credentialFromRecord(rec)
		s.cred = &cred
		s.state = StateAuthenticated
		s.log.Debugw("restored credential from store",
			"backend", s.store.Backend(),
			"renewable", cred.Renewable(),
			"expires_at", cred.ExpiresAt)
	} else {
		s.cred = nil
		s.state = StateUnauthenticated
	}
	return nil
}

func (s *Session) markLoaded() {
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
}

// persist write-throughs the credential: memory is only updated once the
// durable copy is safely in place.
func (s *Session) persist(cred Credential) error {
	if err := s.store.Save(s.key, cred.toRecord()); err != nil {
		return err
	}
	s.setCredential(&cred, StateAuthenticated)
	return nil
}

func (s *Session) setCredential(cred *Credential, state State) {
	s.mu.Lock()
	s.cred = cred
	s.state = state
	s.mu.Unlock()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
