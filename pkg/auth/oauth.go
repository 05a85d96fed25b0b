package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultSkewMargin is subtracted from the provider-reported expiry so the
// cached token is treated as expired slightly before the provider actually
// invalidates it.
const DefaultSkewMargin = 30 * time.Second

// ProviderConfig describes the identity provider for one environment.
// When AuthURL and TokenURL are set they pin the OAuth endpoints directly;
// otherwise they are discovered from Authority via OIDC.
type ProviderConfig struct {
	Authority       string
	AuthURL         string
	TokenURL        string
	ClientID        string
	Scopes          []string
	Audience        string
	CAFile          string
	InsecureSkipTLS bool
	SkewMargin      time.Duration
}

// OAuthClient is the stateless request/response logic against the identity
// provider's token endpoint. Retry policy belongs to the caller, not here.
type OAuthClient struct {
	oauth    oauth2.Config
	http     *http.Client
	audience string
	skew     time.Duration
	now      func() time.Time
}

func NewOAuthClient(ctx context.Context, cfg ProviderConfig) (*OAuthClient, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client-id is required")
	}
	httpClient, err := newHTTPClient(cfg.CAFile, cfg.InsecureSkipTLS)
	if err != nil {
		return nil, err
	}

	var endpoint oauth2.Endpoint
	if cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
	} else {
		if cfg.Authority == "" {
			return nil, errors.New("authority or token-url is required")
		}
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.Authority)
		if err != nil {
			return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
		}
		endpoint = provider.Endpoint()
	}

	scopes := []string{oidc.ScopeOpenID, "email", "profile"}
	if len(cfg.Scopes) > 0 {
		scopes = cfg.Scopes
	}
	skew := cfg.SkewMargin
	if skew == 0 {
		skew = DefaultSkewMargin
	}

	return &OAuthClient{
		oauth: oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: endpoint,
			Scopes:   scopes,
		},
		http:     httpClient,
		audience: cfg.Audience,
		skew:     skew,
		now:      time.Now,
	}, nil
}

// AuthorizationURL builds the browser URL for one login attempt. The
// construction is deterministic given the PKCE material and redirect URL.
func (c *OAuthClient) AuthorizationURL(pkce *PKCE, redirectURL string) string {
	cfg := c.oauth
	cfg.RedirectURL = redirectURL
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if c.audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", c.audience))
	}
	return cfg.AuthCodeURL(pkce.State, opts...)
}

// ExchangeCode performs the authorization-code + PKCE-verifier exchange.
// Failures are reported as *ExchangeError; Kind invalid_grant means the
// code was expired or reused and a fresh login is required.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string, pkce *PKCE, redirectURL string) (Credential, error) {
	cfg := c.oauth
	cfg.RedirectURL = redirectURL
	tok, err := cfg.Exchange(c.clientContext(ctx), code,
		oauth2.SetAuthURLParam("code_verifier", pkce.Verifier))
	if err != nil {
		return Credential{}, &ExchangeError{Kind: tokenErrorKind(err, KindInvalidGrant), Err: err}
	}
	return c.credentialFromToken(tok, ""), nil
}

// Refresh performs the refresh-token exchange. Failures are reported as
// *RefreshError; Kind invalid_refresh_token is terminal and the caller must
// fall back to interactive login.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (Credential, error) {
	if refreshToken == "" {
		return Credential{}, &RefreshError{Kind: KindInvalidRefreshToken, Err: errors.New("no refresh token available")}
	}
	src := c.oauth.TokenSource(c.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Credential{}, &RefreshError{Kind: tokenErrorKind(err, KindInvalidRefreshToken), Err: err}
	}
	return c.credentialFromToken(tok, refreshToken), nil
}

func (c *OAuthClient) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func (c *OAuthClient) credentialFromToken(tok *oauth2.Token, previousRefreshToken string) Credential {
	now := c.now()
	expiresAt := tok.Expiry
	if !expiresAt.IsZero() {
		expiresAt = expiresAt.Add(-c.skew)
	}
	refresh := tok.RefreshToken
	if refresh == "" {
		// Providers that do not rotate refresh tokens omit the field on
		// refresh responses; the previous token stays valid in that case.
		refresh = previousRefreshToken
	}
	var scopes []string
	if raw, ok := tok.Extra("scope").(string); ok && raw != "" {
		scopes = strings.Fields(raw)
	}
	return Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		TokenType:    tok.TokenType,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
		Scopes:       scopes,
	}
}

// tokenErrorKind classifies a token-endpoint failure. Only rejections that
// say the grant itself is bad are terminal; rate limiting, 4xx responses
// without an OAuth error code, network errors, and 5xx responses are
// transient and leave the stored credential usable for a retry.
func tokenErrorKind(err error, terminalKind string) string {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return KindTransient
	}
	switch rerr.ErrorCode {
	case "invalid_grant", "invalid_request", "invalid_client", "unauthorized_client":
		return terminalKind
	}
	if rerr.Response != nil && rerr.Response.StatusCode == http.StatusTooManyRequests {
		return KindTransient
	}
	if rerr.ErrorCode == "" {
		return KindTransient
	}
	if rerr.Response != nil && rerr.Response.StatusCode >= 400 && rerr.Response.StatusCode < 500 {
		return terminalKind
	}
	return KindTransient
}

func newHTTPClient(caFile string, insecure bool) (*http.Client, error) {
	tlsConfig, err := loadTLSConfig(caFile, insecure)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsConfig},
		Timeout:   30 * time.Second,
	}, nil
}

func loadTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: insecure}
	if caFile == "" {
		return tlsConfig, nil
	}
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(data); !ok {
		return nil, errors.New("failed to parse CA file")
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}
