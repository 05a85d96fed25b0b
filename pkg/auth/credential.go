package auth

import (
	"time"

	"github.com/tesserabio/tessera-cli/pkg/auth/store"
)

// Credential is the in-memory token material for one (environment, account).
// ExpiresAt already includes the clock-skew margin, so Valid answers
// slightly before the provider actually invalidates the token.
type Credential struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	Scopes       []string
}

func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && (c.ExpiresAt.IsZero() || now.Before(c.ExpiresAt))
}

// Renewable reports whether the credential can be refreshed without user
// interaction. A credential without a refresh token forces interactive
// login once it expires.
func (c Credential) Renewable() bool { return c.RefreshToken != "" }

func (c Credential) toRecord() store.Record {
	return store.Record{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		IssuedAt:     c.IssuedAt,
		ExpiresAt:    c.ExpiresAt,
		Scopes:       c.Scopes,
	}
}

func credentialFromRecord(rec store.Record) Credential {
	return Credential{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenType:    rec.TokenType,
		IssuedAt:     rec.IssuedAt,
		ExpiresAt:    rec.ExpiresAt,
		Scopes:       rec.Scopes,
	}
}
