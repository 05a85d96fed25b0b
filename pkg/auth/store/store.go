// Package store persists CLI credentials at rest. The primary backend is
// the operating-system keyring; when no keyring is available it degrades to
// an encrypted file. Records are keyed by (environment, account) so tokens
// never cross environments.
package store

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	BackendKeychain = "keychain"
	BackendFile     = "encrypted-file"
	BackendMemory   = "memory"
)

// Key identifies exactly one stored credential.
type Key struct {
	Environment string
	Account     string
}

func (k Key) String() string {
	return k.Environment + "/" + k.Account
}

// Record is the serialized form of a credential. Backend is filled in on
// load and ignored on save.
type Record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scope,omitempty"`
	Backend      string    `json:"-"`
}

// Store is the credential persistence contract. Save fully replaces any
// prior record for the key and never leaves a partial write behind. Load
// reports absence via the second return value, not an error. Delete is
// idempotent.
type Store interface {
	Save(key Key, rec Record) error
	Load(key Key) (Record, bool, error)
	Delete(key Key) error
	Backend() string
}

// Error wraps a backend failure so callers can tell storage trouble apart
// from the rest of the auth error taxonomy.
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s store %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func storageErr(backend, op string, err error) error {
	return &Error{Backend: backend, Op: op, Err: err}
}

// Open selects a backend. preference is "keychain", "file" or "auto"
// (empty means auto): auto probes the keyring and falls back to the
// encrypted file store with a one-time warning.
func Open(log *zap.SugaredLogger, preference, fileDir string) (Store, error) {
	switch preference {
	case "keychain":
		kr := NewKeyringStore()
		if !kr.Available() {
			return nil, fmt.Errorf("keychain storage requested but no keyring service is available")
		}
		return kr, nil
	case "file":
		return NewFileStore(fileDir), nil
	case "", "auto":
		kr := NewKeyringStore()
		if kr.Available() {
			return kr, nil
		}
		if log != nil {
			log.Warnf("system keyring unavailable, falling back to encrypted file storage in %s", fileDir)
		}
		return NewFileStore(fileDir), nil
	default:
		return nil, fmt.Errorf("unknown token storage %q (must be one of: keychain, file, auto)", preference)
	}
}
