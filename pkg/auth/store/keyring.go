package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringService is the service name records are filed under.
// - macOS: Keychain
// - Windows: Credential Manager
// - Linux: Secret Service (libsecret)
const keyringService = "tessera-cli"

type KeyringStore struct {
	service string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService}
}

// Available probes the keyring with a read. ErrNotFound means the keyring
// answered, which is all we need to know.
func (s *KeyringStore) Available() bool {
	_, err := keyring.Get(s.service, "__probe__")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

func (s *KeyringStore) Backend() string { return BackendKeychain }

func (s *KeyringStore) Save(key Key, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return storageErr(BackendKeychain, "save", fmt.Errorf("marshal record: %w", err))
	}
	if err := keyring.Set(s.service, key.String(), string(data)); err != nil {
		return storageErr(BackendKeychain, "save", err)
	}
	return nil
}

func (s *KeyringStore) Load(key Key) (Record, bool, error) {
	secret, err := keyring.Get(s.service, key.String())
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Record{}, false, nil
		}
		return Record{}, false, storageErr(BackendKeychain, "load", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(secret), &rec); err != nil {
		return Record{}, false, storageErr(BackendKeychain, "load", fmt.Errorf("parse record: %w", err))
	}
	rec.Backend = BackendKeychain
	return rec, true, nil
}

func (s *KeyringStore) Delete(key Key) error {
	err := keyring.Delete(s.service, key.String())
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return storageErr(BackendKeychain, "delete", err)
	}
	return nil
}
