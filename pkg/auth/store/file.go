package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	fileKeyName = ".key"
	fileSuffix  = ".cred"
)

// FileStore keeps one AES-256-GCM encrypted record per key under dir. The
// cipher key is a random 32-byte file next to the records, created on first
// use with 0600 permissions.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Backend() string { return BackendFile }

func (s *FileStore) recordPath(key Key) string {
	name := strings.ReplaceAll(key.String(), "/", "-") + fileSuffix
	return filepath.Join(s.dir, name)
}

func (s *FileStore) Save(key Key, rec Record) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return storageErr(BackendFile, "save", fmt.Errorf("create credentials dir: %w", err))
	}
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return storageErr(BackendFile, "save", fmt.Errorf("marshal record: %w", err))
	}
	sealed, err := s.seal(plaintext)
	if err != nil {
		return storageErr(BackendFile, "save", err)
	}
	// Write-temp-then-rename so a crash mid-write never leaves a torn record.
	tmp, err := os.CreateTemp(s.dir, ".tmp-cred-*")
	if err != nil {
		return storageErr(BackendFile, "save", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storageErr(BackendFile, "save", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storageErr(BackendFile, "save", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storageErr(BackendFile, "save", err)
	}
	if err := os.Rename(tmpName, s.recordPath(key)); err != nil {
		_ = os.Remove(tmpName)
		return storageErr(BackendFile, "save", err)
	}
	return nil
}

func (s *FileStore) Load(key Key) (Record, bool, error) {
	sealed, err := os.ReadFile(s.recordPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, storageErr(BackendFile, "load", err)
	}
	plaintext, err := s.open(sealed)
	if err != nil {
		return Record{}, false, storageErr(BackendFile, "load", err)
	}
	var rec Record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return Record{}, false, storageErr(BackendFile, "load", fmt.Errorf("parse record: %w", err))
	}
	rec.Backend = BackendFile
	return rec, true, nil
}

func (s *FileStore) Delete(key Key) error {
	err := os.Remove(s.recordPath(key))
	if err != nil && !os.IsNotExist(err) {
		return storageErr(BackendFile, "delete", err)
	}
	return nil
}

func (s *FileStore) seal(plaintext []byte) ([]byte, error) {
	gcm, err := s.cipher()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *FileStore) open(sealed []byte) ([]byte, error) {
	gcm, err := s.cipher()
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("record too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt record: %w", err)
	}
	return plaintext, nil
}

func (s *FileStore) cipher() (cipher.AEAD, error) {
	key, err := s.loadOrCreateKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s *FileStore) loadOrCreateKey() ([]byte, error) {
	path := filepath.Join(s.dir, fileKeyName)
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != 32 {
			return nil, fmt.Errorf("cipher key %s has unexpected length %d", path, len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate cipher key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write cipher key: %w", err)
	}
	return key, nil
}
