package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

const serviceName = "parcel-tracker"

// Store holds provider API keys. Implementations must treat an absent
// key as ("", nil) so callers can distinguish "not configured" from a
// backend failure.
type Store interface {
	// Read returns the secret for account, or "" when none is stored.
	Read(account string) (string, error)
	// Write stores or replaces the secret for account.
	Write(account, secret string) error
	// Delete removes the secret for account. Deleting a missing secret
	// is not an error.
	Delete(account string) error
}

// KeyringStore keeps secrets in the OS keyring, falling back to an
// encrypted file backend on headless systems.
type KeyringStore struct {
	fileDir string
}

// NewKeyringStore creates a KeyringStore. fileDir is where the file
// backend keeps its encrypted store when no system keyring is available.
func NewKeyringStore(fileDir string) *KeyringStore {
	return &KeyringStore{fileDir: fileDir}
}

func (s *KeyringStore) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  s.fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Read implements Store.
func (s *KeyringStore) Read(account string) (string, error) {
	ring, err := s.open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(account)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading credential %q: %w", account, err)
	}
	return string(item.Data), nil
}

// Write implements Store.
func (s *KeyringStore) Write(account, secret string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  account,
		Data: []byte(secret),
	})
	if err != nil {
		return fmt.Errorf("writing credential %q: %w", account, err)
	}
	return nil
}

// Delete implements Store.
func (s *KeyringStore) Delete(account string) error {
	ring, err := s.open()
	if err != nil {
		return err
	}

	err = ring.Remove(account)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", account, err)
	}
	return nil
}

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{secrets: make(map[string]string)}
}

// Read implements Store.
func (s *MemoryStore) Read(account string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secrets[account], nil
}

// Write implements Store.
func (s *MemoryStore) Write(account, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[account] = secret
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, account)
	return nil
}
