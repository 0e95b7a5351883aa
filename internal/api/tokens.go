package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

// TokenStore persists the credential pair. Load on an empty store returns
// zero Tokens and no error.
type TokenStore interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}

// MemoryStore keeps tokens in process.
type MemoryStore struct {
	mu     sync.Mutex
	tokens Tokens
}

func (m *MemoryStore) Load() (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens, nil
}

func (m *MemoryStore) Save(t Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save(Tokens{})
}

const (
	keyAccess  = "access"
	keyRefresh = "refresh"

	// DefaultKeyringService names the keychain entry.
	DefaultKeyringService = "reflex"
)

// KeyringStore keeps tokens in the OS keychain, falling back to a 0600 JSON
// file when no keychain is available.
type KeyringStore struct {
	service      string
	account      string
	fallbackPath string
	mu           sync.Mutex
}

var (
	_ TokenStore = (*MemoryStore)(nil)
	_ TokenStore = (*KeyringStore)(nil)
)

// NewKeyringStore creates a keyring-backed store. An empty fallbackPath
// disables the file fallback.
func NewKeyringStore(service, fallbackPath string) *KeyringStore {
	if strings.TrimSpace(service) == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service, account: "default", fallbackPath: fallbackPath}
}

func (k *KeyringStore) key(part string) string {
	return k.account + "/" + part
}

func (k *KeyringStore) Load() (Tokens, error) {
	access, err := k.get(keyAccess)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := k.get(keyRefresh)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

func (k *KeyringStore) Save(t Tokens) error {
	if err := k.set(keyAccess, t.Access); err != nil {
		return err
	}
	return k.set(keyRefresh, t.Refresh)
}

func (k *KeyringStore) Clear() error {
	var errs []error
	for _, part := range []string{keyAccess, keyRefresh} {
		if err := keyring.Delete(k.service, k.key(part)); err != nil &&
			!errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
			errs = append(errs, err)
		}
	}
	if err := k.clearFallback(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (k *KeyringStore) set(part, value string) error {
	err := keyring.Set(k.service, k.key(part), value)
	if err == nil {
		return nil
	}
	if !isKeyringUnavailable(err) {
		return fmt.Errorf("api: keyring set %s: %w", part, err)
	}
	return k.setFallback(part, value)
}

func (k *KeyringStore) get(part string) (string, error) {
	val, err := keyring.Get(k.service, k.key(part))
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, keyring.ErrNotFound) && !isKeyringUnavailable(err) {
		return "", fmt.Errorf("api: keyring get %s: %w", part, err)
	}
	return k.getFallback(part)
}

func isKeyringUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "secret service") ||
		strings.Contains(msg, "dbus") ||
		strings.Contains(msg, "no keychain") ||
		strings.Contains(msg, "keyring backend not available")
}

func (k *KeyringStore) setFallback(part, value string) error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return fmt.Errorf("api: keyring unavailable and no fallback path configured")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	data, err := k.readFallback()
	if err != nil {
		return err
	}
	data[part] = value
	return k.writeFallback(data)
}

func (k *KeyringStore) getFallback(part string) (string, error) {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return "", nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	data, err := k.readFallback()
	if err != nil {
		return "", err
	}
	return data[part], nil
}

func (k *KeyringStore) clearFallback() error {
	if strings.TrimSpace(k.fallbackPath) == "" {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := os.Remove(k.fallbackPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("api: remove fallback tokens: %w", err)
	}
	return nil
}

func (k *KeyringStore) readFallback() (map[string]string, error) {
	out := map[string]string{}
	raw, err := os.ReadFile(k.fallbackPath)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("api: read fallback tokens: %w", err)
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("api: decode fallback tokens: %w", err)
	}
	return out, nil
}

func (k *KeyringStore) writeFallback(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(k.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("api: mkdir fallback dir: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("api: encode fallback tokens: %w", err)
	}
	if err := os.WriteFile(k.fallbackPath, raw, 0o600); err != nil {
		return fmt.Errorf("api: write fallback tokens: %w", err)
	}
	return nil
}
