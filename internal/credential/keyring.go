package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "outreach-inbox"

// TokenKey is the keyring entry holding the backend API token.
const TokenKey = "api-token"

// TokenEnv overrides the keyring token when set.
const TokenEnv = "OUTREACH_API_TOKEN"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/outreach-inbox/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("outreach-inbox-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "outreach-inbox API token",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// APIToken resolves the backend token: the environment first, then the
// keyring. A missing token is not an error; requests go out without auth.
func APIToken() (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnv)); tok != "" {
		return tok, nil
	}

	tok, err := Get(TokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(tok), nil
}

// TokenStore persists the API token in the system keyring.
type TokenStore struct{}

// SaveToken stores token under TokenKey.
func (TokenStore) SaveToken(token string) error {
	return Set(TokenKey, token)
}

// ClearToken removes the stored token. A missing entry is not an error.
func (TokenStore) ClearToken() error {
	return Delete(TokenKey)
}

// EnvOverride reports whether TokenEnv is set, in which case the stored
// token is ignored at startup.
func EnvOverride() bool {
	return strings.TrimSpace(os.Getenv(TokenEnv)) != ""
}
