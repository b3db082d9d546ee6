// Package dotenv provides a dotenv-based vault implementation.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

const scheme = "dotenv://"

// Vault implements the vault.Vault interface using environment variables.
// Environment variables take precedence over values stored with StoreSecret.
type Vault struct {
	secrets map[string]string
	mu      sync.RWMutex
}

// NewVault creates a new DotEnv vault instance.
func NewVault() *Vault {
	return &Vault{
		secrets: make(map[string]string),
	}
}

// StoreSecret stores a secret in memory.
// Returns a URI in the format "dotenv://{key}".
func (v *Vault) StoreSecret(ctx context.Context, key string, value string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.secrets[key] = value
	return scheme + key, nil
}

// GetSecret retrieves a secret from environment variables or the in-memory store.
func (v *Vault) GetSecret(ctx context.Context, uri string) (string, error) {
	if !strings.HasPrefix(uri, scheme) {
		return "", fmt.Errorf("unsupported secret uri: %s", uri)
	}
	key := strings.TrimPrefix(uri, scheme)

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if value, ok := v.secrets[key]; ok {
		return value, nil
	}

	return "", fmt.Errorf("secret not found: %s", key)
}

// Ping always succeeds for dotenv.
func (v *Vault) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for dotenv.
func (v *Vault) Close() error {
	return nil
}
