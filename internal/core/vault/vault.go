// Package vault defines the vault interface for secrets management.
package vault

import (
	"context"
	"fmt"
	"strings"
)

// Vault defines the interface for vault/secrets operations.
type Vault interface {
	// StoreSecret stores a secret in the vault.
	// Returns the URI/reference to the stored secret.
	StoreSecret(ctx context.Context, key string, value string) (string, error)

	// GetSecret retrieves a secret from the vault by URI.
	// Returns the secret value or an error if not found.
	GetSecret(ctx context.Context, uri string) (string, error)

	// Ping checks if the vault connection is alive.
	Ping(ctx context.Context) error

	// Close closes the vault connection.
	Close() error
}

// ResolveSecrets looks up every reference and fails on the first missing one.
func ResolveSecrets(ctx context.Context, v Vault, refs ...string) ([]string, error) {
	values := make([]string, 0, len(refs))
	for _, ref := range refs {
		if !strings.Contains(ref, "://") {
			return nil, fmt.Errorf("invalid secret reference %q", ref)
		}
		value, err := v.GetSecret(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve secret %s: %w", ref, err)
		}
		values = append(values, value)
	}
	return values, nil
}
