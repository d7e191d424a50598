// Package secrets resolves provider credentials: environment variable first,
// then the OS keyring, then an encrypted file vault.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "openchat"
	vaultFile      = "vault.enc"
)

// Resolver looks up API keys through the credential chain. A nil vault skips
// the file fallback.
type Resolver struct {
	vault *Vault
}

// NewResolver builds a resolver whose vault lives under ~/.openchat.
// vaultKey may be nil when only env vars and the keyring are in play.
func NewResolver(vaultKey []byte) (*Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".openchat")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Resolver{vault: NewVault(filepath.Join(dir, vaultFile), vaultKey)}, nil
}

// NewResolverWithVault builds a resolver over an explicit vault.
func NewResolverWithVault(vault *Vault) *Resolver {
	return &Resolver{vault: vault}
}

// APIKey resolves the credential for a provider name. Returns "" when no
// tier has it; the registry treats that as "provider not configured".
func (r *Resolver) APIKey(provider string) string {
	if v := os.Getenv(envVar(provider)); v != "" {
		return v
	}
	if v, err := keyring.Get(keyringService, provider); err == nil && v != "" {
		return v
	}
	if r.vault != nil {
		if v, err := r.vault.Get(provider); err == nil {
			return v
		}
	}
	return ""
}

// Store saves a credential in the keyring, falling back to the vault.
func (r *Resolver) Store(provider, value string) error {
	if err := keyring.Set(keyringService, provider, value); err == nil {
		return nil
	}
	return r.vault.Set(provider, value)
}

// Forget removes a credential from both the keyring and the vault.
func (r *Resolver) Forget(provider string) error {
	_ = keyring.Delete(keyringService, provider)
	if r.vault == nil {
		return nil
	}
	return r.vault.Delete(provider)
}

func envVar(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// MaskKey returns a masked version of an API key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
