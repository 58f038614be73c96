package soci

import (
	"context"
	"fmt"
	"sync"

	"github.com/soci-go/soci/backend"
)

// Vault gates dynamic backend plugin loading behind a verified secret,
// since LoadPlugin ultimately calls into Go's plugin.Open — loading and
// running arbitrary code from disk — the same trust boundary SOCI's
// dynamic_backends loader crosses when it dlopen()s a shared library
// named libsoci_<name>.so. LoadPluginGuarded and RegisterGuarded refuse to
// load a plugin until the Vault is unlocked with the secret it was built
// with; the package-level LoadPlugin and Register are not gated by a Vault.
type Vault struct {
	hasher   *passwordHasher
	mu       sync.RWMutex
	hash     string
	unlocked bool
}

// NewVault creates a Vault whose Unlock accepts only the password matching
// hash (produced ahead of time by HashSecret, e.g. during provisioning).
// Plugin loading through this Vault stays locked until Unlock succeeds.
func NewVault(hash string) (*Vault, error) {
	h, err := newPasswordHasher(HashConfig{})
	if err != nil {
		return nil, fmt.Errorf("soci: vault: %w", err)
	}
	return &Vault{hasher: h, hash: hash}, nil
}

// HashSecret hashes secret with the default algorithm (Argon2id), the
// standalone helper a provisioning step uses to produce the hash NewVault
// is built with.
func HashSecret(ctx context.Context, secret string) (string, error) {
	h, err := newPasswordHasher(HashConfig{})
	if err != nil {
		return "", fmt.Errorf("soci: vault: %w", err)
	}
	return h.hash(ctx, secret)
}

// Unlock verifies secret against the Vault's stored hash. Once unlocked, a
// Vault stays unlocked for its lifetime — it is meant to gate process
// startup, not to be re-locked per call.
func (v *Vault) Unlock(ctx context.Context, secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unlocked {
		return nil
	}
	if err := v.hasher.compare(ctx, v.hash, secret); err != nil {
		return New(NoPrivilege, "soci: vault: incorrect secret")
	}
	v.unlocked = true
	return nil
}

// IsUnlocked reports whether Unlock has succeeded.
func (v *Vault) IsUnlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unlocked
}

// LoadPluginGuarded is LoadPlugin gated by v: it refuses to call
// plugin.Open until v.Unlock has succeeded, the Go analogue of requiring
// an operator-provided credential before a dynamically loaded backend is
// allowed to run in-process.
func (v *Vault) LoadPluginGuarded(path string) (backend.Factory, error) {
	if !v.IsUnlocked() {
		return nil, New(NoPrivilege, "soci: vault: locked; call Unlock before loading a backend plugin")
	}
	return LoadPlugin(path)
}

// RegisterGuarded loads the plugin at path through v and registers its
// Factory under name in one step.
func (v *Vault) RegisterGuarded(name, path string) error {
	f, err := v.LoadPluginGuarded(path)
	if err != nil {
		return err
	}
	Register(name, f)
	return nil
}
