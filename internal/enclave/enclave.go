// Package enclave holds the ledger-side trust anchors: the approved
// measurement configuration, the registered signer records, and the
// capability token that guards configuration changes.
package enclave

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrAlreadyBootstrapped indicates Bootstrap was called on a store that
	// already holds a configuration.
	ErrAlreadyBootstrapped = errors.New("enclave: already bootstrapped")
	// ErrNotBootstrapped indicates no configuration exists yet.
	ErrNotBootstrapped = errors.New("enclave: not bootstrapped")
	// ErrBadCapability indicates the presented capability token does not
	// match the one issued at bootstrap.
	ErrBadCapability = errors.New("enclave: invalid capability token")
	// ErrRecordExists indicates a signer record already exists for the key.
	ErrRecordExists = errors.New("enclave: signer record already exists")
	// ErrRecordNotFound indicates no signer record matches the key.
	ErrRecordNotFound = errors.New("enclave: signer record not found")
)

// Config is the versioned set of approved measurement values. Mutable only
// through the capability token; every mutation increments Version.
type Config struct {
	Measurements [][]byte  `json:"measurements"`
	Version      int64     `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Record binds a signer public key to the config version it was registered
// under. Immutable once created; a new environment build registers a new
// record under a new config version.
type Record struct {
	PublicKey     []byte    `json:"public_key"` // compressed secp256k1
	ConfigVersion int64     `json:"config_version"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// Store persists enclave configuration and signer records.
type Store interface {
	// Bootstrap creates the initial config with version 1 and returns the
	// capability token. It succeeds exactly once per store.
	Bootstrap(ctx context.Context, measurements [][]byte) (capability string, err error)

	// Config returns the current configuration.
	Config(ctx context.Context) (*Config, error)

	// UpdateConfig replaces the measurement set and bumps the version.
	// Requires the capability token issued at bootstrap.
	UpdateConfig(ctx context.Context, capability string, measurements [][]byte) (*Config, error)

	// CreateRecord stores an immutable signer record.
	CreateRecord(ctx context.Context, rec *Record) error

	// Record looks up a signer record by compressed public key.
	Record(ctx context.Context, publicKey []byte) (*Record, error)
}

// newCapability generates a fresh random token and its stored hash. Only the
// hash is persisted; the raw token is returned once to the bootstrap caller.
func newCapability() (token string, hash [32]byte, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", hash, err
	}
	token = hex.EncodeToString(raw)
	hash = sha256.Sum256([]byte(token))
	return token, hash, nil
}

// capabilityHash hashes a presented token for comparison against the stored
// hash.
func capabilityHash(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// cloneMeasurements deep-copies a measurement set so callers cannot mutate
// stored state through the returned slices.
func cloneMeasurements(in [][]byte) [][]byte {
	out := make([][]byte, len(in))
	for i, m := range in {
		out[i] = append([]byte(nil), m...)
	}
	return out
}
