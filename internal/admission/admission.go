// Package admission implements the ledger-side score admission logic: signer
// registration via attestation, capability-gated config updates, and the
// dual-signature verification state machine run on every score submission.
package admission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMalformedSignature indicates a signature was not exactly 65 bytes.
	ErrMalformedSignature = errors.New("admission: signature must be 65 bytes")
	// ErrEnvironmentSignature indicates the environment signature did not
	// verify against the registered signer key.
	ErrEnvironmentSignature = errors.New("admission: environment signature invalid")
	// ErrUnknownSigner indicates no signer record matches the recovered key.
	ErrUnknownSigner = errors.New("admission: signer not registered")
	// ErrOwnershipMismatch indicates the wallet signature recovers to a
	// different address than the one being scored.
	ErrOwnershipMismatch = errors.New("admission: wallet ownership mismatch")
	// ErrDuplicateTimestamp indicates a score already exists for the
	// submitted timestamp.
	ErrDuplicateTimestamp = errors.New("admission: duplicate timestamp")
	// ErrNoScores indicates nothing has been admitted yet.
	ErrNoScores = errors.New("admission: no scores admitted")
)

// ScoreRecord is an admitted score, keyed by submission timestamp.
type ScoreRecord struct {
	TimestampMS   uint64    `json:"timestamp_ms"`
	Score         uint64    `json:"score"`
	WalletAddress string    `json:"wallet_address"`
	AdmittedAt    time.Time `json:"admitted_at"`
}

// Submission carries one score plus both proofs into the state machine.
type Submission struct {
	Score                uint64
	WalletAddress        string
	TimestampMS          uint64
	EnvironmentSignature []byte
	WalletSignature      []byte
}

// Store persists admitted scores. Implementations must make Insert atomic:
// either the record lands and the latest pointer is (possibly) advanced, or
// nothing changes.
type Store interface {
	// Insert stores a record keyed by timestamp and advances the latest
	// pointer iff the record's timestamp exceeds the current latest.
	// Returns ErrDuplicateTimestamp if the key exists.
	Insert(ctx context.Context, rec *ScoreRecord) error

	// Latest returns the record the latest pointer names, or ErrNoScores.
	Latest(ctx context.Context) (*ScoreRecord, error)

	// History lists admitted records for a wallet, newest first.
	History(ctx context.Context, walletAddress string, limit int) ([]*ScoreRecord, error)
}

// OwnershipMessage builds the human-readable authorization string a wallet
// holder signs to approve a score submission. Shared contract with wallet
// clients: the exact text, field order, and lowercase address matter.
func OwnershipMessage(score uint64, walletAddress string, timestampMS uint64) string {
	return fmt.Sprintf(
		"WalletScore submission\nscore: %d\nwallet: %s\ntimestamp_ms: %d",
		score, strings.ToLower(walletAddress), timestampMS)
}
