// Package canonical encodes score envelopes into a fixed byte layout.
//
// The encoding is a hard external contract shared between the signing oracle
// and the ledger-side verifier: field order, integer widths, and string
// length-prefixing must never change, or every signature produced before the
// change stops verifying.
//
// Layout (no padding, fields concatenated in order):
//
//	intent_tag    u8
//	timestamp_ms  u64 big-endian
//	score         u64 big-endian
//	addr_len      u32 big-endian
//	addr_bytes    addr_len bytes (lowercased wallet address)
package canonical

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// IntentScoreSubmission tags envelopes carrying a reputation score. The tag
// prevents signature reuse across unrelated message types.
const IntentScoreSubmission uint8 = 0x01

// Payload is the signed content: score first, wallet address second.
type Payload struct {
	Score         uint64
	WalletAddress string
}

// Envelope wraps a payload with an intent tag and a wall-clock timestamp.
type Envelope struct {
	IntentTag   uint8
	TimestampMS uint64
	Payload     Payload
}

// NewScoreEnvelope builds a score-submission envelope.
func NewScoreEnvelope(score uint64, walletAddress string, timestampMS uint64) Envelope {
	return Envelope{
		IntentTag:   IntentScoreSubmission,
		TimestampMS: timestampMS,
		Payload: Payload{
			Score:         score,
			WalletAddress: walletAddress,
		},
	}
}

// Encode serializes the envelope into canonical bytes. The wallet address is
// lowercased before encoding so that mixed-case submissions of the same
// address produce identical bytes.
func Encode(env Envelope) []byte {
	addr := []byte(strings.ToLower(env.Payload.WalletAddress))

	buf := make([]byte, 0, 1+8+8+4+len(addr))
	buf = append(buf, env.IntentTag)
	buf = binary.BigEndian.AppendUint64(buf, env.TimestampMS)
	buf = binary.BigEndian.AppendUint64(buf, env.Payload.Score)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(addr)))
	buf = append(buf, addr...)
	return buf
}

// Digest returns the sha256 hash of the canonical bytes. This is the value
// both the signer and the verifier operate on.
func Digest(env Envelope) [32]byte {
	return sha256.Sum256(Encode(env))
}
