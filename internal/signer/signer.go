// Package signer produces secp256k1 signatures over canonical score envelopes.
//
// The signing key is loaded exactly once at process start and held in memory
// for the lifetime of the process. It is never exposed through any interface;
// callers only ever see the compressed public key and signatures.
package signer

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainproof/walletscore/internal/canonical"
)

var (
	// ErrNoKey indicates no signing key source was configured.
	ErrNoKey = errors.New("signer: no signing key configured")
	// ErrBadKey indicates the key material could not be parsed.
	ErrBadKey = errors.New("signer: invalid signing key material")
)

// SignatureLength is the length of a recoverable secp256k1 signature
// (r 32 bytes, s 32 bytes, recovery id 1 byte).
const SignatureLength = 65

// SignedScore is the immutable output of a signing operation. The signature
// covers exactly the canonical envelope of (score, wallet_address,
// timestamp_ms); nothing else in this struct is signed.
type SignedScore struct {
	Score         uint64 `json:"score"`
	WalletAddress string `json:"wallet_address"`
	TimestampMS   uint64 `json:"timestamp_ms"`
	Signature     string `json:"signature"` // hex, 65 bytes
}

// Signer holds the process signing key. Read-only after construction; safe
// for concurrent use without locking.
type Signer struct {
	key    *ecdsa.PrivateKey
	pubHex string
}

// New wraps an already-parsed private key.
func New(key *ecdsa.PrivateKey) *Signer {
	return &Signer{
		key:    key,
		pubHex: hex.EncodeToString(crypto.CompressPubkey(&key.PublicKey)),
	}
}

// Load reads the signing key from keyHex if set, otherwise from keyFile.
// The file may hold either the raw 32-byte key or its hex encoding.
func Load(keyFile, keyHex string) (*Signer, error) {
	if keyHex != "" {
		return fromHex(keyHex)
	}
	if keyFile == "" {
		return nil, ErrNoKey
	}

	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("signer: read key file: %w", err)
	}
	if len(raw) == 32 {
		key, err := crypto.ToECDSA(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
		}
		return New(key), nil
	}
	return fromHex(strings.TrimSpace(string(raw)))
}

func fromHex(s string) (*Signer, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadKey, err)
	}
	return New(key), nil
}

// Sign hashes the canonical envelope and signs the digest. The signature is
// a fixed-length r||s||v scalar pair, deterministic for a given envelope and
// key (RFC 6979 nonces).
func (s *Signer) Sign(env canonical.Envelope) (*SignedScore, error) {
	digest := canonical.Digest(env)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("signer: sign: %w", err)
	}
	return &SignedScore{
		Score:         env.Payload.Score,
		WalletAddress: env.Payload.WalletAddress,
		TimestampMS:   env.TimestampMS,
		Signature:     hex.EncodeToString(sig),
	}, nil
}

// PublicKeyHex returns the compressed public key, hex-encoded (33 bytes).
func (s *Signer) PublicKeyHex() string {
	return s.pubHex
}

// PublicKeyBytes returns the compressed public key bytes.
func (s *Signer) PublicKeyBytes() []byte {
	b, _ := hex.DecodeString(s.pubHex)
	return b
}

// Verify reports whether sig (65 bytes, r||s||v) is a valid signature over
// env's canonical digest by the holder of compressedPub. The recovery id is
// ignored for verification.
func Verify(compressedPub []byte, env canonical.Envelope, sig []byte) bool {
	if len(sig) != SignatureLength {
		return false
	}
	digest := canonical.Digest(env)
	return crypto.VerifySignature(compressedPub, digest[:], sig[:64])
}
