package signer

import (
	"encoding/hex"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/chainproof/walletscore/internal/canonical"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return New(key)
}

func TestSignRoundTrip(t *testing.T) {
	s := newTestSigner(t)
	env := canonical.NewScoreEnvelope(705, "0x742d35cc6634c0532925a3b844bc9e7595f2bd18", 1700000000000)

	signed, err := s.Sign(env)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	sig, err := hex.DecodeString(signed.Signature)
	if err != nil {
		t.Fatalf("signature is not hex: %v", err)
	}
	if len(sig) != SignatureLength {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureLength)
	}

	if !Verify(s.PublicKeyBytes(), env, sig) {
		t.Fatal("round-trip verification failed")
	}
}

func TestVerifyFailsOnFlippedSignatureByte(t *testing.T) {
	s := newTestSigner(t)
	env := canonical.NewScoreEnvelope(705, "0xabc", 1700000000000)

	signed, _ := s.Sign(env)
	sig, _ := hex.DecodeString(signed.Signature)

	for i := 0; i < 64; i++ {
		flipped := append([]byte(nil), sig...)
		flipped[i] ^= 0x01
		if Verify(s.PublicKeyBytes(), env, flipped) {
			t.Fatalf("verification passed with byte %d flipped", i)
		}
	}
}

func TestVerifyFailsOnModifiedMessage(t *testing.T) {
	s := newTestSigner(t)
	env := canonical.NewScoreEnvelope(705, "0xabc", 1700000000000)

	signed, _ := s.Sign(env)
	sig, _ := hex.DecodeString(signed.Signature)

	tampered := []canonical.Envelope{
		canonical.NewScoreEnvelope(706, "0xabc", 1700000000000),
		canonical.NewScoreEnvelope(705, "0xabd", 1700000000000),
		canonical.NewScoreEnvelope(705, "0xabc", 1700000000001),
	}
	for i, bad := range tampered {
		if Verify(s.PublicKeyBytes(), bad, sig) {
			t.Errorf("verification passed for tampered envelope %d", i)
		}
	}
}

func TestVerifyRejectsWrongLength(t *testing.T) {
	s := newTestSigner(t)
	env := canonical.NewScoreEnvelope(1, "0xabc", 1)
	if Verify(s.PublicKeyBytes(), env, make([]byte, 64)) {
		t.Error("64-byte signature must be rejected")
	}
	if Verify(s.PublicKeyBytes(), env, make([]byte, 66)) {
		t.Error("66-byte signature must be rejected")
	}
}

func TestSignDeterministicForSameEnvelope(t *testing.T) {
	s := newTestSigner(t)
	env := canonical.NewScoreEnvelope(705, "0xabc", 1700000000000)

	first, _ := s.Sign(env)
	second, _ := s.Sign(env)
	if first.Signature != second.Signature {
		t.Error("same envelope and key must produce the same signature")
	}
}

func TestPublicKeyHexIsCompressed(t *testing.T) {
	s := newTestSigner(t)
	pub := s.PublicKeyHex()
	if len(pub) != 66 { // 33 bytes
		t.Fatalf("public key hex length = %d, want 66", len(pub))
	}
	if pub[:2] != "02" && pub[:2] != "03" {
		t.Errorf("compressed key must start with 02 or 03, got %s", pub[:2])
	}
}

func TestLoadFromHex(t *testing.T) {
	key, _ := crypto.GenerateKey()
	keyHex := hex.EncodeToString(crypto.FromECDSA(key))

	s, err := Load("", "0x"+keyHex)
	if err != nil {
		t.Fatalf("load from hex: %v", err)
	}
	if s.PublicKeyHex() != New(key).PublicKeyHex() {
		t.Error("loaded key does not match the original")
	}

	if _, err := Load("", ""); err != ErrNoKey {
		t.Errorf("empty sources: err = %v, want ErrNoKey", err)
	}
	if _, err := Load("", "not-hex"); err == nil {
		t.Error("bad hex must fail")
	}
}

func TestLoadFromFile(t *testing.T) {
	key, _ := crypto.GenerateKey()
	raw := crypto.FromECDSA(key)

	rawFile := t.TempDir() + "/key.bin"
	if err := writeFile(rawFile, raw); err != nil {
		t.Fatal(err)
	}
	s, err := Load(rawFile, "")
	if err != nil {
		t.Fatalf("load raw key file: %v", err)
	}
	if s.PublicKeyHex() != New(key).PublicKeyHex() {
		t.Error("raw key file does not match the original")
	}

	hexFile := t.TempDir() + "/key.hex"
	if err := writeFile(hexFile, []byte(hex.EncodeToString(raw)+"\n")); err != nil {
		t.Fatal(err)
	}
	s, err = Load(hexFile, "")
	if err != nil {
		t.Fatalf("load hex key file: %v", err)
	}
	if s.PublicKeyHex() != New(key).PublicKeyHex() {
		t.Error("hex key file does not match the original")
	}
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}
