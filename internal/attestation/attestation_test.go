package attestation

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func testMeasurements() [][]byte {
	out := make([][]byte, MeasurementCount)
	for i := range out {
		m := make([]byte, MeasurementSize)
		for j := range m {
			m[j] = byte(i*16 + j)
		}
		out[i] = m
	}
	return out
}

func testDocumentJSON(t *testing.T, measurements [][]byte) []byte {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hexM := make([]string, len(measurements))
	for i, m := range measurements {
		hexM[i] = hex.EncodeToString(m)
	}
	raw, err := json.Marshal(map[string]interface{}{
		"measurements": hexM,
		"public_key":   hex.EncodeToString(crypto.CompressPubkey(&key.PublicKey)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestParseValidDocument(t *testing.T) {
	approved := testMeasurements()
	doc, err := Parse(testDocumentJSON(t, approved))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Measurements) != MeasurementCount {
		t.Fatalf("measurements = %d, want %d", len(doc.Measurements), MeasurementCount)
	}
	if len(doc.PublicKey) != 33 {
		t.Errorf("public key length = %d, want 33", len(doc.PublicKey))
	}
	if !bytes.Equal(doc.Measurements[2], approved[2]) {
		t.Error("measurement bytes were not preserved")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"not json", []byte("nope"), ErrMalformedDocument},
		{"three measurements", []byte(`{"measurements": ["00", "01", "02"], "public_key": "02"}`), ErrMalformedDocument},
		{"short measurement", []byte(`{"measurements": ["00", "01", "02", "03"], "public_key": "02"}`), ErrMalformedDocument},
		{"bad hex", []byte(`{"measurements": ["zz", "01", "02", "03"], "public_key": "02"}`), ErrMalformedDocument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.raw); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseRejectsBadPublicKey(t *testing.T) {
	raw := testDocumentJSON(t, testMeasurements())
	var w map[string]interface{}
	_ = json.Unmarshal(raw, &w)
	w["public_key"] = "0202020202"
	bad, _ := json.Marshal(w)
	if _, err := Parse(bad); !errors.Is(err, ErrBadPublicKey) {
		t.Errorf("error = %v, want ErrBadPublicKey", err)
	}
}

func TestVerifyByteExact(t *testing.T) {
	approved := testMeasurements()
	doc, err := Parse(testDocumentJSON(t, approved))
	if err != nil {
		t.Fatal(err)
	}

	if err := doc.Verify(approved); err != nil {
		t.Fatalf("matching measurements rejected: %v", err)
	}

	// A single flipped byte in any measurement is fatal.
	for i := 0; i < MeasurementCount; i++ {
		tampered := make([][]byte, MeasurementCount)
		for j := range approved {
			tampered[j] = append([]byte(nil), approved[j]...)
		}
		tampered[i][MeasurementSize/2] ^= 0x01

		if err := doc.Verify(tampered); !errors.Is(err, ErrMeasurementMismatch) {
			t.Errorf("measurement %d: error = %v, want ErrMeasurementMismatch", i, err)
		}
	}
}
