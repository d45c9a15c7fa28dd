// Package attestation parses environment attestation documents and compares
// their measurement values against an approved configuration.
//
// Comparison is byte-exact and fail-closed: all four measurements must match
// the active configuration exactly, or the document is rejected. There is no
// partial-match tolerance.
package attestation

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MeasurementCount is the number of measurement registers in a document.
	MeasurementCount = 4
	// MeasurementSize is the byte length of each measurement value.
	MeasurementSize = 48
)

var (
	// ErrMalformedDocument indicates the document could not be parsed.
	ErrMalformedDocument = errors.New("attestation: malformed document")
	// ErrBadPublicKey indicates the embedded key is not a valid compressed
	// secp256k1 public key.
	ErrBadPublicKey = errors.New("attestation: invalid public key")
	// ErrMeasurementMismatch indicates at least one measurement differs from
	// the approved configuration.
	ErrMeasurementMismatch = errors.New("attestation: measurement mismatch")
)

// Document is a parsed attestation: four fixed-length measurement values and
// the compressed public key of the attested environment's signing identity.
type Document struct {
	Measurements [][]byte
	PublicKey    []byte // compressed secp256k1, 33 bytes
}

type wireDocument struct {
	Measurements []string `json:"measurements"`
	PublicKey    string   `json:"public_key"`
}

// Parse decodes and structurally validates an attestation document. It does
// not compare measurements; call Verify with the approved set for that.
func Parse(raw []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if len(w.Measurements) != MeasurementCount {
		return nil, fmt.Errorf("%w: expected %d measurements, got %d",
			ErrMalformedDocument, MeasurementCount, len(w.Measurements))
	}

	doc := &Document{Measurements: make([][]byte, 0, MeasurementCount)}
	for i, m := range w.Measurements {
		b, err := hex.DecodeString(strings.TrimPrefix(m, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: measurement %d: %v", ErrMalformedDocument, i, err)
		}
		if len(b) != MeasurementSize {
			return nil, fmt.Errorf("%w: measurement %d is %d bytes, expected %d",
				ErrMalformedDocument, i, len(b), MeasurementSize)
		}
		doc.Measurements = append(doc.Measurements, b)
	}

	pub, err := hex.DecodeString(strings.TrimPrefix(w.PublicKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	if _, err := crypto.DecompressPubkey(pub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPublicKey, err)
	}
	doc.PublicKey = pub

	return doc, nil
}

// Verify compares the document's measurements against the approved set.
// Any single-byte difference in any measurement is fatal.
func (d *Document) Verify(approved [][]byte) error {
	if len(approved) != MeasurementCount {
		return fmt.Errorf("%w: approved set has %d measurements, expected %d",
			ErrMeasurementMismatch, len(approved), MeasurementCount)
	}
	for i := range approved {
		if !bytes.Equal(d.Measurements[i], approved[i]) {
			return fmt.Errorf("%w: measurement %d", ErrMeasurementMismatch, i)
		}
	}
	return nil
}
