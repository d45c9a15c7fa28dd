package scoring

import (
	"crypto/sha256"
	"encoding/binary"
	"strings"
)

// Seed derives a deterministic pseudo-random seed from a wallet identifier:
// lowercase, strip any 0x prefix, sha256, first 4 bytes as a big-endian
// uint32. The same identifier always maps to the same seed regardless of
// case or prefix; distinct identifiers map to statistically independent
// seeds.
func Seed(walletAddress string) uint32 {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(walletAddress)), "0x")
	sum := sha256.Sum256([]byte(normalized))
	return binary.BigEndian.Uint32(sum[:4])
}
