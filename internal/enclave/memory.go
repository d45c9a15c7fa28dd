package enclave

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	config  *Config
	capHash [32]byte
	records map[string]*Record // keyed by hex(public key)
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Bootstrap(_ context.Context, measurements [][]byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config != nil {
		return "", ErrAlreadyBootstrapped
	}

	token, hash, err := newCapability()
	if err != nil {
		return "", err
	}

	s.config = &Config{
		Measurements: cloneMeasurements(measurements),
		Version:      1,
		UpdatedAt:    time.Now().UTC(),
	}
	s.capHash = hash
	return token, nil
}

func (s *MemoryStore) Config(_ context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return nil, ErrNotBootstrapped
	}
	cfg := *s.config
	cfg.Measurements = cloneMeasurements(s.config.Measurements)
	return &cfg, nil
}

func (s *MemoryStore) UpdateConfig(_ context.Context, capability string, measurements [][]byte) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config == nil {
		return nil, ErrNotBootstrapped
	}
	presented := capabilityHash(capability)
	if subtle.ConstantTimeCompare(presented[:], s.capHash[:]) != 1 {
		return nil, ErrBadCapability
	}

	s.config.Measurements = cloneMeasurements(measurements)
	s.config.Version++
	s.config.UpdatedAt = time.Now().UTC()

	cfg := *s.config
	cfg.Measurements = cloneMeasurements(s.config.Measurements)
	return &cfg, nil
}

func (s *MemoryStore) CreateRecord(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(rec.PublicKey)
	if _, exists := s.records[key]; exists {
		return ErrRecordExists
	}
	cp := *rec
	cp.PublicKey = append([]byte(nil), rec.PublicKey...)
	s.records[key] = &cp
	return nil
}

func (s *MemoryStore) Record(_ context.Context, publicKey []byte) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[hex.EncodeToString(publicKey)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	cp.PublicKey = append([]byte(nil), rec.PublicKey...)
	return &cp, nil
}
