package admission

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uint64]*ScoreRecord
	latest  uint64 // timestamp of the latest record, 0 when empty
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uint64]*ScoreRecord)}
}

func (s *MemoryStore) Insert(_ context.Context, rec *ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.TimestampMS]; exists {
		return ErrDuplicateTimestamp
	}

	cp := *rec
	s.records[rec.TimestampMS] = &cp
	if rec.TimestampMS > s.latest {
		s.latest = rec.TimestampMS
	}
	return nil
}

func (s *MemoryStore) Latest(_ context.Context) (*ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[s.latest]
	if !ok {
		return nil, ErrNoScores
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) History(_ context.Context, walletAddress string, limit int) ([]*ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet := strings.ToLower(walletAddress)
	out := make([]*ScoreRecord, 0)
	for _, rec := range s.records {
		if strings.ToLower(rec.WalletAddress) == wallet {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimestampMS > out[j].TimestampMS })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
