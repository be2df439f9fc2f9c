// internal/output/memory.go
package output

import (
	"context"
	"sync"

	"github.com/valpere/VidSieve/pkg/types"
)

// MemoryStore keeps history and stats in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	history []types.HistoryEntry
	stats   types.StatsDelta
}

// NewMemoryStore creates an empty store keeping at most limit entries
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = types.HistoryLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) AppendHistory(ctx context.Context, entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = types.CapHistory(append(s.history, entry), s.limit)
	return nil
}

func (s *MemoryStore) AddStats(ctx context.Context, delta types.StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Add(delta)
	return nil
}

func (s *MemoryStore) History(ctx context.Context) ([]types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.HistoryEntry(nil), s.history...), nil
}

func (s *MemoryStore) Stats(ctx context.Context) (types.StatsDelta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *MemoryStore) Close() error { return nil }
