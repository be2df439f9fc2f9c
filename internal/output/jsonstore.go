// internal/output/jsonstore.go
package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/valpere/VidSieve/pkg/types"
)

// jsonDocument is the on-disk layout of a JSONStore
type jsonDocument struct {
	Stats   types.StatsDelta     `json:"stats"`
	History []types.HistoryEntry `json:"history"`
}

// JSONStore persists history and stats in a single JSON file. Every write
// rewrites the file through a temp file and rename.
type JSONStore struct {
	mu    sync.Mutex
	path  string
	limit int
	doc   jsonDocument
}

// NewJSONStore opens or creates the file at path
func NewJSONStore(path string, limit int) (*JSONStore, error) {
	if path == "" {
		return nil, fmt.Errorf("JSON store path is required")
	}
	if limit <= 0 {
		limit = types.HistoryLimit
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	s := &JSONStore{path: path, limit: limit}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read store file: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
		}
		s.doc.History = types.CapHistory(s.doc.History, limit)
	}
	return s, nil
}

func (s *JSONStore) AppendHistory(ctx context.Context, entry types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.History = types.CapHistory(append(s.doc.History, entry), s.limit)
	return s.save()
}

func (s *JSONStore) AddStats(ctx context.Context, delta types.StatsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Stats.Add(delta)
	return s.save()
}

func (s *JSONStore) History(ctx context.Context) ([]types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.HistoryEntry(nil), s.doc.History...), nil
}

func (s *JSONStore) Stats(ctx context.Context) (types.StatsDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Stats, nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}
