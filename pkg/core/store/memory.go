package store

import (
	"context"
	"sync"

	"jse_extractor/pkg/models"
)

// MemoryStore keeps results in a map. Used in tests and for dry runs where
// no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*models.ExtractionResult
}

var _ ResultStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: map[string]*models.ExtractionResult{}}
}

func (s *MemoryStore) Upsert(_ context.Context, result *models.ExtractionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.Identity()] = result
	return nil
}

func (s *MemoryStore) Get(_ context.Context, identity string) (*models.ExtractionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results[identity], nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the number of stored results.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
