package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	now     func() time.Time
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]domain.Record),
		now:     time.Now,
	}
}

// Get retrieves a record by key.
func (s *RecordStore) Get(_ context.Context, key string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.Data = slices.Clone(rec.Data)
	return &rec, nil
}

// List returns keys starting with prefix, sorted.
func (s *RecordStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for key := range s.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// CompareAndSwap writes data if the stored revision equals expected.
func (s *RecordStore) CompareAndSwap(_ context.Context, key, expected string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current := s.records[key].Revision; current != expected {
		return "", fmt.Errorf("%s: %w", key, domain.ErrConflict)
	}
	rev := domain.RevisionOf(data)
	s.records[key] = domain.Record{
		Key:       key,
		Data:      slices.Clone(data),
		Revision:  rev,
		UpdatedAt: s.now(),
	}
	return rev, nil
}

// Delete removes key if its revision equals expected.
func (s *RecordStore) Delete(_ context.Context, key, expected string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	if rec.Revision != expected {
		return fmt.Errorf("%s: %w", key, domain.ErrConflict)
	}
	delete(s.records, key)
	return nil
}
