package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string][]domain.Chunk
	stats  map[string]domain.ChunkingStats
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[string][]domain.Chunk),
		stats:  make(map[string]domain.ChunkingStats),
	}
}

// ReplaceDocument swaps in a document's chunk set under the write lock.
func (s *ChunkStore) ReplaceDocument(
	_ context.Context, document string, chunks []domain.Chunk, stats domain.ChunkingStats,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[document] = slices.Clone(chunks)
	s.stats[document] = stats
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, chunks := range s.chunks {
		for i := range chunks {
			if chunks[i].ID == id {
				c := chunks[i]
				return &c, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// GetChunks retrieves all chunks for a document in index order.
func (s *ChunkStore) GetChunks(_ context.Context, document string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[document]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(chunks), nil
}

// GetStats returns the stats stored with a document's chunk set.
func (s *ChunkStore) GetStats(_ context.Context, document string) (*domain.ChunkingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.stats[document]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &stats, nil
}

// ListDocuments returns every document with a chunk set, sorted.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.chunks))
	for name := range s.chunks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// DeleteDocument removes a document's chunk set.
func (s *ChunkStore) DeleteDocument(_ context.Context, document string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, document)
	delete(s.stats, document)
	return nil
}

// Search filters every chunk by the query terms.
func (s *ChunkStore) Search(
	_ context.Context, terms []string, opts domain.RawSearchOptions,
) ([]domain.RawSearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Chunk
	for _, chunks := range s.chunks {
		all = append(all, chunks...)
	}
	return domain.MatchChunks(all, terms, opts), nil
}

// Count returns the total number of chunks.
func (s *ChunkStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, chunks := range s.chunks {
		n += len(chunks)
	}
	return n, nil
}

// Clear removes every chunk set.
func (s *ChunkStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string][]domain.Chunk)
	s.stats = make(map[string]domain.ChunkingStats)
	return nil
}
