package driven

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// ChunkStore persists chunk sets. A document's chunks are owned by its
// extraction and are only ever replaced as a whole set.
type ChunkStore interface {
	// ReplaceDocument atomically replaces every chunk of a document.
	// Readers observe either the old set or the new set, never a mix.
	ReplaceDocument(ctx context.Context, document string, chunks []domain.Chunk, stats domain.ChunkingStats) error

	// GetChunk retrieves a chunk by ID. Returns domain.ErrNotFound if absent.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks returns a document's chunks in index order.
	// Returns domain.ErrNotFound if the document has no chunk set.
	GetChunks(ctx context.Context, document string) ([]domain.Chunk, error)

	// GetStats returns the chunking stats recorded with the document's set.
	GetStats(ctx context.Context, document string) (*domain.ChunkingStats, error)

	// ListDocuments returns document names with a chunk set, sorted.
	ListDocuments(ctx context.Context) ([]string, error)

	// DeleteDocument removes a document's chunk set.
	DeleteDocument(ctx context.Context, document string) error

	// Search returns chunks containing every term, ordered by chunk ID.
	Search(ctx context.Context, terms []string, opts domain.RawSearchOptions) ([]domain.RawSearchResult, error)

	// Count returns the total number of chunks.
	Count(ctx context.Context) (int, error)

	// Clear removes every chunk set. Chunks are regenerable.
	Clear(ctx context.Context) error
}
