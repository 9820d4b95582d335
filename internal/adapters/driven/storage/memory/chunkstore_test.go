package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/core/domain"
)

func chunkSet(doc string, texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		out[i] = domain.Chunk{
			ID:             domain.ChunkID(doc, i+1),
			SourceDocument: doc,
			Text:           text,
			PageStart:      i + 1,
			PageEnd:        i + 1,
			Index:          i + 1,
			Total:          len(texts),
		}
	}
	return out
}

func TestChunkStore_ReplaceAndGet(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	chunks := chunkSet("manual", "Clock gating saves power.", "Reset is synchronous.")
	stats := domain.StatsFor("manual", chunks, time.Now())

	require.NoError(t, store.ReplaceDocument(ctx, "manual", chunks, stats))

	got, err := store.GetChunks(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, chunks, got)

	c, err := store.GetChunk(ctx, "manual_chunk_0002")
	require.NoError(t, err)
	assert.Equal(t, "Reset is synchronous.", c.Text)

	gotStats, err := store.GetStats(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, 2, gotStats.ChunksCreated)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestChunkStore_ReplaceIsWholeSet(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.ReplaceDocument(ctx, "manual", chunkSet("manual", "a", "b", "c"), domain.ChunkingStats{}))
	require.NoError(t, store.ReplaceDocument(ctx, "manual", chunkSet("manual", "only"), domain.ChunkingStats{}))

	got, err := store.GetChunks(ctx, "manual")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = store.GetChunk(ctx, "manual_chunk_0003")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStore_NotFound(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	_, err := store.GetChunks(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetStats(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, "missing_chunk_0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStore_ListDeleteClear(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	require.NoError(t, store.ReplaceDocument(ctx, "zeta", chunkSet("zeta", "z"), domain.ChunkingStats{}))
	require.NoError(t, store.ReplaceDocument(ctx, "alpha", chunkSet("alpha", "a"), domain.ChunkingStats{}))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, docs)

	require.NoError(t, store.DeleteDocument(ctx, "zeta"))
	docs, _ = store.ListDocuments(ctx)
	assert.Equal(t, []string{"alpha"}, docs)

	require.NoError(t, store.Clear(ctx))
	n, _ := store.Count(ctx)
	assert.Zero(t, n)
}

func TestChunkStore_Search(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()
	require.NoError(t, store.ReplaceDocument(ctx, "b", chunkSet("b", "Clock gate and clock tree."), domain.ChunkingStats{}))
	require.NoError(t, store.ReplaceDocument(ctx, "a", chunkSet("a", "The CLOCK gate.", "Only reset here."), domain.ChunkingStats{}))

	results, err := store.Search(ctx, domain.QueryTerms("clock gate"), domain.RawSearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a_chunk_0001", results[0].Chunk.ID)
	assert.Equal(t, 2, results[0].Matches)
	assert.Equal(t, 3, results[1].Matches)
	assert.False(t, results[0].Authoritative)

	results, err = store.Search(ctx, []string{"clock"}, domain.RawSearchOptions{Document: "b"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Chunk.SourceDocument)

	results, err = store.Search(ctx, []string{"clock"}, domain.RawSearchOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
