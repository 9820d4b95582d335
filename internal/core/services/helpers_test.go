package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

// fixture wires the curation stack over in-memory stores.
type fixture struct {
	chunks   *memory.ChunkStore
	records  *memory.RecordStore
	codec    *frontmatter.Codec
	ledger   *Ledger
	metrics  *recordingMetrics
	curation *CurationService
	clock    *tickClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		chunks:  memory.NewChunkStore(),
		records: memory.NewRecordStore(),
		codec:   frontmatter.New(),
		metrics: &recordingMetrics{},
		clock:   &tickClock{at: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.ledger = NewLedger(f.chunks, f.records, f.codec)
	f.curation = NewCurationService(f.records, f.codec, f.ledger, f.metrics)
	f.curation.now = f.clock.now
	return f
}

// seed stores one chunk per page for document.
func (f *fixture) seed(t *testing.T, document string, pages ...string) []domain.Chunk {
	t.Helper()
	chunks := make([]domain.Chunk, len(pages))
	for i, text := range pages {
		chunks[i] = domain.Chunk{
			ID:             domain.ChunkID(document, i+1),
			SourceDocument: document,
			PageStart:      i + 1,
			PageEnd:        i + 1,
			Text:           text,
			TokenEstimate:  len(text) / 4,
			Index:          i + 1,
			Total:          len(pages),
		}
	}
	stats := domain.StatsFor(document, chunks, f.clock.at)
	require.NoError(t, f.chunks.ReplaceDocument(context.Background(), document, chunks, stats))
	return chunks
}

// curate drafts and promotes an artifact, returning its curated key.
func (f *fixture) curate(t *testing.T, a *domain.Artifact) string {
	t.Helper()
	ctx := context.Background()
	draft, err := f.curation.SaveDraft(ctx, a)
	require.NoError(t, err)
	res, err := f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: "alice"})
	require.NoError(t, err)
	return res.Key
}

// snapshot returns every stored record keyed by key.
func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	ctx := context.Background()
	keys, err := f.records.List(ctx, "")
	require.NoError(t, err)
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		rec, err := f.records.Get(ctx, k)
		require.NoError(t, err)
		out[k] = string(rec.Data)
	}
	return out
}

func chunkCitation(document string, index, page int) domain.Citation {
	return domain.Citation{ChunkID: domain.ChunkID(document, index), Document: document, PageStart: page, PageEnd: page}
}

// tickClock advances one second per reading so draft keys never collide.
type tickClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *tickClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.at = c.at.Add(time.Second)
	return c.at
}

type recordingMetrics struct {
	mu         sync.Mutex
	ingested   []string
	promotions []string
	oracle     []string
	lookups    []string
}

func (m *recordingMetrics) DocumentIngested(outcome string, _, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, outcome)
}

func (m *recordingMetrics) PromotionAttempted(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promotions = append(m.promotions, outcome)
}

func (m *recordingMetrics) OracleCalled(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oracle = append(m.oracle, outcome)
}

func (m *recordingMetrics) LookupServed(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, outcome)
}
