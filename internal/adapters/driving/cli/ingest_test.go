package cli

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

func TestIngestCmd_Summary(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.summary = &domain.IngestSummary{
		Documents: 2,
		Chunks:    7,
		Forced:    1,
		Stats: []domain.ChunkingStats{
			{Document: "manual", ChunksCreated: 5, MinTokens: 310, MaxTokens: 790, Forced: 1},
			{Document: "notes", ChunksCreated: 2, MinTokens: 120, MaxTokens: 400},
		},
		Duration: 1500 * time.Millisecond,
	}

	out, err := execute(t, "ingest", "--workers", "2")

	require.NoError(t, err)
	assert.Equal(t, 2, env.ingest.lastRequest.Workers)
	assert.Empty(t, env.ingest.lastRequest.Documents)
	assert.Contains(t, out, "manual")
	assert.Contains(t, out, "790")
	assert.Contains(t, out, "Ingested 2 of 2 document(s): 7 chunk(s), 1 forced split(s) in 1.5s")
}

func TestIngestCmd_FailuresAreReported(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.summary = &domain.IngestSummary{
		Documents: 2,
		Chunks:    3,
		Stats:     []domain.ChunkingStats{{Document: "manual", ChunksCreated: 3}},
		Failures:  []domain.DocumentFailure{{Document: "broken", Err: domain.ErrInputUnreadable}},
	}

	out, err := execute(t, "ingest", "manual", "broken")

	require.ErrorContains(t, err, "1 document(s) failed")
	assert.Equal(t, []string{"manual", "broken"}, env.ingest.lastRequest.Documents)
	assert.Contains(t, out, "Ingested 1 of 2 document(s)")
	assert.Contains(t, out, "FAILED broken")
}

func TestIngestCmd_NoDocuments(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "ingest")

	require.NoError(t, err)
	assert.Contains(t, out, "No source documents found.")
}

func TestIngestCmd_ServiceError(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.err = errors.New("sources missing")

	_, err := execute(t, "ingest")

	assert.ErrorContains(t, err, "ingest failed: sources missing")
}

func TestChunkCmd_SingleDocumentOneWorker(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.summary = &domain.IngestSummary{
		Documents: 1,
		Chunks:    4,
		Stats:     []domain.ChunkingStats{{Document: "manual", ChunksCreated: 4}},
	}

	_, err := execute(t, "chunk", "manual")

	require.NoError(t, err)
	assert.Equal(t, driving.IngestRequest{Documents: []string{"manual"}, Workers: 1}, env.ingest.lastRequest)

	_, err = execute(t, "chunk")
	assert.Error(t, err)
}

func TestWatchCmd_ReportsEvents(t *testing.T) {
	env := setupTestServices(t)
	env.ingest.events = []driving.WatchEvent{
		{Change: domain.SourceChange{File: domain.SourceFile{Name: "manual"}}, Stats: &domain.ChunkingStats{ChunksCreated: 3}},
		{Change: domain.SourceChange{File: domain.SourceFile{Name: "old"}, Removed: true}},
		{Change: domain.SourceChange{File: domain.SourceFile{Name: "broken"}}, Err: domain.ErrInputUnreadable},
	}

	out, err := execute(t, "watch")

	require.NoError(t, err)
	assert.Contains(t, out, "ingested manual: 3 chunk(s)")
	assert.Contains(t, out, "removed old")
	assert.Contains(t, out, "FAILED broken")
	assert.Contains(t, out, "Stopped.")
}
