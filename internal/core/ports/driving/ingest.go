package driving

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// IngestRequest selects what a batch run processes.
type IngestRequest struct {
	// Documents restricts the run to these document names. Empty means all.
	Documents []string

	// Workers overrides the configured parallelism when positive.
	Workers int
}

// WatchEvent reports how one source change was handled.
type WatchEvent struct {
	Change domain.SourceChange
	// Stats is set when the source was re-ingested.
	Stats *domain.ChunkingStats
	// Err is set when handling failed. Watching continues.
	Err error
}

// IngestService extracts and chunks source documents.
type IngestService interface {
	// Ingest runs a batch. Per-document failures are reported in the
	// summary and never abort the batch.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestSummary, error)

	// IngestFile extracts and chunks a single source.
	IngestFile(ctx context.Context, src domain.SourceFile) (*domain.ChunkingStats, error)

	// Chunk segments an already extracted document and replaces its chunk set.
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)

	// Watch re-ingests changed sources and drops the chunks of removed
	// ones until ctx is done. report is called once per change.
	Watch(ctx context.Context, report func(WatchEvent)) error
}
