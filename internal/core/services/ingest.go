package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService extracts sources and replaces their chunk sets.
type IngestService struct {
	sources    driven.SourceConnector
	extractors driven.ExtractorRegistry
	pipeline   driven.PostProcessorPipeline
	chunks     driven.ChunkStore
	metrics    driven.MetricsRecorder
	workers    int
	now        func() time.Time
}

// NewIngestService creates an ingest service. metrics may be nil.
func NewIngestService(
	sources driven.SourceConnector,
	extractors driven.ExtractorRegistry,
	pipeline driven.PostProcessorPipeline,
	chunks driven.ChunkStore,
	metrics driven.MetricsRecorder,
	workers int,
) *IngestService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if workers < 1 {
		workers = 1
	}
	return &IngestService{
		sources:    sources,
		extractors: extractors,
		pipeline:   pipeline,
		chunks:     chunks,
		metrics:    metrics,
		workers:    workers,
		now:        time.Now,
	}
}

// docResult is one worker outcome, stored by source index so the summary
// keeps source order regardless of scheduling.
type docResult struct {
	name  string
	stats *domain.ChunkingStats
	err   error
}

// Ingest runs a batch over every matching source. A failing document is
// recorded in the summary; the others still complete.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestSummary, error) {
	start := s.now()
	if s.sources == nil {
		return nil, fmt.Errorf("no source connector configured: %w", domain.ErrNotImplemented)
	}
	files, err := s.sources.List(ctx)
	if err != nil {
		return nil, err
	}

	summary := &domain.IngestSummary{}
	if len(req.Documents) > 0 {
		var selected []domain.SourceFile
		for _, name := range req.Documents {
			idx := slices.IndexFunc(files, func(f domain.SourceFile) bool { return f.Name == name })
			if idx < 0 {
				summary.Failures = append(summary.Failures, domain.DocumentFailure{
					Document: name,
					Err:      fmt.Errorf("no source named %q: %w", name, domain.ErrNotFound),
				})
				continue
			}
			selected = append(selected, files[idx])
		}
		files = selected
	}

	workers := s.workers
	if req.Workers > 0 {
		workers = req.Workers
	}
	workers = max(1, min(workers, len(files)))

	logger.Section("Ingest")
	logger.Info("%d source(s), %d worker(s)", len(files), workers)

	results := make([]docResult, len(files))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = docResult{name: files[i].Name, err: err}
					continue
				}
				stats, err := s.IngestFile(ctx, files[i])
				results[i] = docResult{name: files[i].Name, stats: stats, err: err}
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary.Documents = len(files) + len(summary.Failures)
	for _, r := range results {
		if r.err != nil {
			summary.Failures = append(summary.Failures, domain.DocumentFailure{Document: r.name, Err: r.err})
			continue
		}
		summary.Stats = append(summary.Stats, *r.stats)
		summary.Chunks += r.stats.ChunksCreated
		summary.Forced += r.stats.Forced
	}
	summary.Duration = s.now().Sub(start)

	logger.Info("ingested %d/%d document(s), %d chunk(s), %d forced boundary(ies)",
		summary.Succeeded(), summary.Documents, summary.Chunks, summary.Forced)
	return summary, ctx.Err()
}

// IngestFile extracts and chunks one source. Extraction failures leave the
// document's existing chunk set untouched.
func (s *IngestService) IngestFile(ctx context.Context, src domain.SourceFile) (*domain.ChunkingStats, error) {
	start := s.now()
	doc, err := s.extractors.Extract(ctx, src)
	if err != nil {
		s.metrics.DocumentIngested("failed", 0, 0, s.now().Sub(start))
		logger.Warn("extract %s: %v", src.Name, err)
		return nil, fmt.Errorf("extract %s: %w", src.Name, err)
	}

	chunks, err := s.Chunk(ctx, doc)
	if err != nil {
		s.metrics.DocumentIngested("failed", 0, 0, s.now().Sub(start))
		return nil, err
	}

	stats := domain.StatsFor(doc.Name, chunks, s.now().UTC())
	s.metrics.DocumentIngested("ok", stats.ChunksCreated, stats.Forced, s.now().Sub(start))
	logger.Debug("%s: %d chunk(s), tokens %d-%d", doc.Name, stats.ChunksCreated, stats.MinTokens, stats.MaxTokens)
	return &stats, nil
}

// Chunk runs the post-processing pipeline and replaces the document's
// chunk set as a whole.
func (s *IngestService) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil || doc.Name == "" {
		return nil, fmt.Errorf("document needs a name: %w", domain.ErrInvalidInput)
	}
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Name, err)
	}

	now := s.now().UTC()
	for i := range chunks {
		chunks[i].CreatedAt = now
	}
	stats := domain.StatsFor(doc.Name, chunks, now)
	if err := s.chunks.ReplaceDocument(ctx, doc.Name, chunks, stats); err != nil {
		return nil, fmt.Errorf("store chunks of %s: %w", doc.Name, err)
	}
	return chunks, nil
}

// Watch follows source changes until ctx is done. A removed source loses
// its chunk set; any other change re-ingests the source.
func (s *IngestService) Watch(ctx context.Context, report func(driving.WatchEvent)) error {
	if s.sources == nil {
		return fmt.Errorf("no source connector configured: %w", domain.ErrNotImplemented)
	}
	changes, err := s.sources.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch sources: %w", err)
	}
	logger.Info("watching %s", s.sources.Root())

	for change := range changes {
		event := driving.WatchEvent{Change: change}
		if change.Removed {
			event.Err = s.chunks.DeleteDocument(ctx, change.File.Name)
		} else {
			event.Stats, event.Err = s.IngestFile(ctx, change.File)
		}
		if report != nil {
			report(event)
		}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
