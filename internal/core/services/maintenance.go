package services

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/logger"
)

// Ensure MaintenanceService implements the interface.
var _ driving.MaintenanceService = (*MaintenanceService)(nil)

// MaintenanceService reports on the knowledge base and removes regenerable
// state. Curated entities are never removed.
type MaintenanceService struct {
	chunks   driven.ChunkStore
	records  driven.RecordStore
	curated  curatedReader
	curation driving.CurationService
	ledger   driving.CitationLedger
}

// NewMaintenanceService creates a maintenance service.
func NewMaintenanceService(
	chunks driven.ChunkStore,
	records driven.RecordStore,
	codec driven.EntityCodec,
	curation driving.CurationService,
	ledger driving.CitationLedger,
) *MaintenanceService {
	return &MaintenanceService{
		chunks:   chunks,
		records:  records,
		curated:  curatedReader{records: records, codec: codec},
		curation: curation,
		ledger:   ledger,
	}
}

// Status counts documents, chunks, drafts and curated entities.
func (s *MaintenanceService) Status(ctx context.Context) (*domain.StoreStatus, error) {
	docs, err := s.chunks.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.chunks.Count(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := s.records.List(ctx, "")
	if err != nil {
		return nil, err
	}

	status := &domain.StoreStatus{
		Documents: len(docs),
		Chunks:    n,
		Drafts:    make(map[string]int),
		Curated:   make(map[string]int),
	}
	for _, key := range keys {
		if parts, ok := domain.ParseDraftKey(key); ok {
			status.Drafts[parts.Kind]++
			continue
		}
		if kind, _, ok := domain.CuratedKeyParts(key); ok {
			status.Curated[kind]++
		}
	}
	return status, nil
}

// Clean removes every chunk set and, when asked, every draft.
func (s *MaintenanceService) Clean(ctx context.Context, req driving.CleanRequest) (*driving.CleanResult, error) {
	docs, err := s.chunks.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.chunks.Clear(ctx); err != nil {
		return nil, err
	}
	result := &driving.CleanResult{Documents: len(docs)}

	if req.Drafts {
		n, err := s.curation.CleanDrafts(ctx)
		result.Drafts = n
		if err != nil {
			return result, err
		}
	}
	logger.Info("cleaned %d document(s), %d draft(s)", result.Documents, result.Drafts)
	return result, nil
}

// Validate re-checks the citations of every curated artifact and topic.
func (s *MaintenanceService) Validate(ctx context.Context) (*driving.ValidationReport, error) {
	report := &driving.ValidationReport{Broken: make(map[string][]domain.UnresolvedCitation)}

	artifacts, err := s.curated.artifacts(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		unresolved, err := s.ledger.ValidateArtifact(ctx, a)
		if err != nil {
			return nil, err
		}
		report.Checked++
		if len(unresolved) > 0 {
			report.Broken[a.Key] = unresolved
		}
	}

	topics, err := s.curated.topics(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range topics {
		unresolved, err := s.ledger.ValidateTopic(ctx, t)
		if err != nil {
			return nil, err
		}
		report.Checked++
		if len(unresolved) > 0 {
			report.Broken[t.Key] = unresolved
		}
	}

	if len(report.Broken) > 0 {
		logger.Warn("%d of %d curated entities have unresolved citations", len(report.Broken), report.Checked)
	}
	return report, nil
}
