package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// defaultSearchLimit caps raw results when the caller gives no limit.
const defaultSearchLimit = 20

// SearchService filters raw chunks by keyword. It never ranks and its
// results are never authoritative.
type SearchService struct {
	chunks driven.ChunkStore
}

// NewSearchService creates a new search service.
func NewSearchService(chunks driven.ChunkStore) *SearchService {
	return &SearchService{chunks: chunks}
}

// SearchRaw returns chunks containing every query term, ordered by chunk ID.
func (s *SearchService) SearchRaw(
	ctx context.Context, query string, opts domain.RawSearchOptions,
) ([]domain.RawSearchResult, error) {
	terms := domain.QueryTerms(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("search query is empty: %w", domain.ErrInvalidInput)
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultSearchLimit
	}

	logger.Debug("raw search terms=%v document=%q limit=%d", terms, opts.Document, opts.Limit)
	results, err := s.chunks.Search(ctx, terms, opts)
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Authoritative = false
	}
	return results, nil
}
