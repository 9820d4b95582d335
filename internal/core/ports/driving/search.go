package driving

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// SearchService provides keyword search over raw chunks.
// Results are never authoritative.
type SearchService interface {
	// SearchRaw returns chunks containing every query term.
	SearchRaw(ctx context.Context, query string, opts domain.RawSearchOptions) ([]domain.RawSearchResult, error)
}
