package driving

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// CleanRequest selects what Clean removes. Curated entities are never removed.
type CleanRequest struct {
	// Drafts also removes every draft.
	Drafts bool
}

// CleanResult reports what was removed.
type CleanResult struct {
	Documents int
	Drafts    int
}

// ValidationReport lists curated entities whose citations no longer resolve.
type ValidationReport struct {
	Checked int
	Broken  map[string][]domain.UnresolvedCitation
}

// MaintenanceService reports on and cleans regenerable state.
type MaintenanceService interface {
	// Status summarises the knowledge base.
	Status(ctx context.Context) (*domain.StoreStatus, error)

	// Clean removes chunks and optionally drafts.
	Clean(ctx context.Context, req CleanRequest) (*CleanResult, error)

	// Validate re-checks every curated entity's citations.
	Validate(ctx context.Context) (*ValidationReport, error)
}
