package driving

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// CitationLedger resolves and validates provenance pointers.
type CitationLedger interface {
	// Resolve returns the chunk citation for a chunk id or document/page.
	// Returns domain.ErrNotFound when nothing covers the reference.
	Resolve(ctx context.Context, ref domain.CitationRef) (domain.Citation, error)

	// Validate returns every citation that does not resolve. Empty means valid.
	Validate(ctx context.Context, citations []domain.Citation) ([]domain.UnresolvedCitation, error)

	// ValidateArtifact checks an artifact's citations. Artifact references
	// are rejected: only topics may cite other artifacts.
	ValidateArtifact(ctx context.Context, artifact *domain.Artifact) ([]domain.UnresolvedCitation, error)

	// ValidateTopic checks every citation in a topic, including the
	// artifact reference behind each entry.
	ValidateTopic(ctx context.Context, topic *domain.Topic) ([]domain.UnresolvedCitation, error)

	// Quote returns up to n bytes of the cited chunk's text.
	Quote(ctx context.Context, citation domain.Citation, n int) (string, error)
}
