package driving

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// TopicAssembler builds topic dossiers from CURATED artifacts only.
type TopicAssembler interface {
	// Assemble returns a DRAFT topic for the concept. It never writes.
	Assemble(ctx context.Context, concept string) (*domain.Topic, error)
}

// LookupService answers lookup-by-name from curated content only.
type LookupService interface {
	// Lookup returns the CURATED topic or the NotFound options.
	// It never assembles or promotes.
	Lookup(ctx context.Context, name string) (*domain.LookupResult, error)

	// ListTopics returns curated topic names, sorted.
	ListTopics(ctx context.Context) ([]string, error)
}
