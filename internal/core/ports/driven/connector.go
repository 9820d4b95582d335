package driven

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// SourceConnector discovers source files under a root.
type SourceConnector interface {
	// Root returns the sources root directory.
	Root() string

	// Validate checks that the root exists and is readable.
	Validate(ctx context.Context) error

	// List returns every source matching the include patterns, sorted by path.
	List(ctx context.Context) ([]domain.SourceFile, error)

	// Watch emits debounced changes to matching sources until ctx is done.
	Watch(ctx context.Context) (<-chan domain.SourceChange, error)

	// Close releases resources.
	Close() error
}
