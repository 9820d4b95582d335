package driven

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// Extractor turns a source file into paginated text.
// Each extractor handles one input layout (PDF file, page directory).
type Extractor interface {
	// Name returns the extractor name for logging.
	Name() string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// CanExtract reports whether the extractor handles the source.
	CanExtract(src domain.SourceFile) bool

	// Extract reads the source. Failures wrap domain.ErrInputUnreadable.
	Extract(ctx context.Context, src domain.SourceFile) (*domain.Document, error)
}

// ExtractorRegistry selects the appropriate extractor for a source.
type ExtractorRegistry interface {
	// Extract runs the highest-priority extractor that accepts the source.
	Extract(ctx context.Context, src domain.SourceFile) (*domain.Document, error)

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// Names returns registered extractor names in priority order.
	Names() []string
}
