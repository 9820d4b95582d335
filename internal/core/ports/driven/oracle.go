package driven

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// DraftOracle proposes draft text from cited source chunks.
// Its output is never authoritative: callers only ever store it as DRAFT.
//
// Implementations include:
//   - Anthropic (Claude)
//   - Ollama (local models)
type DraftOracle interface {
	// ProposeDraft returns candidate text for the proposal.
	ProposeDraft(ctx context.Context, proposal ProposalContext) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ProposalContext is everything the oracle sees for one proposal.
type ProposalContext struct {
	// Kind is the artifact kind being drafted, or "topic".
	Kind string

	// Subject is the concept or term being drafted.
	Subject string

	// System is the system prompt.
	System string

	// Prompt is the rendered user prompt including chunk excerpts.
	Prompt string

	// Chunks are the source chunks offered to the oracle.
	Chunks []domain.Chunk

	// MaxTokens bounds the response length.
	MaxTokens int
}
