package driving

import "context"

// SynthesisRequest asks the oracle for a draft.
type SynthesisRequest struct {
	// Kind is the artifact kind to draft. Topics are assembled, never synthesized.
	Kind string

	// Subject is the concept or term.
	Subject string

	// Limit caps the number of chunks offered. Zero means the configured default.
	Limit int
}

// SynthesisService turns oracle proposals into drafts.
type SynthesisService interface {
	// Synthesize asks the oracle and stores the result as a DRAFT.
	Synthesize(ctx context.Context, req SynthesisRequest) (*DraftResult, error)
}
