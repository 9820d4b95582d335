// Package audit provides a post-processor that re-checks chunk sets.
package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/logger"
)

// Processor verifies coverage, ordering and the token range of a chunk set
// produced earlier in the pipeline. It never modifies chunks.
type Processor struct {
	minTokens int
	maxTokens int
}

// New creates an audit processor for the given token range.
func New(minTokens, maxTokens int) *Processor {
	return &Processor{minTokens: minTokens, maxTokens: maxTokens}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "audit"
}

// Process checks the chunks and passes them through unchanged.
// Forced boundaries are logged, not rejected.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	var own strings.Builder
	for i := range chunks {
		c := &chunks[i]
		if c.Index != i+1 || c.ID != domain.ChunkID(doc.Name, i+1) {
			return nil, fmt.Errorf("chunk %d has id %q index %d: %w", i+1, c.ID, c.Index, domain.ErrInvalidInput)
		}
		if c.Total != len(chunks) {
			return nil, fmt.Errorf("chunk %s total %d, want %d: %w", c.ID, c.Total, len(chunks), domain.ErrInvalidInput)
		}
		if c.TokenEstimate > p.maxTokens {
			return nil, fmt.Errorf("chunk %s estimate %d above %d: %w", c.ID, c.TokenEstimate, p.maxTokens, domain.ErrInvalidInput)
		}
		if i < len(chunks)-1 && c.TokenEstimate < p.minTokens {
			return nil, fmt.Errorf("chunk %s estimate %d below %d: %w", c.ID, c.TokenEstimate, p.minTokens, domain.ErrInvalidInput)
		}
		if c.BoundaryForced {
			logger.Warn("forced boundary in %s (pages %d-%d, %d tokens)", c.ID, c.PageStart, c.PageEnd, c.TokenEstimate)
		}
		own.WriteString(c.OwnText())
	}

	if len(chunks) > 0 && own.String() != doc.Text() {
		return nil, fmt.Errorf("chunks of %s do not reproduce the extracted text: %w", doc.Name, domain.ErrInvalidInput)
	}

	return chunks, nil
}
