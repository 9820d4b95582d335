// Package postprocessors chains the stages that turn extracted documents into chunks.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/logger"
)

// Stage names accepted in [chunking] processors.
const (
	// ChunkerStage segments the document. It must run first.
	ChunkerStage = "chunker"

	// AuditStage re-checks the finished set. When present it must run last.
	AuditStage = "audit"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs the chunker and then every stage that checks its output.
// Build one with FromSettings so the stage order is enforced.
type Pipeline struct {
	stages []driven.PostProcessor
}

// NewPipeline creates a pipeline running stages in the order given.
func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Process produces the chunk set of doc. A stage error rejects the whole
// document: no partial set is returned.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil: %w", domain.ErrInvalidInput)
	}
	if len(p.stages) == 0 {
		return nil, fmt.Errorf("document %s: no chunking stages: %w", doc.Name, domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		chunks, err = stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("document %s: %s stage: %w", doc.Name, stage.Name(), err)
		}
		logger.Debug("%s: %s stage produced %d chunk(s)", doc.Name, stage.Name(), len(chunks))
	}
	return chunks, nil
}
