package mcp

import (
	"net/http"

	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Lookup answers lookup-by-name from curated content.
	Lookup driving.LookupService

	// Search provides non-authoritative keyword search over chunks.
	Search driving.SearchService

	// Assembler builds topic drafts. Optional.
	Assembler driving.TopicAssembler

	// Curation stores drafts and reads curated artifacts. Optional.
	Curation driving.CurationService

	// Metrics is served at /metrics in HTTP mode. Optional.
	Metrics http.Handler
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Lookup == nil {
		return ErrMissingLookupService
	}
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}

// canDraft reports whether draft_topic has what it needs.
func (p *Ports) canDraft() bool {
	return p.Assembler != nil && p.Curation != nil
}
