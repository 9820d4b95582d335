// Package tui provides an interactive terminal browser for canon.
// It is read-only: drafts are shown for review but promotion stays on the CLI.
package tui

import (
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI reads from.
type Ports struct {
	// Search provides non-authoritative keyword search over chunks.
	Search driving.SearchService

	// Lookup lists and reads curated topics.
	Lookup driving.LookupService

	// Curation lists and reads drafts.
	Curation driving.CurationService
}

// Validate ensures all ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Lookup == nil {
		return ErrMissingLookupService
	}
	if p.Curation == nil {
		return ErrMissingCurationService
	}
	return nil
}
