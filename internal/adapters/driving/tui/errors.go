package tui

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("tui: search service is required")

	// ErrMissingLookupService is returned when the lookup service is not provided.
	ErrMissingLookupService = errors.New("tui: lookup service is required")

	// ErrMissingCurationService is returned when the curation service is not provided.
	ErrMissingCurationService = errors.New("tui: curation service is required")
)
