// Package mcp provides an MCP (Model Context Protocol) server adapter for canon.
// It lets AI assistants read curated topics and raw chunks. Automated
// clients can create drafts but never promote them.
package mcp

import "errors"

var (
	// ErrMissingLookupService is returned when the lookup service is not provided.
	ErrMissingLookupService = errors.New("mcp: lookup service is required")

	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrDraftingDisabled is returned by draft_topic when no assembler or
	// curation service is wired.
	ErrDraftingDisabled = errors.New("mcp: topic drafting is not configured")
)
