package domain

import (
	"cmp"
	"slices"
	"strings"
)

// RawSearchOptions configures a keyword filter over chunks.
type RawSearchOptions struct {
	// Limit caps the number of results. Zero means the default.
	Limit int

	// Document restricts results to one source document.
	Document string
}

// RawSearchResult is a chunk matched by keyword filter.
// Raw chunks are never authoritative; only curated artifacts are.
type RawSearchResult struct {
	Chunk Chunk

	// Matches counts query term occurrences in the chunk.
	Matches int

	// Authoritative is always false for raw results.
	Authoritative bool
}

// QueryTerms splits a keyword query into normalized terms.
func QueryTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// CountMatches returns the number of term occurrences in text when every
// term occurs at least once, and zero otherwise. Matching is case-insensitive.
func CountMatches(text string, terms []string) int {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	total := 0
	for _, term := range terms {
		n := strings.Count(lower, term)
		if n == 0 {
			return 0
		}
		total += n
	}
	return total
}

// MatchChunks filters chunks by terms and options. Results are ordered by
// chunk ID and truncated to opts.Limit when positive. Chunks are copied.
func MatchChunks(chunks []Chunk, terms []string, opts RawSearchOptions) []RawSearchResult {
	var out []RawSearchResult
	for i := range chunks {
		if opts.Document != "" && chunks[i].SourceDocument != opts.Document {
			continue
		}
		if n := CountMatches(chunks[i].Text, terms); n > 0 {
			out = append(out, RawSearchResult{Chunk: chunks[i], Matches: n})
		}
	}
	slices.SortFunc(out, func(a, b RawSearchResult) int {
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
