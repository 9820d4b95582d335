package domain

import "time"

// SourceFile is a discovered input awaiting extraction.
type SourceFile struct {
	// Path is the absolute location.
	Path string

	// Name is the document name derived from the file stem.
	Name string

	// RelativePath is Path relative to the sources root.
	RelativePath string

	// ProjectName is the first directory under the sources root, if nested.
	ProjectName string
}

// DocumentFailure records why one document in a batch failed.
type DocumentFailure struct {
	Document string
	Err      error
}

// IngestSummary reports the outcome of a batch run. A failure in one
// document never aborts the others.
type IngestSummary struct {
	Documents int
	Chunks    int
	Forced    int
	Stats     []ChunkingStats
	Failures  []DocumentFailure
	Duration  time.Duration
}

// Succeeded returns the number of documents processed without error.
func (s *IngestSummary) Succeeded() int {
	return s.Documents - len(s.Failures)
}

// StoreStatus summarises what a knowledge base holds.
type StoreStatus struct {
	Documents int
	Chunks    int
	Drafts    map[string]int
	Curated   map[string]int
}

// SourceChange is a debounced filesystem change to a source.
type SourceChange struct {
	File    SourceFile
	Removed bool
}
