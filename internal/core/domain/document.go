package domain

import (
	"fmt"
	"strings"
	"time"
)

// PageSeparator joins the trimmed text of consecutive non-empty pages.
const PageSeparator = "\n\n"

// Page is the extracted text of a single source page.
type Page struct {
	// Number is the 1-based page number in the source.
	Number int

	// Text is the page text as produced by the extractor.
	Text string
}

// Document is paginated text produced by an extractor.
// It is the input to chunking and is never persisted on its own.
type Document struct {
	// Name identifies the source document (file stem).
	Name string

	// ProjectName is the collection the document belongs to. Optional.
	ProjectName string

	// RelativePath is the source path relative to the sources root. Optional.
	RelativePath string

	// URI is the original location on disk.
	URI string

	// Pages holds the extracted pages in order.
	Pages []Page

	// ExtractedAt is when extraction ran.
	ExtractedAt time.Time
}

// Text returns the document's extracted text: every page trimmed of
// surrounding whitespace, empty pages dropped, pages joined by PageSeparator.
// Chunk texts are exact slices of this string.
func (d *Document) Text() string {
	var b strings.Builder
	for _, p := range d.Pages {
		t := strings.TrimSpace(p.Text)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(PageSeparator)
		}
		b.WriteString(t)
	}
	return b.String()
}

// Chunk is a bounded, citable unit of a document's extracted text.
// Chunks are owned by their document and replaced as a whole set.
type Chunk struct {
	// ID is "<document>_chunk_<NNNN>".
	ID string

	// SourceDocument is the Document.Name this chunk came from.
	SourceDocument string

	// ProjectName is copied from the document. Optional.
	ProjectName string

	// RelativePath is copied from the document. Optional.
	RelativePath string

	// Section is the heading in effect where the chunk starts. Optional.
	Section string

	// PageStart and PageEnd are the inclusive page span.
	PageStart int
	PageEnd   int

	// Text is an exact slice of the document text, never transformed.
	Text string

	// TokenEstimate is the word-based token estimate of Text.
	TokenEstimate int

	// Index is the 1-based position of the chunk in its document.
	Index int

	// Total is the number of chunks in the document's set.
	Total int

	// CreatedAt is when the chunk set was produced.
	CreatedAt time.Time

	// BoundaryForced is set when no heading or sentence boundary fit
	// the token range and the chunk was cut at a word boundary.
	BoundaryForced bool

	// CarryLen is the byte length of a sentence repeated from the previous
	// chunk at the start of Text. Zero when carry is disabled.
	CarryLen int
}

// OwnText returns the part of Text that is not carried from the previous chunk.
func (c *Chunk) OwnText() string {
	if c.CarryLen <= 0 || c.CarryLen > len(c.Text) {
		return c.Text
	}
	return c.Text[c.CarryLen:]
}

// CoversPage reports whether page lies within the chunk's page span.
func (c *Chunk) CoversPage(page int) bool {
	return page >= c.PageStart && page <= c.PageEnd
}

// ChunkID builds the chunk identifier for a document and 1-based index.
func ChunkID(document string, index int) string {
	return fmt.Sprintf("%s_chunk_%04d", document, index)
}

// ChunkingStats summarises one document's chunk set.
type ChunkingStats struct {
	Document      string
	ChunksCreated int
	MinTokens     int
	MaxTokens     int
	Forced        int
	CreatedAt     time.Time
}

// StatsFor computes ChunkingStats over a chunk set.
func StatsFor(document string, chunks []Chunk, at time.Time) ChunkingStats {
	stats := ChunkingStats{Document: document, ChunksCreated: len(chunks), CreatedAt: at}
	for i := range chunks {
		est := chunks[i].TokenEstimate
		if i == 0 || est < stats.MinTokens {
			stats.MinTokens = est
		}
		if est > stats.MaxTokens {
			stats.MaxTokens = est
		}
		if chunks[i].BoundaryForced {
			stats.Forced++
		}
	}
	return stats
}
