package domain

import "fmt"

// Citation is a provenance pointer attached to every derived statement.
// Exactly one form is expected per citation:
//
//   - chunk form: ChunkID set (Document and the page span, when given, must agree)
//   - page form: Document and PageStart set, PageEnd defaults to PageStart
//   - artifact form: ArtifactKey set to a CURATED artifact (topics only)
type Citation struct {
	ChunkID     string
	Document    string
	Section     string
	PageStart   int
	PageEnd     int
	ArtifactKey string
}

// IsArtifactRef reports whether the citation points at a curated artifact.
func (c Citation) IsArtifactRef() bool {
	return c.ArtifactKey != "" && c.ChunkID == ""
}

// IsChunkRef reports whether the citation names a chunk.
func (c Citation) IsChunkRef() bool {
	return c.ChunkID != ""
}

// IsPageRef reports whether the citation is a bare document/page reference.
func (c Citation) IsPageRef() bool {
	return c.ChunkID == "" && c.ArtifactKey == "" && c.Document != "" && c.PageStart > 0
}

// IsEmpty reports whether no reference form is populated.
func (c Citation) IsEmpty() bool {
	return !c.IsChunkRef() && !c.IsArtifactRef() && !c.IsPageRef()
}

// Span returns the page span, defaulting PageEnd to PageStart.
func (c Citation) Span() (int, int) {
	end := c.PageEnd
	if end < c.PageStart {
		end = c.PageStart
	}
	return c.PageStart, end
}

// String renders the citation in the form used by drafts and dossiers.
func (c Citation) String() string {
	switch {
	case c.IsChunkRef():
		if c.Document != "" && c.PageStart > 0 {
			start, end := c.Span()
			if start == end {
				return fmt.Sprintf("chunk:%s (%s p.%d)", c.ChunkID, c.Document, start)
			}
			return fmt.Sprintf("chunk:%s (%s pp.%d-%d)", c.ChunkID, c.Document, start, end)
		}
		return "chunk:" + c.ChunkID
	case c.IsArtifactRef():
		return "artifact:" + c.ArtifactKey
	case c.IsPageRef():
		start, end := c.Span()
		if start == end {
			return fmt.Sprintf("%s p.%d", c.Document, start)
		}
		return fmt.Sprintf("%s pp.%d-%d", c.Document, start, end)
	default:
		return "(empty citation)"
	}
}

// CitationFor builds a chunk-form citation carrying the chunk's provenance.
func CitationFor(c *Chunk) Citation {
	return Citation{
		ChunkID:   c.ID,
		Document:  c.SourceDocument,
		Section:   c.Section,
		PageStart: c.PageStart,
		PageEnd:   c.PageEnd,
	}
}

// CitationRef addresses a chunk by id, or a document by page.
type CitationRef struct {
	ChunkID  string
	Document string
	Page     int
}

// DedupCitations removes repeated citations, keeping first occurrences in order.
func DedupCitations(in []Citation) []Citation {
	seen := make(map[string]bool, len(in))
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		k := c.dedupKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

func (c Citation) dedupKey() string {
	switch {
	case c.IsChunkRef():
		return "c|" + c.ChunkID
	case c.IsArtifactRef():
		return "a|" + c.ArtifactKey
	default:
		start, end := c.Span()
		return fmt.Sprintf("p|%s|%d|%d", c.Document, start, end)
	}
}
