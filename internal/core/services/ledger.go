package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

// Ensure Ledger implements the interface.
var _ driving.CitationLedger = (*Ledger)(nil)

// Ledger resolves citations against the chunk store and curated records.
// It only reads.
type Ledger struct {
	chunks  driven.ChunkStore
	records driven.RecordStore
	codec   driven.EntityCodec
}

// NewLedger creates a citation ledger.
func NewLedger(chunks driven.ChunkStore, records driven.RecordStore, codec driven.EntityCodec) *Ledger {
	return &Ledger{chunks: chunks, records: records, codec: codec}
}

// Resolve returns the chunk citation for a chunk id or a document page.
// Page refs resolve to the lowest-index chunk covering the page.
func (l *Ledger) Resolve(ctx context.Context, ref domain.CitationRef) (domain.Citation, error) {
	if ref.ChunkID != "" {
		c, err := l.chunks.GetChunk(ctx, ref.ChunkID)
		if err != nil {
			return domain.Citation{}, err
		}
		return domain.CitationFor(c), nil
	}
	if ref.Document == "" || ref.Page <= 0 {
		return domain.Citation{}, fmt.Errorf("citation reference needs a chunk id or document and page: %w", domain.ErrInvalidInput)
	}
	chunks, err := l.chunks.GetChunks(ctx, ref.Document)
	if err != nil {
		return domain.Citation{}, err
	}
	for i := range chunks {
		if chunks[i].CoversPage(ref.Page) {
			return domain.CitationFor(&chunks[i]), nil
		}
	}
	return domain.Citation{}, fmt.Errorf("%s page %d: %w", ref.Document, ref.Page, domain.ErrNotFound)
}

// Validate returns every citation that does not resolve.
func (l *Ledger) Validate(ctx context.Context, citations []domain.Citation) ([]domain.UnresolvedCitation, error) {
	return l.validate(ctx, citations, true)
}

// ValidateArtifact checks an artifact's citations.
func (l *Ledger) ValidateArtifact(ctx context.Context, artifact *domain.Artifact) ([]domain.UnresolvedCitation, error) {
	return l.validate(ctx, artifact.Citations, false)
}

// ValidateTopic checks every citation in a topic.
func (l *Ledger) ValidateTopic(ctx context.Context, topic *domain.Topic) ([]domain.UnresolvedCitation, error) {
	return l.validate(ctx, topic.Citations(), true)
}

// Quote returns up to n bytes of the cited chunk's text, whitespace collapsed.
func (l *Ledger) Quote(ctx context.Context, citation domain.Citation, n int) (string, error) {
	var chunk *domain.Chunk
	switch {
	case citation.IsChunkRef():
		c, err := l.chunks.GetChunk(ctx, citation.ChunkID)
		if err != nil {
			return "", err
		}
		chunk = c
	case citation.IsPageRef():
		resolved, err := l.Resolve(ctx, domain.CitationRef{Document: citation.Document, Page: citation.PageStart})
		if err != nil {
			return "", err
		}
		c, err := l.chunks.GetChunk(ctx, resolved.ChunkID)
		if err != nil {
			return "", err
		}
		chunk = c
	default:
		return "", fmt.Errorf("%s has no chunk text: %w", citation, domain.ErrInvalidInput)
	}
	return Excerpt(chunk.Text, n), nil
}

// Excerpt collapses whitespace and truncates text to at most n bytes on a
// rune boundary. Non-positive n returns the whole collapsed text.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func (l *Ledger) validate(
	ctx context.Context, citations []domain.Citation, allowArtifacts bool,
) ([]domain.UnresolvedCitation, error) {
	var out []domain.UnresolvedCitation
	docs := make(map[string][]domain.Chunk)

	for _, c := range citations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		reason, err := l.check(ctx, c, allowArtifacts, docs)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			out = append(out, domain.UnresolvedCitation{Citation: c, Reason: reason})
		}
	}
	return out, nil
}

// check returns a non-empty reason when c does not resolve. Store failures
// other than not-found are returned as errors.
func (l *Ledger) check(
	ctx context.Context, c domain.Citation, allowArtifacts bool, docs map[string][]domain.Chunk,
) (string, error) {
	switch {
	case c.IsChunkRef():
		chunk, err := l.chunks.GetChunk(ctx, c.ChunkID)
		if errors.Is(err, domain.ErrNotFound) {
			return "chunk does not exist", nil
		}
		if err != nil {
			return "", err
		}
		if c.Document != "" && c.Document != chunk.SourceDocument {
			return fmt.Sprintf("chunk belongs to %s, not %s", chunk.SourceDocument, c.Document), nil
		}
		if c.PageStart > 0 {
			start, end := c.Span()
			if start < chunk.PageStart || end > chunk.PageEnd {
				return fmt.Sprintf("chunk covers pages %d-%d", chunk.PageStart, chunk.PageEnd), nil
			}
		}
		return "", nil

	case c.IsArtifactRef():
		if !allowArtifacts {
			return "artifact references are only valid in topics", nil
		}
		return l.checkArtifact(ctx, c.ArtifactKey)

	case c.IsPageRef():
		chunks, ok := docs[c.Document]
		if !ok {
			var err error
			chunks, err = l.chunks.GetChunks(ctx, c.Document)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return "", err
			}
			docs[c.Document] = chunks
		}
		if len(chunks) == 0 {
			return "document has no chunks", nil
		}
		start, end := c.Span()
		for page := start; page <= end; page++ {
			if !covered(chunks, page) {
				return fmt.Sprintf("page %d is not covered by any chunk", page), nil
			}
		}
		return "", nil

	default:
		return "citation is empty", nil
	}
}

func (l *Ledger) checkArtifact(ctx context.Context, key string) (string, error) {
	kind, _, ok := domain.CuratedKeyParts(key)
	if !ok {
		return "not a curated artifact key", nil
	}
	if kind == domain.KindTopic {
		return "topics cannot be cited", nil
	}
	rec, err := l.records.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return "artifact does not exist", nil
	}
	if err != nil {
		return "", err
	}
	a, err := l.codec.DecodeArtifact(rec.Data)
	if err != nil {
		return "artifact record is unreadable", nil
	}
	if !a.IsCurated() {
		return "artifact is not curated", nil
	}
	return "", nil
}

func covered(chunks []domain.Chunk, page int) bool {
	for i := range chunks {
		if chunks[i].CoversPage(page) {
			return true
		}
	}
	return false
}
