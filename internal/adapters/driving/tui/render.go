package tui

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/canon/internal/core/domain"
)

func authorityOf(status domain.Status) messages.Authority {
	if status == domain.StatusCurated {
		return messages.AuthorityCurated
	}
	return messages.AuthorityDraft
}

// keyKind returns the kind segment of a draft or curated key.
func keyKind(key string) string {
	if parts, ok := domain.ParseDraftKey(key); ok {
		return parts.Kind
	}
	kind, _, _ := domain.CuratedKeyParts(key)
	return kind
}

func renderArtifact(a *domain.Artifact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kind:         %s\n", a.Kind)
	fmt.Fprintf(&b, "Term:         %s\n", a.Term)
	if len(a.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:         %s\n", strings.Join(a.Tags, ", "))
	}
	if a.GeneratedBy != "" {
		fmt.Fprintf(&b, "Generated by: %s\n", a.GeneratedBy)
	}
	if a.ReviewedBy != "" {
		fmt.Fprintf(&b, "Reviewed by:  %s\n", a.ReviewedBy)
	}
	b.WriteString("\n" + strings.TrimSpace(a.Body) + "\n")
	if len(a.Citations) > 0 {
		b.WriteString("\nCitations:\n")
		for _, c := range a.Citations {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	if a.Status != domain.StatusCurated {
		fmt.Fprintf(&b, "\nNot authoritative until promoted: canon promote --draft %s --reviewer <name>\n", a.Key)
	}
	return b.String()
}

func chunkTitle(c domain.Chunk) string {
	switch {
	case c.PageStart <= 0:
		return fmt.Sprintf("%s (%s)", c.ID, c.SourceDocument)
	case c.PageStart == c.PageEnd:
		return fmt.Sprintf("%s (%s p.%d)", c.ID, c.SourceDocument, c.PageStart)
	default:
		return fmt.Sprintf("%s (%s pp.%d-%d)", c.ID, c.SourceDocument, c.PageStart, c.PageEnd)
	}
}

func renderChunk(c domain.Chunk) string {
	var b strings.Builder
	if c.Section != "" {
		fmt.Fprintf(&b, "Section: %s\n", c.Section)
	}
	if c.Total > 0 {
		fmt.Fprintf(&b, "Chunk %d of %d\n", c.Index, c.Total)
	}
	b.WriteString("Raw source text. Cite it from a draft; do not treat it as curated.\n\n")
	b.WriteString(c.Text)
	return b.String()
}
