package frontmatter

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// dossierOrder is the rendered order: Sources follows Related Terms.
var dossierOrder = []domain.TopicSection{
	domain.SectionDefinition,
	domain.SectionRelatedTerms,
	"",
	domain.SectionRules,
	domain.SectionBehaviorStates,
	domain.SectionLimitations,
	domain.SectionProcedures,
	domain.SectionEdgeCases,
	domain.SectionOpenQuestions,
}

// RenderDossier renders a topic as a markdown dossier. Empty sections
// render as domain.NotSpecified.
func RenderDossier(t *domain.Topic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", t.Name)

	for _, section := range dossierOrder {
		if section == "" {
			writeSources(&b, t.Sources)
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", section.Title())
		entries := t.Section(section)
		if len(entries) == 0 {
			b.WriteString(domain.NotSpecified + "\n")
			continue
		}
		for _, e := range entries {
			writeEntry(&b, section, e)
		}
	}

	b.WriteString("\n## Verification Status\n\n")
	fmt.Fprintf(&b, "- Status: %s\n", t.Status)
	if t.ReviewedBy != "" {
		fmt.Fprintf(&b, "- Reviewed by: %s\n", t.ReviewedBy)
	}
	if !t.IsCurated() {
		b.WriteString("- Not authoritative until promoted by a human reviewer.\n")
	}

	b.WriteString("\n## Metadata\n\n")
	if t.GeneratedBy != "" {
		fmt.Fprintf(&b, "- Generated by: %s\n", t.GeneratedBy)
	}
	if !t.LastUpdated.IsZero() {
		fmt.Fprintf(&b, "- Last updated: %s\n", t.LastUpdated.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	for _, s := range t.SearchLog {
		fmt.Fprintf(&b, "- Searched %s for %q: %d match(es)\n", s.Section, s.Query, s.Matches)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeEntry(b *strings.Builder, section domain.TopicSection, e domain.TopicEntry) {
	if section == domain.SectionRelatedTerms {
		fmt.Fprintf(b, "- %s (%s) [artifact:%s]\n", e.Term, e.Relationship, e.ArtifactKey)
		return
	}
	excerpt := strings.Join(strings.Fields(e.Excerpt), " ")
	fmt.Fprintf(b, "- %s [artifact:%s]\n", excerpt, e.ArtifactKey)
	for _, c := range e.Citations {
		fmt.Fprintf(b, "  - %s\n", c)
	}
}

func writeSources(b *strings.Builder, sources []domain.Citation) {
	b.WriteString("\n## Sources\n\n")
	if len(sources) == 0 {
		b.WriteString(domain.NotSpecified + "\n")
		return
	}
	for _, c := range sources {
		fmt.Fprintf(b, "- %s\n", c)
	}
}
