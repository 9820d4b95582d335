package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
	"github.com/custodia-labs/canon/internal/logger"
	"github.com/custodia-labs/canon/internal/textnorm"
)

// Ensure Assembler implements the interface.
var _ driving.TopicAssembler = (*Assembler)(nil)

const (
	// excerptBytes bounds the body excerpt copied into a topic entry.
	excerptBytes = 500

	// maxRelatedTerms bounds the related-terms section.
	maxRelatedTerms = 10
)

// Assembler builds topic dossiers from CURATED artifacts. It performs no
// inference: every entry is a copied reference to an existing artifact.
type Assembler struct {
	curated curatedReader
	ledger  driving.CitationLedger
	now     func() time.Time
}

// NewAssembler creates a topic assembler.
func NewAssembler(records driven.RecordStore, codec driven.EntityCodec, ledger driving.CitationLedger) *Assembler {
	return &Assembler{
		curated: curatedReader{records: records, codec: codec},
		ledger:  ledger,
		now:     time.Now,
	}
}

// Assemble returns a DRAFT topic for concept. Nothing is written.
func (a *Assembler) Assemble(ctx context.Context, concept string) (*domain.Topic, error) {
	name := strings.TrimSpace(concept)
	query := textnorm.FoldName(name)
	if query == "" || domain.Slug(name) == "" {
		return nil, fmt.Errorf("concept name is empty: %w", domain.ErrInvalidInput)
	}

	logger.Section("Assemble " + name)
	artifacts, err := a.curated.artifacts(ctx)
	if err != nil {
		return nil, err
	}

	sections := make(map[domain.TopicSection][]domain.TopicEntry)
	for _, art := range artifacts {
		m := matchArtifact(art, query)
		if !m.any() {
			continue
		}
		unresolved, err := a.ledger.ValidateArtifact(ctx, art)
		if err != nil {
			return nil, err
		}
		if len(unresolved) > 0 {
			logger.Warn("skipping %s: %d citation(s) no longer resolve", art.Key, len(unresolved))
			continue
		}

		section, rel := placeArtifact(art, m)
		entry := domain.TopicEntry{
			ArtifactKey:  art.Key,
			Kind:         art.Kind,
			Term:         firstNonEmpty(art.Term, art.Title, art.Name),
			Relationship: rel,
			Excerpt:      Excerpt(art.Body, excerptBytes),
			Citations:    slices.Clone(art.Citations),
		}
		sections[section] = append(sections[section], entry)
		logger.Debug("placed %s in %s", art.Key, section)
	}

	now := a.now().UTC()
	topic := &domain.Topic{
		Name:        name,
		Slug:        domain.Slug(name),
		Status:      domain.StatusDraft,
		Sections:    make(map[domain.TopicSection][]domain.TopicEntry),
		GeneratedBy: "assembler",
		CreatedAt:   now,
		LastUpdated: now,
	}

	var sources []domain.Citation
	for _, section := range domain.TopicSections {
		entries := sections[section]
		slices.SortStableFunc(entries, func(x, y domain.TopicEntry) int {
			return cmp.Compare(x.ArtifactKey, y.ArtifactKey)
		})
		if section == domain.SectionRelatedTerms && len(entries) > maxRelatedTerms {
			entries = entries[:maxRelatedTerms]
		}
		topic.SearchLog = append(topic.SearchLog, domain.SearchLogEntry{
			Section: section,
			Query:   query,
			Matches: len(entries),
		})
		if len(entries) == 0 {
			continue
		}
		topic.Sections[section] = entries
		for _, e := range entries {
			sources = append(sources, e.Citations...)
		}
	}
	topic.Sources = domain.DedupCitations(sources)

	logger.Info("assembled %q: %d source(s)", name, len(topic.Sources))
	return topic, nil
}

// termMatch records how an artifact relates to a concept.
type termMatch struct {
	exact    bool
	variant  bool
	mentions bool
}

func (m termMatch) any() bool {
	return m.exact || m.variant || m.mentions
}

func matchArtifact(a *domain.Artifact, query string) termMatch {
	term := textnorm.FoldName(firstNonEmpty(a.Term, a.Title, a.Name))
	var m termMatch
	switch {
	case term == query:
		m.exact = true
	case strings.Contains(term, query):
		m.variant = true
	}
	if !m.exact && !m.variant {
		m.mentions = textnorm.Contains(a.Body, query)
	}
	return m
}

// placeArtifact maps an artifact onto a topic section. Tags override the
// kind mapping; the relationship is set only for related terms.
func placeArtifact(a *domain.Artifact, m termMatch) (domain.TopicSection, string) {
	switch {
	case a.HasTag(domain.TagBehavior):
		return domain.SectionBehaviorStates, ""
	case a.HasTag(domain.TagLimitation):
		return domain.SectionLimitations, ""
	case a.HasTag(domain.TagEdgeCase):
		return domain.SectionEdgeCases, ""
	}

	switch a.Kind {
	case domain.KindDefinition:
		switch {
		case m.exact:
			return domain.SectionDefinition, ""
		case m.variant:
			return domain.SectionRelatedTerms, domain.RelationVariant
		default:
			return domain.SectionRelatedTerms, domain.RelationMentions
		}
	case domain.KindRule:
		return domain.SectionRules, ""
	case domain.KindInvariant:
		return domain.SectionLimitations, ""
	case domain.KindProcedure:
		return domain.SectionProcedures, ""
	case domain.KindContradiction:
		return domain.SectionEdgeCases, ""
	default:
		return domain.SectionOpenQuestions, ""
	}
}
