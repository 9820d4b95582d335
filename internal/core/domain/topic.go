package domain

import "time"

// NotSpecified marks a topic section with no curated support.
const NotSpecified = "NOT_SPECIFIED"

// TopicSection names one section of a topic dossier.
type TopicSection string

// Topic sections in dossier order.
const (
	SectionDefinition     TopicSection = "definition"
	SectionRelatedTerms   TopicSection = "related_terms"
	SectionRules          TopicSection = "rules"
	SectionBehaviorStates TopicSection = "behavior_states"
	SectionLimitations    TopicSection = "limitations"
	SectionProcedures     TopicSection = "procedures"
	SectionEdgeCases      TopicSection = "edge_cases"
	SectionOpenQuestions  TopicSection = "open_questions"
)

// TopicSections lists every section in dossier order.
var TopicSections = []TopicSection{
	SectionDefinition,
	SectionRelatedTerms,
	SectionRules,
	SectionBehaviorStates,
	SectionLimitations,
	SectionProcedures,
	SectionEdgeCases,
	SectionOpenQuestions,
}

// Title returns the dossier heading for the section.
func (s TopicSection) Title() string {
	switch s {
	case SectionDefinition:
		return "Definition"
	case SectionRelatedTerms:
		return "Related Terms"
	case SectionRules:
		return "Rules"
	case SectionBehaviorStates:
		return "Behavior"
	case SectionLimitations:
		return "Limitations"
	case SectionProcedures:
		return "Procedures"
	case SectionEdgeCases:
		return "Edge Cases"
	case SectionOpenQuestions:
		return "Open Questions"
	default:
		return string(s)
	}
}

// Relationships recorded in the related-terms section.
const (
	RelationVariant  = "variant"
	RelationMentions = "mentions"
)

// TopicEntry references one CURATED artifact placed in a topic section.
type TopicEntry struct {
	// ArtifactKey is the curated key of the referenced artifact.
	ArtifactKey string

	// Kind is the referenced artifact's kind.
	Kind ArtifactKind

	// Term is the referenced artifact's term.
	Term string

	// Relationship is set for related-terms entries.
	Relationship string

	// Excerpt is copied from the artifact body. Never generated.
	Excerpt string

	// Citations are copied from the artifact.
	Citations []Citation
}

// SearchLogEntry records what was searched to fill a section.
type SearchLogEntry struct {
	Section TopicSection
	Query   string
	Matches int
}

// Topic is a per-concept dossier. It is keyed by the normalized concept name.
type Topic struct {
	// Key is the store key. Set by the store on read.
	Key string

	// Name is the concept as requested.
	Name string

	// Slug is the normalized concept name.
	Slug string

	// Status is DRAFT or CURATED.
	Status Status

	// Sections maps each section to its entries. Missing or empty
	// sections render as NotSpecified.
	Sections map[TopicSection][]TopicEntry

	// Sources are the deduplicated citations behind every entry.
	Sources []Citation

	// SearchLog records each lookup performed during assembly.
	SearchLog []SearchLogEntry

	// GeneratedBy records how the draft was produced.
	GeneratedBy string

	// ReviewedBy is the reviewer of the latest promotion.
	ReviewedBy string

	// CreatedAt is when the entity was first written.
	CreatedAt time.Time

	// LastUpdated is when the entity was last written.
	LastUpdated time.Time

	// History is the append-only review log.
	History []Revision
}

// Section returns the entries in a section.
func (t *Topic) Section(s TopicSection) []TopicEntry {
	if t.Sections == nil {
		return nil
	}
	return t.Sections[s]
}

// IsSpecified returns true if the section has at least one entry.
func (t *Topic) IsSpecified(s TopicSection) bool {
	return len(t.Section(s)) > 0
}

// Citations returns every citation in the topic: entry citations,
// an artifact citation per entry, and Sources.
func (t *Topic) Citations() []Citation {
	var out []Citation
	for _, s := range TopicSections {
		for _, e := range t.Section(s) {
			if e.ArtifactKey != "" {
				out = append(out, Citation{ArtifactKey: e.ArtifactKey})
			}
			out = append(out, e.Citations...)
		}
	}
	out = append(out, t.Sources...)
	return DedupCitations(out)
}

// IsCurated returns true if the topic is authoritative.
func (t *Topic) IsCurated() bool {
	return t.Status == StatusCurated
}
