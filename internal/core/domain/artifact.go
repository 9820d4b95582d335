package domain

import (
	"slices"
	"time"
)

// ArtifactKind is the type of a curated knowledge statement.
type ArtifactKind string

// Available artifact kinds.
const (
	KindDefinition    ArtifactKind = "definition"
	KindRule          ArtifactKind = "rule"
	KindInvariant     ArtifactKind = "invariant"
	KindProcedure     ArtifactKind = "procedure"
	KindContradiction ArtifactKind = "contradiction"
	KindOpenQuestion  ArtifactKind = "openQuestion"
)

// ArtifactKinds lists every kind in display order.
var ArtifactKinds = []ArtifactKind{
	KindDefinition,
	KindRule,
	KindInvariant,
	KindProcedure,
	KindContradiction,
	KindOpenQuestion,
}

// IsValid returns true if the kind is recognised.
func (k ArtifactKind) IsValid() bool {
	return slices.Contains(ArtifactKinds, k)
}

// RequiresCitation returns true for fact-bearing kinds.
// Open questions record gaps and may be promoted without citations.
func (k ArtifactKind) RequiresCitation() bool {
	return k.IsValid() && k != KindOpenQuestion
}

// String returns the string representation.
func (k ArtifactKind) String() string {
	return string(k)
}

// Status is the curation state of an artifact or topic.
type Status string

// Curation states. Only CURATED content is authoritative.
const (
	StatusDraft   Status = "DRAFT"
	StatusCurated Status = "CURATED"
)

// IsValid returns true if the status is recognised.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusCurated
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// Well-known artifact tags that override the default topic section.
const (
	TagBehavior   = "behavior"
	TagLimitation = "limitation"
	TagEdgeCase   = "edge-case"
)

// Revision is one entry in an entity's append-only review history.
type Revision struct {
	// ID uniquely identifies the history entry.
	ID string

	// Action is "promote" for first curation or "edit" for overrides.
	Action string

	// ReviewedBy is the human reviewer.
	ReviewedBy string

	// DraftKey is the draft consumed by this revision.
	DraftKey string

	// At is when the revision was recorded.
	At time.Time
}

// History actions.
const (
	ActionPromote = "promote"
	ActionEdit    = "edit"
)

// Artifact is a typed knowledge statement.
type Artifact struct {
	// Key is the store key. Set by the store on read.
	Key string

	// Kind is the statement type.
	Kind ArtifactKind

	// Name is the slug the curated key is derived from.
	Name string

	// Title is the human-readable heading.
	Title string

	// Term is the concept this artifact is about. Matching is done on it.
	Term string

	// Tags refine topic placement.
	Tags []string

	// Status is DRAFT or CURATED.
	Status Status

	// Body is the statement text.
	Body string

	// Citations ground the statement in chunks or pages.
	Citations []Citation

	// GeneratedBy records where the draft came from (human, oracle model, chunk).
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

// HasTag returns true if the artifact carries the tag.
func (a *Artifact) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}

// IsCurated returns true if the artifact is authoritative.
func (a *Artifact) IsCurated() bool {
	return a.Status == StatusCurated
}
