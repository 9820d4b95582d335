package domain

// LookupOutcome is the result class of a lookup by name.
type LookupOutcome string

// Lookup outcomes. NotFound is a value, not an error.
const (
	LookupFound    LookupOutcome = "found"
	LookupNotFound LookupOutcome = "not_found"
)

// TermMatch is a CURATED artifact whose term matches a lookup.
type TermMatch struct {
	Key  string
	Kind ArtifactKind
	Term string
}

// LookupResult is either the CURATED topic or the options available
// when none exists. Lookup never assembles or promotes.
type LookupResult struct {
	// Name is the requested concept.
	Name string

	// Key is the curated topic key that was checked.
	Key string

	// Outcome tells which half of the result is populated.
	Outcome LookupOutcome

	// Topic is set when Outcome is LookupFound.
	Topic *Topic

	// DraftKeys lists pending topic drafts for the concept, newest first.
	DraftKeys []string

	// MatchingTerms lists CURATED artifacts whose term matches.
	MatchingTerms []TermMatch

	// RelatedTopics lists CURATED topic names sharing a word with the request.
	RelatedTopics []string

	// Instruction tells the caller how to create a draft.
	Instruction string
}

// Found returns true if a curated topic was returned.
func (r *LookupResult) Found() bool {
	return r.Outcome == LookupFound
}

// DraftExists returns true if at least one topic draft is pending.
func (r *LookupResult) DraftExists() bool {
	return len(r.DraftKeys) > 0
}
