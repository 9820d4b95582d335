package domain

import (
	"strings"
	"time"
	"unicode"
)

// Store key layout.
//
// Curated entities live at "<kind>/<slug>"; topics use KindTopic as kind.
// Drafts always live under DraftsPrefix and carry DraftMarker plus a
// timestamp, so a draft key can never collide with a curated key.
const (
	DraftsPrefix    = "drafts/"
	DraftMarker     = "DRAFT_"
	KindTopic       = "topic"
	DraftTimeLayout = "20060102_150405"
)

// Slug normalizes a concept or artifact name into a key segment:
// lower case, runs of whitespace, '/' and '_' collapse to a single '_',
// characters other than letters, digits and '-' are dropped.
func Slug(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '/' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// NormalizeTerm folds a term for matching: case-folded, whitespace collapsed.
func NormalizeTerm(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), " ")
}

// CuratedKey returns the curated key for a kind and slug.
func CuratedKey(kind, slug string) string {
	return kind + "/" + slug
}

// TopicKey returns the curated key of the topic for a concept name.
func TopicKey(name string) string {
	return CuratedKey(KindTopic, Slug(name))
}

// DraftKey returns the draft key for a kind, slug and creation time.
func DraftKey(kind, slug string, at time.Time) string {
	return DraftsPrefix + kind + "/" + DraftMarker + slug + "_" + at.UTC().Format(DraftTimeLayout)
}

// DraftPrefix returns the key prefix shared by every draft of kind and slug.
func DraftPrefix(kind, slug string) string {
	return DraftsPrefix + kind + "/" + DraftMarker + slug + "_"
}

// IsDraftKey reports whether key names a draft.
func IsDraftKey(key string) bool {
	return strings.HasPrefix(key, DraftsPrefix)
}

// DraftKeyParts is the decoded form of a draft key.
type DraftKeyParts struct {
	Kind string
	Slug string
	At   time.Time
}

// ParseDraftKey decodes a draft key. The timestamp is taken from the
// end so slugs may contain underscores.
func ParseDraftKey(key string) (DraftKeyParts, bool) {
	if !IsDraftKey(key) {
		return DraftKeyParts{}, false
	}
	rest := strings.TrimPrefix(key, DraftsPrefix)
	kind, name, ok := strings.Cut(rest, "/")
	if !ok || !strings.HasPrefix(name, DraftMarker) {
		return DraftKeyParts{}, false
	}
	name = strings.TrimPrefix(name, DraftMarker)
	// slug + "_" + YYYYmmdd_HHMMSS
	if len(name) < len(DraftTimeLayout)+2 {
		return DraftKeyParts{}, false
	}
	stamp := name[len(name)-len(DraftTimeLayout):]
	at, err := time.Parse(DraftTimeLayout, stamp)
	if err != nil {
		return DraftKeyParts{}, false
	}
	slug := strings.TrimSuffix(name[:len(name)-len(DraftTimeLayout)], "_")
	if slug == "" {
		return DraftKeyParts{}, false
	}
	return DraftKeyParts{Kind: kind, Slug: slug, At: at}, true
}

// CuratedKeyParts splits a curated key into kind and slug.
func CuratedKeyParts(key string) (kind, slug string, ok bool) {
	if IsDraftKey(key) {
		return "", "", false
	}
	kind, slug, ok = strings.Cut(key, "/")
	if !ok || kind == "" || slug == "" || strings.Contains(slug, "/") {
		return "", "", false
	}
	return kind, slug, true
}
