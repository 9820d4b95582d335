// Package textnorm folds concept names and terms for matching and renders
// slugs for display.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Fold returns s in a form suitable for comparison: NFKC normalized,
// case folded, whitespace collapsed to single spaces.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// FoldName folds a concept or term name. Underscores and hyphens count as
// spaces so "clock_gating", "Clock-Gating" and "clock gating" compare equal.
func FoldName(s string) string {
	return Fold(strings.NewReplacer("_", " ", "-", " ").Replace(s))
}

// Contains reports whether folded needle occurs in haystack after folding.
func Contains(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), needle)
}

// Words returns the folded words of a name.
func Words(s string) []string {
	return strings.Fields(FoldName(s))
}

// Display renders a slug as a title: "clock_gating" becomes "Clock Gating".
func Display(slug string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(slug, "_", " "))
}
