package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown extractor, kind or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInputUnreadable indicates a source document could not be extracted.
	// It is fatal for that document only; no partial output is produced.
	ErrInputUnreadable = errors.New("input unreadable")

	// ErrConflict indicates a guarded write lost a race: the stored revision
	// no longer matches the one the caller read.
	ErrConflict = errors.New("revision conflict")

	// ErrOracleUnavailable indicates the draft oracle is not configured.
	// Synthesis is disabled; curation and lookup keep working.
	ErrOracleUnavailable = errors.New("draft oracle unavailable")

	// ErrRateLimited indicates the oracle rate limit could not be satisfied
	// before the deadline.
	ErrRateLimited = errors.New("rate limited")

	// Curation Errors.

	// ErrRefusedOverwrite indicates a write would replace a CURATED entity
	// without the explicit edit override.
	ErrRefusedOverwrite = errors.New("refused to overwrite curated entity")

	// ErrPromotionDenied indicates a promotion failed its gate checks.
	ErrPromotionDenied = errors.New("promotion denied")

	// ErrUnresolvedCitation indicates a citation does not resolve.
	ErrUnresolvedCitation = errors.New("unresolved citation")
)

// UnresolvedCitation describes one citation that failed resolution.
type UnresolvedCitation struct {
	// Citation is the offending citation as written.
	Citation Citation

	// Reason explains why it did not resolve.
	Reason string
}

// String renders the citation and the reason on one line.
func (u UnresolvedCitation) String() string {
	return fmt.Sprintf("%s: %s", u.Citation, u.Reason)
}

// UnresolvedCitationError is a validation error carrying every citation
// that failed to resolve.
type UnresolvedCitationError struct {
	Unresolved []UnresolvedCitation
}

func (e *UnresolvedCitationError) Error() string {
	parts := make([]string, len(e.Unresolved))
	for i, u := range e.Unresolved {
		parts[i] = u.String()
	}
	return fmt.Sprintf("%d unresolved citation(s): %s", len(e.Unresolved), strings.Join(parts, "; "))
}

func (e *UnresolvedCitationError) Unwrap() error {
	return ErrUnresolvedCitation
}

// RefusedOverwriteError names the curated key that blocked a write.
// The store is left unchanged when this is returned.
type RefusedOverwriteError struct {
	Key string
}

func (e *RefusedOverwriteError) Error() string {
	return fmt.Sprintf("refused to overwrite curated entity %q: pass the edit override to change it", e.Key)
}

func (e *RefusedOverwriteError) Unwrap() error {
	return ErrRefusedOverwrite
}

// PromotionDeniedError lists every reason a promotion was rejected.
type PromotionDeniedError struct {
	// DraftKey is the draft that was being promoted.
	DraftKey string

	// Reasons are human-readable gate failures.
	Reasons []string

	// Unresolved holds citation failures, if any.
	Unresolved []UnresolvedCitation
}

func (e *PromotionDeniedError) Error() string {
	reasons := append([]string(nil), e.Reasons...)
	for _, u := range e.Unresolved {
		reasons = append(reasons, "unresolved citation "+u.String())
	}
	return fmt.Sprintf("promotion of %q denied: %s", e.DraftKey, strings.Join(reasons, "; "))
}

// Unwrap exposes ErrPromotionDenied and, when citations failed,
// ErrUnresolvedCitation.
func (e *PromotionDeniedError) Unwrap() []error {
	if len(e.Unresolved) > 0 {
		return []error{ErrPromotionDenied, ErrUnresolvedCitation}
	}
	return []error{ErrPromotionDenied}
}
