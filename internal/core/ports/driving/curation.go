package driving

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// PromoteRequest asks for a draft to become CURATED.
type PromoteRequest struct {
	// DraftKey is the draft to promote.
	DraftKey string

	// Destination is the curated key. Derived from the draft when empty.
	Destination string

	// ReviewedBy is the human reviewer. Required.
	ReviewedBy string

	// AllowEdit permits replacing an existing CURATED entity.
	AllowEdit bool
}

// PromoteResult describes a completed promotion.
type PromoteResult struct {
	Key      string
	Revision string
	Edited   bool
}

// DraftResult describes a saved draft.
type DraftResult struct {
	Key string

	// Replaced lists older drafts of the same entity that were removed.
	Replaced []string

	// Unresolved lists citations that will block promotion until fixed.
	Unresolved []domain.UnresolvedCitation
}

// CurationService is the sole writer of artifacts and topics.
type CurationService interface {
	// SaveDraft stores an artifact as DRAFT.
	SaveDraft(ctx context.Context, artifact *domain.Artifact) (*DraftResult, error)

	// SaveTopicDraft stores a topic as DRAFT.
	SaveTopicDraft(ctx context.Context, topic *domain.Topic) (*DraftResult, error)

	// Promote moves a draft to CURATED after gate checks.
	Promote(ctx context.Context, req PromoteRequest) (*PromoteResult, error)

	// Checkout copies a CURATED entity into a new draft for editing.
	Checkout(ctx context.Context, curatedKey string) (*DraftResult, error)

	// Get returns an artifact by key (draft or curated).
	Get(ctx context.Context, key string) (*domain.Artifact, error)

	// GetTopic returns a topic by key (draft or curated).
	GetTopic(ctx context.Context, key string) (*domain.Topic, error)

	// ListCurated returns curated keys for a kind. Empty kind lists all.
	ListCurated(ctx context.Context, kind string) ([]string, error)

	// ListDrafts returns draft keys for a kind. Empty kind lists all.
	ListDrafts(ctx context.Context, kind string) ([]string, error)

	// History returns the review log of a curated entity.
	History(ctx context.Context, key string) ([]domain.Revision, error)

	// DeleteDraft removes a draft. Curated keys are refused.
	DeleteDraft(ctx context.Context, key string) error

	// CleanDrafts removes every draft and returns how many were removed.
	CleanDrafts(ctx context.Context) (int, error)
}
