package driven

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
)

// RecordStore is the backing store for drafts and curated entities.
// CompareAndSwap is the single guarded write primitive; every mutation
// of an artifact or topic goes through it.
type RecordStore interface {
	// Get returns the record at key. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, key string) (*domain.Record, error)

	// List returns keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// CompareAndSwap writes data at key only if the stored revision equals
	// expected (domain.NoRevision for absent keys). Returns the new revision,
	// or domain.ErrConflict if the revision moved.
	CompareAndSwap(ctx context.Context, key, expected string, data []byte) (string, error)

	// Delete removes key only if its revision equals expected.
	// Returns domain.ErrNotFound if absent, domain.ErrConflict on mismatch.
	Delete(ctx context.Context, key, expected string) error
}

// EntityCodec serializes artifacts and topics to record bytes.
type EntityCodec interface {
	EncodeArtifact(a *domain.Artifact) ([]byte, error)
	DecodeArtifact(data []byte) (*domain.Artifact, error)
	EncodeTopic(t *domain.Topic) ([]byte, error)
	DecodeTopic(data []byte) (*domain.Topic, error)
}
