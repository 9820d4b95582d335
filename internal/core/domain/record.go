package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Record is a stored entity in its serialized form.
type Record struct {
	// Key addresses the record, e.g. "rule/clock_gating".
	Key string

	// Data is the encoded entity.
	Data []byte

	// Revision identifies the stored bytes. Guarded writes compare it.
	Revision string

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time
}

// NoRevision is the expected revision for a key that must not exist yet.
const NoRevision = ""

// RevisionOf returns the revision of encoded data.
func RevisionOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
