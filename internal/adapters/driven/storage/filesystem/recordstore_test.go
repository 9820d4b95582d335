package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/core/domain"
)

func newRecordStore(t *testing.T) *RecordStore {
	t.Helper()
	s, err := NewRecordStore(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	return s
}

func TestRecordStore_LayoutAndCAS(t *testing.T) {
	s := newRecordStore(t)
	ctx := context.Background()

	rev1, err := s.CompareAndSwap(ctx, "rule/reset", domain.NoRevision, []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, domain.RevisionOf([]byte("v1")), rev1)

	onDisk, err := os.ReadFile(filepath.Join(s.Dir(), "rule", "reset.md"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(onDisk))

	_, err = s.CompareAndSwap(ctx, "rule/reset", domain.NoRevision, []byte("again"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = s.CompareAndSwap(ctx, "rule/reset", "stale", []byte("again"))
	assert.ErrorIs(t, err, domain.ErrConflict)

	onDisk, err = os.ReadFile(filepath.Join(s.Dir(), "rule", "reset.md"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(onDisk), "refused writes leave the file untouched")

	rev2, err := s.CompareAndSwap(ctx, "rule/reset", rev1, []byte("v2"))
	require.NoError(t, err)
	rec, err := s.Get(ctx, "rule/reset")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(rec.Data))
	assert.Equal(t, rev2, rec.Revision)
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestRecordStore_ExternalEditChangesRevision(t *testing.T) {
	s := newRecordStore(t)
	ctx := context.Background()

	rev, err := s.CompareAndSwap(ctx, "topic/clock_gating", domain.NoRevision, []byte("v1"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "topic", "clock_gating.md"), []byte("hand edit"), 0o644))

	_, err = s.CompareAndSwap(ctx, "topic/clock_gating", rev, []byte("v2"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRecordStore_ListAndDelete(t *testing.T) {
	s := newRecordStore(t)
	ctx := context.Background()
	revs := map[string]string{}
	for _, k := range []string{"rule/b", "rule/a", "rules/x", "drafts/rule/DRAFT_a_20260101_000000", "topic/a"} {
		rev, err := s.CompareAndSwap(ctx, k, domain.NoRevision, []byte(k))
		require.NoError(t, err)
		revs[k] = rev
	}
	// Stray files are not records.
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "rule", "notes.txt"), []byte("x"), 0o644))

	keys, err := s.List(ctx, "rule/")
	require.NoError(t, err)
	assert.Equal(t, []string{"rule/a", "rule/b"}, keys)

	keys, err = s.List(ctx, "drafts/")
	require.NoError(t, err)
	assert.Equal(t, []string{"drafts/rule/DRAFT_a_20260101_000000"}, keys)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5, "lock files are not listed")

	assert.ErrorIs(t, s.Delete(ctx, "rule/a", "stale"), domain.ErrConflict)
	require.NoError(t, s.Delete(ctx, "rule/a", revs["rule/a"]))
	assert.ErrorIs(t, s.Delete(ctx, "rule/a", revs["rule/a"]), domain.ErrNotFound)
	_, err = s.Get(ctx, "rule/a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordStore_RejectsEscapingKeys(t *testing.T) {
	s := newRecordStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "../outside", "/abs", "rule/../../x", "rule//a", ".locks/x", `rule\a`} {
		t.Run(key, func(t *testing.T) {
			_, err := s.CompareAndSwap(ctx, key, domain.NoRevision, []byte("x"))
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, err = s.Get(ctx, key)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRecordStore_ConcurrentCreateOneWins(t *testing.T) {
	s := newRecordStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CompareAndSwap(ctx, "definition/clock_gating", domain.NoRevision, []byte(fmt.Sprintf("writer %d", i)))
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrConflict)
				return
			}
			mu.Lock()
			wins++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
