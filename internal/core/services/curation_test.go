package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

func clockGating(citations ...domain.Citation) *domain.Artifact {
	return &domain.Artifact{
		Kind:      domain.KindDefinition,
		Term:      "Clock Gating",
		Body:      "Clock gating stops the clock to idle logic.",
		Citations: citations,
	}
}

func TestCurationService_SaveDraft(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()

	res, err := f.curation.SaveDraft(ctx, clockGating(chunkCitation("manual", 1, 1), domain.Citation{ChunkID: "manual_chunk_0007"}))
	require.NoError(t, err)
	assert.Equal(t, "drafts/definition/DRAFT_clock_gating_20260301_090001", res.Key)
	assert.Empty(t, res.Replaced)
	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, "manual_chunk_0007", res.Unresolved[0].Citation.ChunkID)

	a, err := f.curation.Get(ctx, res.Key)
	require.NoError(t, err)
	assert.Equal(t, res.Key, a.Key)
	assert.Equal(t, "clock_gating", a.Name)
	assert.Equal(t, domain.StatusDraft, a.Status)
	assert.Equal(t, "Clock gating stops the clock to idle logic.", a.Body)
}

func TestCurationService_SaveDraft_ReplacesOlderDrafts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clock := func() *domain.Artifact { return &domain.Artifact{Kind: domain.KindDefinition, Term: "clock"} }

	first, err := f.curation.SaveDraft(ctx, clock())
	require.NoError(t, err)
	// "DRAFT_clock_" also prefixes this draft's key.
	other, err := f.curation.SaveDraft(ctx, &domain.Artifact{Kind: domain.KindDefinition, Term: "clock domain"})
	require.NoError(t, err)
	second, err := f.curation.SaveDraft(ctx, clock())
	require.NoError(t, err)

	assert.Equal(t, []string{first.Key}, second.Replaced)
	drafts, err := f.curation.ListDrafts(ctx, string(domain.KindDefinition))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{other.Key, second.Key}, drafts)
}

func TestCurationService_SaveDraft_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.curation.SaveDraft(ctx, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.curation.SaveDraft(ctx, &domain.Artifact{Kind: "essay", Term: "x"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)

	_, err = f.curation.SaveDraft(ctx, &domain.Artifact{Kind: domain.KindRule, Term: "  ?! "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, f.snapshot(t))
}

func TestCurationService_Promote(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()

	draft, err := f.curation.SaveDraft(ctx, clockGating(chunkCitation("manual", 1, 1)))
	require.NoError(t, err)

	res, err := f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: " alice "})
	require.NoError(t, err)
	assert.Equal(t, "definition/clock_gating", res.Key)
	assert.False(t, res.Edited)
	assert.Len(t, res.Revision, 64)

	a, err := f.curation.Get(ctx, res.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCurated, a.Status)
	assert.Equal(t, "alice", a.ReviewedBy)
	require.Len(t, a.History, 1)
	assert.Equal(t, domain.ActionPromote, a.History[0].Action)
	assert.Equal(t, draft.Key, a.History[0].DraftKey)
	assert.NotEmpty(t, a.History[0].ID)

	_, err = f.curation.Get(ctx, draft.Key)
	assert.ErrorIs(t, err, domain.ErrNotFound, "draft is consumed")
	assert.Equal(t, []string{"promoted"}, f.metrics.promotions)
}

func TestCurationService_Promote_OpenQuestionNeedsNoCitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.curation.SaveDraft(ctx, &domain.Artifact{
		Kind: domain.KindOpenQuestion, Term: "retention gating", Body: "Is retention required?",
	})
	require.NoError(t, err)

	res, err := f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "openQuestion/retention_gating", res.Key)
}

func TestCurationService_Promote_Denied(t *testing.T) {
	tests := []struct {
		name       string
		artifact   *domain.Artifact
		reviewer   string
		reasons    int
		unresolved int
	}{
		{"no reviewer", clockGating(chunkCitation("manual", 1, 1)), "", 1, 0},
		{"no citations", clockGating(), "alice", 1, 0},
		{"unresolved citation", clockGating(domain.Citation{ChunkID: "manual_chunk_0009"}), "alice", 0, 1},
		{"everything wrong", clockGating(), "  ", 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, "manual", "Clock gating stops the clock.")
			ctx := context.Background()

			draft, err := f.curation.SaveDraft(ctx, tt.artifact)
			require.NoError(t, err)
			before := f.snapshot(t)

			_, err = f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: tt.reviewer})
			require.ErrorIs(t, err, domain.ErrPromotionDenied)

			var denied *domain.PromotionDeniedError
			require.ErrorAs(t, err, &denied)
			assert.Len(t, denied.Reasons, tt.reasons)
			assert.Len(t, denied.Unresolved, tt.unresolved)
			assert.Equal(t, tt.unresolved > 0, errors.Is(err, domain.ErrUnresolvedCitation))

			assert.Equal(t, before, f.snapshot(t), "denied promotion must not touch the store")
			assert.Equal(t, []string{"denied"}, f.metrics.promotions)
		})
	}
}

func TestCurationService_Promote_RefusesOverwrite(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()
	key := f.curate(t, clockGating(chunkCitation("manual", 1, 1)))

	draft, err := f.curation.SaveDraft(ctx, &domain.Artifact{
		Kind: domain.KindDefinition, Term: "clock gating", Body: "Rewritten.",
		Citations: []domain.Citation{chunkCitation("manual", 1, 1)},
	})
	require.NoError(t, err)
	before := f.snapshot(t)

	_, err = f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: "bob"})
	require.ErrorIs(t, err, domain.ErrRefusedOverwrite)
	var refused *domain.RefusedOverwriteError
	require.ErrorAs(t, err, &refused)
	assert.Equal(t, key, refused.Key)

	assert.Equal(t, before, f.snapshot(t), "store must be byte-identical after a refusal")
	assert.Equal(t, []string{"promoted", "refused"}, f.metrics.promotions)
}

func TestCurationService_Promote_Edit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()
	key := f.curate(t, clockGating(chunkCitation("manual", 1, 1)))
	original, err := f.curation.Get(ctx, key)
	require.NoError(t, err)

	draft, err := f.curation.Checkout(ctx, key)
	require.NoError(t, err)
	checkedOut, err := f.curation.Get(ctx, draft.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, checkedOut.Status)
	assert.Equal(t, "checkout:"+key, checkedOut.GeneratedBy)
	assert.Empty(t, checkedOut.History)

	res, err := f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: "bob", AllowEdit: true})
	require.NoError(t, err)
	assert.True(t, res.Edited)

	history, err := f.curation.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ActionPromote, history[0].Action)
	assert.Equal(t, domain.ActionEdit, history[1].Action)
	assert.Equal(t, "bob", history[1].ReviewedBy)

	edited, err := f.curation.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, original.CreatedAt.Equal(edited.CreatedAt))
	assert.True(t, edited.LastUpdated.After(original.LastUpdated))
	assert.Equal(t, []string{"promoted", "edited"}, f.metrics.promotions)
}

// racingStore writes the destination between the curation service's read
// and its guarded write.
type racingStore struct {
	*memory.RecordStore
	target string
	once   sync.Once
}

func (s *racingStore) CompareAndSwap(ctx context.Context, key, expected string, data []byte) (string, error) {
	if key == s.target {
		s.once.Do(func() {
			_, _ = s.RecordStore.CompareAndSwap(ctx, key, domain.NoRevision, []byte("someone else"))
		})
	}
	return s.RecordStore.CompareAndSwap(ctx, key, expected, data)
}

func TestCurationService_Promote_Conflict(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()

	store := &racingStore{RecordStore: f.records, target: "definition/clock_gating"}
	curation := NewCurationService(store, f.codec, f.ledger, f.metrics)
	curation.now = f.clock.now

	draft, err := curation.SaveDraft(ctx, clockGating(chunkCitation("manual", 1, 1)))
	require.NoError(t, err)

	_, err = curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: "alice"})
	require.ErrorIs(t, err, domain.ErrConflict)

	rec, err := f.records.Get(ctx, "definition/clock_gating")
	require.NoError(t, err)
	assert.Equal(t, "someone else", string(rec.Data), "the concurrent write wins")
	_, err = f.records.Get(ctx, draft.Key)
	assert.NoError(t, err, "draft survives a lost race")
	assert.Equal(t, []string{"conflict"}, f.metrics.promotions)
}

func TestCurationService_Promote_BadRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft, err := f.curation.SaveDraft(ctx, clockGating())
	require.NoError(t, err)

	_, err = f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: "definition/clock_gating", ReviewedBy: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, Destination: "rule/clock_gating", ReviewedBy: "a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.curation.Promote(ctx, driving.PromoteRequest{
		DraftKey: "drafts/definition/DRAFT_absent_20260101_000000", ReviewedBy: "a",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCurationService_Promote_CustomDestination(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()

	draft, err := f.curation.SaveDraft(ctx, clockGating(chunkCitation("manual", 1, 1)))
	require.NoError(t, err)
	res, err := f.curation.Promote(ctx, driving.PromoteRequest{
		DraftKey: draft.Key, Destination: "definition/cg", ReviewedBy: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "definition/cg", res.Key)
}

func TestCurationService_Topics(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()
	key := f.curate(t, clockGating(chunkCitation("manual", 1, 1)))

	empty, err := f.curation.SaveTopicDraft(ctx, &domain.Topic{Name: "Clock Gating"})
	require.NoError(t, err)
	_, err = f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: empty.Key, ReviewedBy: "alice"})
	var denied *domain.PromotionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Contains(t, denied.Reasons, "a topic needs at least one curated entry or source")

	draft, err := f.curation.SaveTopicDraft(ctx, &domain.Topic{
		Name: "Clock Gating",
		Sections: map[domain.TopicSection][]domain.TopicEntry{
			domain.SectionDefinition: {{
				ArtifactKey: key,
				Kind:        domain.KindDefinition,
				Term:        "Clock Gating",
				Citations:   []domain.Citation{chunkCitation("manual", 1, 1)},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{empty.Key}, draft.Replaced)
	assert.Empty(t, draft.Unresolved)

	res, err := f.curation.Promote(ctx, driving.PromoteRequest{DraftKey: draft.Key, ReviewedBy: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "topic/clock_gating", res.Key)

	topic, err := f.curation.GetTopic(ctx, res.Key)
	require.NoError(t, err)
	assert.True(t, topic.IsCurated())
	assert.Equal(t, "Clock Gating", topic.Name)

	_, err = f.curation.Get(ctx, res.Key)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	_, err = f.curation.GetTopic(ctx, key)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestCurationService_ListHistoryDelete(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "manual", "Clock gating stops the clock.")
	ctx := context.Background()
	key := f.curate(t, clockGating(chunkCitation("manual", 1, 1)))
	d1, err := f.curation.SaveDraft(ctx, &domain.Artifact{Kind: domain.KindRule, Term: "reset"})
	require.NoError(t, err)
	d2, err := f.curation.SaveTopicDraft(ctx, &domain.Topic{Name: "reset"})
	require.NoError(t, err)

	curated, err := f.curation.ListCurated(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{key}, curated)

	drafts, err := f.curation.ListDrafts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{d1.Key, d2.Key}, drafts)

	_, err = f.curation.History(ctx, d1.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.curation.History(ctx, "rule/absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, f.curation.DeleteDraft(ctx, key), domain.ErrRefusedOverwrite)
	assert.ErrorIs(t, f.curation.DeleteDraft(ctx, "garbage"), domain.ErrInvalidInput)
	require.NoError(t, f.curation.DeleteDraft(ctx, d1.Key))
	assert.ErrorIs(t, f.curation.DeleteDraft(ctx, d1.Key), domain.ErrNotFound)

	n, err := f.curation.CleanDrafts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	curated, err = f.curation.ListCurated(ctx, string(domain.KindDefinition))
	require.NoError(t, err)
	assert.Equal(t, []string{key}, curated, "curated entities survive draft cleanup")
}
