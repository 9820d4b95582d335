package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/adapters/driven/config/file"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/services"
)

const clockGating = "Clock gating disables the clock of idle blocks."

// promoteDefinition drafts and promotes the clock gating definition.
func promoteDefinition(t *testing.T, env *testEnv) {
	t.Helper()
	_, err := execute(t, "draft", "new", "--kind", "definition", "--term", "clock gating",
		"--body", clockGating, "--cite", "manual_chunk_0001")
	require.NoError(t, err)
	drafts := env.drafts(t, "definition")
	require.Len(t, drafts, 1)
	_, err = execute(t, "promote", "--draft", drafts[0], "--reviewer", "alice")
	require.NoError(t, err)
}

func TestCurationFlow_DraftPromoteLookup(t *testing.T) {
	env := setupTestServices(t)
	env.seed(t, "manual", clockGating)

	out, err := execute(t, "draft", "new", "--kind", "definition", "--term", "clock gating",
		"--body", clockGating, "--cite", "manual_chunk_0001")
	require.NoError(t, err)
	drafts := env.drafts(t, "definition")
	require.Len(t, drafts, 1)
	assert.Contains(t, out, "DRAFT saved: "+drafts[0])
	assert.Contains(t, out, "Promote with: canon promote --draft "+drafts[0])

	// Drafts never answer a lookup.
	out, err = execute(t, "lookup", "clock gating")
	require.NoError(t, err)
	assert.Contains(t, out, `No curated topic for "clock gating"`)
	assert.NotContains(t, out, "CURATED")

	out, err = execute(t, "promote", "--draft", drafts[0])
	require.ErrorIs(t, err, domain.ErrPromotionDenied)
	assert.Contains(t, out, "a human reviewer is required")

	out, err = execute(t, "promote", "--draft", drafts[0], "--reviewer", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Promoted "+drafts[0]+" to definition/clock_gating (reviewed by alice)")
	assert.Empty(t, env.drafts(t, "definition"))

	out, err = execute(t, "topic", "draft", "clock gating")
	require.NoError(t, err)
	assert.Contains(t, out, clockGating)
	topicDrafts := env.drafts(t, domain.KindTopic)
	require.Len(t, topicDrafts, 1)

	_, err = execute(t, "promote", "--draft", topicDrafts[0], "--reviewer", "bob")
	require.NoError(t, err)

	out, err = execute(t, "lookup", "Clock Gating")
	require.NoError(t, err)
	assert.Contains(t, out, "CURATED topic/clock_gating")
	assert.Contains(t, out, clockGating)
	assert.Contains(t, out, "Reviewed by: bob")

	out, err = execute(t, "topic", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "topic/clock_gating")
	assert.Contains(t, out, "Total: 1 topic(s)")
}

func TestLookupCmd_JSONNotFound(t *testing.T) {
	env := setupTestServices(t)
	env.seed(t, "manual", clockGating)
	promoteDefinition(t, env)

	out, err := execute(t, "lookup", "clock gating", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "not_found"`)
	assert.Contains(t, out, `"key": "topic/clock_gating"`)
	assert.Contains(t, out, "definition/clock_gating")
	assert.NotContains(t, out, `"dossier"`)
}

func TestPromoteCmd_Gates(t *testing.T) {
	t.Run("unresolved citation", func(t *testing.T) {
		env := setupTestServices(t)
		env.seed(t, "manual", clockGating)

		out, err := execute(t, "draft", "new", "-k", "rule", "-t", "gating", "-b", "Gate idle blocks.",
			"--cite", "manual_chunk_0099")
		require.NoError(t, err)
		assert.Contains(t, out, "1 unresolved citation(s)")
		assert.Contains(t, out, "chunk:manual_chunk_0099")

		out, err = execute(t, "promote", "--draft", env.drafts(t, "rule")[0], "-r", "alice")
		require.ErrorIs(t, err, domain.ErrPromotionDenied)
		assert.Contains(t, out, "unresolved citation chunk:manual_chunk_0099")
	})

	t.Run("missing citation", func(t *testing.T) {
		env := setupTestServices(t)

		_, err := execute(t, "draft", "new", "-k", "invariant", "-t", "reset", "-b", "Reset is synchronous.")
		require.NoError(t, err)

		out, err := execute(t, "promote", "--draft", env.drafts(t, "invariant")[0], "-r", "alice")
		require.ErrorIs(t, err, domain.ErrPromotionDenied)
		assert.Contains(t, out, "invariant artifacts need at least one citation")
	})

	t.Run("open question needs no citation", func(t *testing.T) {
		env := setupTestServices(t)

		_, err := execute(t, "draft", "new", "-k", "openQuestion", "-t", "reset", "-b", "Is reset synchronous?")
		require.NoError(t, err)

		out, err := execute(t, "promote", "--draft", env.drafts(t, "openQuestion")[0], "-r", "alice")
		require.NoError(t, err)
		assert.Contains(t, out, "to openQuestion/reset")
	})

	t.Run("overwrite needs edit", func(t *testing.T) {
		env := setupTestServices(t)
		env.seed(t, "manual", clockGating)
		promoteDefinition(t, env)

		out, err := execute(t, "checkout", "definition/clock_gating")
		require.NoError(t, err)
		assert.Contains(t, out, "Promote the edited draft with --to definition/clock_gating --edit")
		draft := env.drafts(t, "definition")
		require.Len(t, draft, 1)

		_, err = execute(t, "promote", "--draft", draft[0], "-r", "bob")
		require.ErrorIs(t, err, domain.ErrRefusedOverwrite)

		out, err = execute(t, "promote", "--draft", draft[0], "-r", "bob", "--edit")
		require.NoError(t, err)
		assert.Contains(t, out, "Updated "+draft[0])

		out, err = execute(t, "history", "definition/clock_gating")
		require.NoError(t, err)
		assert.Contains(t, out, "alice")
		assert.Contains(t, out, "bob")
		assert.Contains(t, out, domain.ActionEdit)
	})

	t.Run("draft flag is required", func(t *testing.T) {
		_, err := execute(t, "promote", "-r", "alice")
		assert.ErrorContains(t, err, `required flag(s) "draft" not set`)
	})
}

func TestShowCmd(t *testing.T) {
	env := setupTestServices(t)
	env.seed(t, "manual", clockGating)
	promoteDefinition(t, env)

	out, err := execute(t, "show", "definition/clock_gating")

	require.NoError(t, err)
	assert.Contains(t, out, "CURATED definition/clock_gating")
	assert.Contains(t, out, "Kind:         definition")
	assert.Contains(t, out, "Reviewed by:  alice")
	assert.Contains(t, out, clockGating)
	assert.Contains(t, out, "chunk:manual_chunk_0001 (manual p.1)")

	_, err = execute(t, "show", "definition/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftNew_FromChunk(t *testing.T) {
	env := setupTestServices(t)
	env.seed(t, "manual", clockGating)

	_, err := execute(t, "draft", "new", "-k", "definition", "-t", "clock gating", "--from-chunk", "manual_chunk_0001")
	require.NoError(t, err)

	drafts := env.drafts(t, "definition")
	require.Len(t, drafts, 1)
	a, err := env.curation.Get(context.Background(), drafts[0])
	require.NoError(t, err)
	assert.Equal(t, clockGating, a.Body)
	assert.Equal(t, "chunk:manual_chunk_0001", a.GeneratedBy)
	require.Len(t, a.Citations, 1)
	assert.Equal(t, "manual", a.Citations[0].Document)

	_, err = execute(t, "draft", "new", "-k", "definition", "-t", "x", "--from-chunk", "nope_chunk_0001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDraftNew_BodyFromStdin(t *testing.T) {
	env := setupTestServices(t)

	_, err := executeWithInput(t, "  Reset is asynchronous.\n", "draft", "new", "-k", "openQuestion", "--name", "reset", "-b", "-")
	require.NoError(t, err)

	a, err := env.curation.Get(context.Background(), env.drafts(t, "openQuestion")[0])
	require.NoError(t, err)
	assert.Equal(t, "Reset is asynchronous.", a.Body)
	assert.Equal(t, generatedByHuman, a.GeneratedBy)
}

func TestDraftNew_InvalidKind(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "draft", "new", "-k", "poem", "-t", "x", "-b", "y")

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestDraftListAndRm(t *testing.T) {
	env := setupTestServices(t)

	out, err := execute(t, "draft", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No pending drafts.")

	_, err = execute(t, "draft", "new", "-k", "openQuestion", "-t", "reset", "-b", "?")
	require.NoError(t, err)
	_, err = execute(t, "draft", "new", "-k", "rule", "-t", "gating", "-b", "!")
	require.NoError(t, err)

	out, err = execute(t, "draft", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 draft(s)")

	out, err = execute(t, "draft", "list", "--kind", "rule")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 1 draft(s)")
	assert.Contains(t, out, "gating")

	key := env.drafts(t, "rule")[0]
	out, err = execute(t, "draft", "rm", key, "drafts/rule/DRAFT_missing_20260101_000000")
	require.Error(t, err)
	assert.Contains(t, out, "Deleted "+key)
	assert.Empty(t, env.drafts(t, "rule"))
}

func TestParseCitationRef(t *testing.T) {
	tests := []struct {
		raw     string
		want    domain.CitationRef
		wantErr bool
	}{
		{raw: "chunk:manual_chunk_0003", want: domain.CitationRef{ChunkID: "manual_chunk_0003"}},
		{raw: "manual_chunk_0003", want: domain.CitationRef{ChunkID: "manual_chunk_0003"}},
		{raw: "manual:12", want: domain.CitationRef{Document: "manual", Page: 12}},
		{raw: "manual:p12", want: domain.CitationRef{Document: "manual", Page: 12}},
		{raw: " manual:3 ", want: domain.CitationRef{Document: "manual", Page: 3}},
		{raw: "manual:0", wantErr: true},
		{raw: "manual:twelve", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseCitationRef(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSynthCmd(t *testing.T) {
	t.Run("saves the proposal as a draft", func(t *testing.T) {
		env := setupTestServices(t)
		env.seed(t, "manual", clockGating)

		out, err := execute(t, "synth", "definition", "clock gating")

		require.NoError(t, err)
		drafts := env.drafts(t, "definition")
		require.Len(t, drafts, 1)
		assert.Contains(t, out, "DRAFT saved: "+drafts[0])
		a, err := env.curation.Get(context.Background(), drafts[0])
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDraft, a.Status)
		assert.Equal(t, "oracle:stub", a.GeneratedBy)
		require.Len(t, a.Citations, 1)
		assert.Equal(t, "manual_chunk_0001", a.Citations[0].ChunkID)
	})

	t.Run("no oracle configured", func(t *testing.T) {
		env := setupTestServices(t)
		prompts, err := file.NewPromptStore(t.TempDir())
		require.NoError(t, err)
		synthesisService = services.NewSynthesisService(env.chunks, env.curation, nil, prompts,
			domain.OracleSettings{MaxChunks: 4}, nil)

		_, err = execute(t, "synth", "definition", "clock gating")

		require.ErrorIs(t, err, domain.ErrOracleUnavailable)
		assert.ErrorContains(t, err, "canon settings oracle")
	})

	t.Run("no matching chunks", func(t *testing.T) {
		setupTestServices(t)

		_, err := execute(t, "synth", "rule", "clock gating")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
