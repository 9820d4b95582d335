package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/core/domain"
)

func TestExtractTopicSlug(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid topic URI", "canon://topics/clock_gating", "clock_gating"},
		{"invalid prefix", "file://topics/clock_gating", ""},
		{"nested path", "canon://topics/a/b", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractTopicSlug(tt.uri))
		})
	}
}

func TestExtractArtifactKey(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid artifact URI", "canon://curated/rule/idle_timeout", "rule/idle_timeout"},
		{"open question", "canon://curated/openQuestion/reset_order", "openQuestion/reset_order"},
		{"unknown kind", "canon://curated/topic/clock_gating", ""},
		{"drafts are not curated", "canon://curated/drafts/rule/DRAFT_x", ""},
		{"missing slug", "canon://curated/rule/", ""},
		{"invalid prefix", "canon://topics/rule/x", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractArtifactKey(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleTopicsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		result, err := server.handleTopicsResource(ctx, makeReadResourceRequest("canon://topics"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists topics", func(t *testing.T) {
		server := newTestServer(t, &Ports{Lookup: &mockLookupService{topics: []string{"clock_gating"}}})

		result, err := server.handleTopicsResource(ctx, makeReadResourceRequest("canon://topics"))

		require.NoError(t, err)
		assert.JSONEq(t, `["clock_gating"]`, result.Contents[0].Text)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
	})

	t.Run("error", func(t *testing.T) {
		server := newTestServer(t, &Ports{Lookup: &mockLookupService{err: errors.New("boom")}})

		_, err := server.handleTopicsResource(ctx, makeReadResourceRequest("canon://topics"))

		assert.ErrorContains(t, err, "listing topics")
	})
}

func TestServer_handleTopicResource(t *testing.T) {
	ctx := context.Background()

	t.Run("curated topic", func(t *testing.T) {
		lookup := &mockLookupService{result: &domain.LookupResult{Outcome: domain.LookupFound, Topic: curatedTopic()}}
		server := newTestServer(t, &Ports{Lookup: lookup})

		result, err := server.handleTopicResource(ctx, makeReadResourceRequest("canon://topics/clock_gating"))

		require.NoError(t, err)
		assert.Equal(t, "clock_gating", lookup.lastName)
		assert.Equal(t, "text/markdown", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "# Clock Gating")
	})

	t.Run("missing topic", func(t *testing.T) {
		lookup := &mockLookupService{result: &domain.LookupResult{Outcome: domain.LookupNotFound}}
		server := newTestServer(t, &Ports{Lookup: lookup})

		_, err := server.handleTopicResource(ctx, makeReadResourceRequest("canon://topics/unknown"))

		assert.Error(t, err)
	})

	t.Run("bad uri", func(t *testing.T) {
		server := newTestServer(t, &Ports{})

		_, err := server.handleTopicResource(ctx, makeReadResourceRequest("canon://topics/"))

		assert.Error(t, err)
	})
}

func TestServer_handleArtifactResource(t *testing.T) {
	ctx := context.Background()
	curated := &domain.Artifact{
		Key:        "rule/idle_timeout",
		Kind:       domain.KindRule,
		Term:       "idle timeout",
		Title:      "Idle timeout",
		Status:     domain.StatusCurated,
		Body:       "The unit sleeps after 30 seconds idle.",
		ReviewedBy: "alice",
		Citations:  []domain.Citation{{ChunkID: "manual_chunk_0002", Document: "manual", PageStart: 3, PageEnd: 3}},
	}

	t.Run("curated artifact", func(t *testing.T) {
		curation := &mockCuration{artifact: curated}
		server := newTestServer(t, &Ports{Curation: curation})

		result, err := server.handleArtifactResource(ctx, makeReadResourceRequest("canon://curated/rule/idle_timeout"))

		require.NoError(t, err)
		assert.Equal(t, "rule/idle_timeout", curation.lastKey)
		text := result.Contents[0].Text
		assert.Contains(t, text, "# Idle timeout")
		assert.Contains(t, text, "Reviewed by: alice")
		assert.Contains(t, text, "The unit sleeps after 30 seconds idle.")
		assert.Contains(t, text, "- chunk:manual_chunk_0002 (manual p.3)")
	})

	t.Run("draft status is hidden", func(t *testing.T) {
		draft := *curated
		draft.Status = domain.StatusDraft
		server := newTestServer(t, &Ports{Curation: &mockCuration{artifact: &draft}})

		_, err := server.handleArtifactResource(ctx, makeReadResourceRequest("canon://curated/rule/idle_timeout"))

		assert.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{Curation: &mockCuration{err: domain.ErrNotFound}})

		_, err := server.handleArtifactResource(ctx, makeReadResourceRequest("canon://curated/rule/missing"))

		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})
}
