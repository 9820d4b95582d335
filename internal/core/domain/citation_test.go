package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCitation_Forms(t *testing.T) {
	chunk := Citation{ChunkID: "spec_chunk_0001"}
	page := Citation{Document: "spec", PageStart: 4}
	artifact := Citation{ArtifactKey: "rule/reset"}
	empty := Citation{Section: "Intro"}

	assert.True(t, chunk.IsChunkRef())
	assert.False(t, chunk.IsPageRef())
	assert.True(t, page.IsPageRef())
	assert.False(t, page.IsChunkRef())
	assert.True(t, artifact.IsArtifactRef())
	assert.True(t, empty.IsEmpty())
	assert.False(t, chunk.IsEmpty())
}

func TestCitation_String(t *testing.T) {
	tests := []struct {
		name string
		c    Citation
		want string
	}{
		{"bare chunk", Citation{ChunkID: "spec_chunk_0002"}, "chunk:spec_chunk_0002"},
		{"chunk single page", Citation{ChunkID: "spec_chunk_0002", Document: "spec", PageStart: 3, PageEnd: 3}, "chunk:spec_chunk_0002 (spec p.3)"},
		{"chunk span", Citation{ChunkID: "spec_chunk_0002", Document: "spec", PageStart: 3, PageEnd: 4}, "chunk:spec_chunk_0002 (spec pp.3-4)"},
		{"page", Citation{Document: "spec", PageStart: 7}, "spec p.7"},
		{"page span", Citation{Document: "spec", PageStart: 7, PageEnd: 9}, "spec pp.7-9"},
		{"artifact", Citation{ArtifactKey: "definition/clock"}, "artifact:definition/clock"},
		{"empty", Citation{}, "(empty citation)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.String())
		})
	}
}

func TestCitationFor(t *testing.T) {
	c := &Chunk{ID: "spec_chunk_0003", SourceDocument: "spec", Section: "## Reset", PageStart: 2, PageEnd: 3}

	got := CitationFor(c)

	assert.Equal(t, Citation{ChunkID: "spec_chunk_0003", Document: "spec", Section: "## Reset", PageStart: 2, PageEnd: 3}, got)
}

func TestDedupCitations(t *testing.T) {
	in := []Citation{
		{ChunkID: "a"},
		{ChunkID: "a", Document: "spec"},
		{Document: "spec", PageStart: 2},
		{Document: "spec", PageStart: 2, PageEnd: 2},
		{ArtifactKey: "rule/x"},
		{ChunkID: "b"},
	}

	out := DedupCitations(in)

	assert.Equal(t, []Citation{
		{ChunkID: "a"},
		{Document: "spec", PageStart: 2},
		{ArtifactKey: "rule/x"},
		{ChunkID: "b"},
	}, out)
}
