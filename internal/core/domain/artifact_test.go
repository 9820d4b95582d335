package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactKind(t *testing.T) {
	for _, k := range ArtifactKinds {
		t.Run(k.String(), func(t *testing.T) {
			assert.True(t, k.IsValid())
			assert.Equal(t, k != KindOpenQuestion, k.RequiresCitation())
		})
	}

	assert.False(t, ArtifactKind("theorem").IsValid())
	assert.False(t, ArtifactKind("theorem").RequiresCitation())
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusDraft.IsValid())
	assert.True(t, StatusCurated.IsValid())
	assert.False(t, Status("draft").IsValid())
}

func TestArtifact_HasTag(t *testing.T) {
	a := &Artifact{Tags: []string{TagBehavior, "power"}}
	assert.True(t, a.HasTag(TagBehavior))
	assert.False(t, a.HasTag(TagLimitation))
}

func TestTopic_Citations(t *testing.T) {
	topic := &Topic{
		Sections: map[TopicSection][]TopicEntry{
			SectionDefinition: {{
				ArtifactKey: "definition/clock",
				Citations:   []Citation{{ChunkID: "spec_chunk_0001"}},
			}},
			SectionRules: {{
				ArtifactKey: "rule/clock_enable",
				Citations:   []Citation{{ChunkID: "spec_chunk_0001"}, {ChunkID: "spec_chunk_0002"}},
			}},
		},
		Sources: []Citation{{ChunkID: "spec_chunk_0002"}},
	}

	got := topic.Citations()

	assert.Equal(t, []Citation{
		{ArtifactKey: "definition/clock"},
		{ChunkID: "spec_chunk_0001"},
		{ArtifactKey: "rule/clock_enable"},
		{ChunkID: "spec_chunk_0002"},
	}, got)
	assert.True(t, topic.IsSpecified(SectionRules))
	assert.False(t, topic.IsSpecified(SectionEdgeCases))
}

func TestTopicSection_Title(t *testing.T) {
	assert.Equal(t, "Related Terms", SectionRelatedTerms.Title())
	assert.Equal(t, "Behavior", SectionBehaviorStates.Title())
	assert.Equal(t, "custom", TopicSection("custom").Title())
}
