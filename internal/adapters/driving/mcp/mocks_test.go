package mcp

import (
	"context"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

// mockLookupService is a mock implementation of driving.LookupService.
type mockLookupService struct {
	result *domain.LookupResult
	topics []string
	err    error

	lastName string
}

func (m *mockLookupService) Lookup(_ context.Context, name string) (*domain.LookupResult, error) {
	m.lastName = name
	return m.result, m.err
}

func (m *mockLookupService) ListTopics(_ context.Context) ([]string, error) {
	return m.topics, m.err
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.RawSearchResult
	err     error

	lastQuery string
	lastOpts  domain.RawSearchOptions
}

func (m *mockSearchService) SearchRaw(
	_ context.Context,
	query string,
	opts domain.RawSearchOptions,
) ([]domain.RawSearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

// mockAssembler is a mock implementation of driving.TopicAssembler.
type mockAssembler struct {
	topic *domain.Topic
	err   error
}

func (m *mockAssembler) Assemble(_ context.Context, _ string) (*domain.Topic, error) {
	return m.topic, m.err
}

// mockCuration implements the parts of driving.CurationService the server
// uses. Other methods panic through the nil embedded interface.
type mockCuration struct {
	driving.CurationService

	artifact *domain.Artifact
	draft    *driving.DraftResult
	err      error

	saved   *domain.Topic
	lastKey string
}

func (m *mockCuration) Get(_ context.Context, key string) (*domain.Artifact, error) {
	m.lastKey = key
	return m.artifact, m.err
}

func (m *mockCuration) SaveTopicDraft(_ context.Context, topic *domain.Topic) (*driving.DraftResult, error) {
	m.saved = topic
	return m.draft, m.err
}

func curatedTopic() *domain.Topic {
	return &domain.Topic{
		Name:   "Clock Gating",
		Slug:   "clock_gating",
		Status: domain.StatusCurated,
		Sections: map[domain.TopicSection][]domain.TopicEntry{
			domain.SectionDefinition: {{
				ArtifactKey: "definition/clock_gating",
				Kind:        domain.KindDefinition,
				Term:        "clock gating",
				Excerpt:     "Clock gating disables the clock of idle blocks.",
				Citations:   []domain.Citation{{ChunkID: "manual_chunk_0003", Document: "manual", PageStart: 4, PageEnd: 4}},
			}},
		},
		Sources: []domain.Citation{{ChunkID: "manual_chunk_0003", Document: "manual", PageStart: 4, PageEnd: 4}},
	}
}
