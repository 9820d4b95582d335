package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/canon/internal/core/domain"
)

type testPorts struct {
	search   *mockSearchService
	lookup   *mockLookupService
	curation *mockCuration
}

func (p testPorts) ports() *Ports {
	return &Ports{Search: p.search, Lookup: p.lookup, Curation: p.curation}
}

func newTestApp(t *testing.T) (*App, testPorts) {
	t.Helper()
	tp := testPorts{
		search:   &mockSearchService{},
		lookup:   &mockLookupService{},
		curation: &mockCuration{},
	}
	app, err := NewApp(tp.ports())
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app, tp
}

// run feeds msg to the app, then keeps feeding back the app's own
// messages produced by the returned commands.
func run(app *App, msg tea.Msg) {
	for range 5 {
		_, cmd := app.Update(msg)
		if cmd == nil {
			return
		}
		msg = cmd()
		switch msg.(type) {
		case messages.SearchCompleted, messages.EntriesLoaded, messages.EntrySelected,
			messages.ChunkSelected, messages.ContentLoaded, messages.ErrorOccurred:
		default:
			return
		}
	}
}

func curatedTopic() *domain.Topic {
	return &domain.Topic{
		Key:    "topic/clock_gating",
		Name:   "Clock Gating",
		Slug:   "clock_gating",
		Status: domain.StatusCurated,
		Sections: map[domain.TopicSection][]domain.TopicEntry{
			domain.SectionDefinition: {{
				ArtifactKey: "definition/clock_gating",
				Kind:        domain.KindDefinition,
				Term:        "clock gating",
				Excerpt:     "Clock gating disables the clock of idle blocks.",
			}},
		},
		ReviewedBy:  "alice",
		LastUpdated: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewApp_StartsAtMenu(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Equal(t, messages.ViewMenu, app.CurrentView())
	assert.True(t, app.Ready())
	assert.Contains(t, app.View(), "Curated topics")
	assert.NotNil(t, app.Init())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{Search: &mockSearchService{}})

	assert.ErrorIs(t, err, ErrMissingLookupService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := newTestApp(t)

	assert.Same(t, app, app.WithContext(context.Background()))
}

func TestApp_NotReady(t *testing.T) {
	app, err := NewApp(testPorts{&mockSearchService{}, &mockLookupService{}, &mockCuration{}}.ports())
	require.NoError(t, err)

	assert.Equal(t, "Initialising...", app.View())
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.True(t, app.Ready())
}

func TestApp_CtrlCQuits(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_QuitMessage(t *testing.T) {
	app, _ := newTestApp(t)

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestApp_BrowseCuratedTopic(t *testing.T) {
	app, tp := newTestApp(t)
	tp.lookup.topics = []string{"Clock Gating"}
	tp.lookup.result = &domain.LookupResult{
		Name: "Clock Gating", Key: "topic/clock_gating",
		Outcome: domain.LookupFound, Topic: curatedTopic(),
	}

	run(app, messages.ViewChanged{View: messages.ViewTopics})
	assert.Equal(t, messages.ViewTopics, app.CurrentView())
	assert.Contains(t, app.View(), "> Clock Gating")

	run(app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, messages.ViewContent, app.CurrentView())
	assert.Equal(t, "Clock Gating", tp.lookup.lastName)
	view := app.View()
	assert.Contains(t, view, "CURATED")
	assert.Contains(t, view, "Clock gating disables the clock of idle blocks.")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewTopics}, cmd())
}

func TestApp_TopicNoLongerCurated(t *testing.T) {
	app, tp := newTestApp(t)
	tp.lookup.result = &domain.LookupResult{Name: "Gone", Outcome: domain.LookupNotFound}

	run(app, messages.EntrySelected{From: messages.ViewTopics, Entry: "Gone"})

	assert.ErrorIs(t, app.Err(), domain.ErrNotFound)
	assert.Contains(t, app.View(), "Error:")
}

func TestApp_BrowseDraftArtifact(t *testing.T) {
	app, tp := newTestApp(t)
	key := "drafts/definition/DRAFT_clock_gating_20260101_120000"
	tp.curation.drafts = []string{key}
	tp.curation.artifact = &domain.Artifact{
		Key:    key,
		Kind:   domain.KindDefinition,
		Term:   "clock gating",
		Status: domain.StatusDraft,
		Body:   "Clock gating disables the clock of idle blocks.",
		Citations: []domain.Citation{
			{ChunkID: "manual_chunk_0001", Document: "manual", PageStart: 1, PageEnd: 1},
		},
	}

	run(app, messages.ViewChanged{View: messages.ViewDrafts})
	assert.Equal(t, "", tp.curation.lastKind, "every kind is listed")
	assert.Contains(t, app.View(), key)

	run(app, messages.EntrySelected{From: messages.ViewDrafts, Entry: key})

	assert.Equal(t, key, tp.curation.lastKey)
	view := app.View()
	assert.Contains(t, view, "DRAFT")
	assert.Contains(t, view, "Term:         clock gating")
	assert.Contains(t, view, "chunk:manual_chunk_0001")
	assert.Contains(t, view, "Not authoritative until promoted")
}

func TestApp_BrowseDraftTopic(t *testing.T) {
	app, tp := newTestApp(t)
	key := "drafts/topic/DRAFT_clock_gating_20260101_120000"
	topic := curatedTopic()
	topic.Status = domain.StatusDraft
	tp.curation.topic = topic

	run(app, messages.EntrySelected{From: messages.ViewDrafts, Entry: key})

	assert.Equal(t, key, tp.curation.lastKey)
	assert.Contains(t, app.View(), "DRAFT")
}

func TestApp_LoadErrorShownInContent(t *testing.T) {
	app, tp := newTestApp(t)
	tp.curation.err = errors.New("disk gone")

	run(app, messages.EntrySelected{From: messages.ViewDrafts, Entry: "drafts/rule/DRAFT_x_20260101_120000"})

	assert.EqualError(t, app.Err(), "disk gone")
	assert.Contains(t, app.View(), "Error: disk gone")
}

func TestApp_SearchAndOpenChunk(t *testing.T) {
	app, tp := newTestApp(t)
	tp.search.results = []domain.RawSearchResult{{
		Chunk: domain.Chunk{
			ID: "manual_chunk_0003", SourceDocument: "manual",
			PageStart: 4, PageEnd: 5, Section: "Power", Index: 3, Total: 9,
			Text: "Clock gating saves dynamic power.",
		},
		Matches: 2,
	}}

	run(app, messages.ViewChanged{View: messages.ViewSearch})
	for _, r := range "gating" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	run(app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Contains(t, app.View(), "manual_chunk_0003")
	assert.Contains(t, app.View(), "1 chunks, none authoritative")

	run(app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, messages.ViewContent, app.CurrentView())
	view := app.View()
	assert.Contains(t, view, "RAW")
	assert.Contains(t, view, "manual_chunk_0003 (manual pp.4-5)")
	assert.Contains(t, view, "Chunk 3 of 9")
	assert.Contains(t, view, "Clock gating saves dynamic power.")
}

func TestApp_SearchError(t *testing.T) {
	app, _ := newTestApp(t)
	run(app, messages.ViewChanged{View: messages.ViewSearch})

	app.Update(messages.SearchCompleted{Err: errors.New("index missing")})

	assert.EqualError(t, app.Err(), "index missing")
}

func TestApp_HelpView(t *testing.T) {
	app, _ := newTestApp(t)

	run(app, messages.ViewChanged{View: messages.ViewHelp})
	assert.Contains(t, app.View(), "canon promote --draft")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestApp_ErrorOccurredForwarded(t *testing.T) {
	app, _ := newTestApp(t)
	run(app, messages.ViewChanged{View: messages.ViewSearch})

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
	assert.Contains(t, app.View(), "Error: boom")
}

func TestKeyKind(t *testing.T) {
	assert.Equal(t, "topic", keyKind("drafts/topic/DRAFT_clock_gating_20260101_120000"))
	assert.Equal(t, "rule", keyKind("rule/gating"))
	assert.Equal(t, "", keyKind("nonsense"))
}
