package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/views/content"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/views/entries"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/canon/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView    *menu.View
	searchView  *search.View
	topicsView  *entries.View
	draftsView  *entries.View
	contentView *content.View

	currentView messages.ViewType
	err         error
	ready       bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		menuView:   menu.NewView(s),
		searchView: search.NewView(s, km, ports.Search),
		topicsView: entries.NewView(s, messages.ViewTopics, "Curated topics",
			"No curated topics yet. Assemble one with: canon topic draft <name>",
			messages.AuthorityCurated, ports.Lookup.ListTopics),
		draftsView: entries.NewView(s, messages.ViewDrafts, "Pending drafts",
			"No drafts awaiting review.",
			messages.AuthorityDraft, func(ctx context.Context) ([]string, error) {
				return ports.Curation.ListDrafts(ctx, "")
			}),
		contentView: content.NewView(s),
		currentView: messages.ViewMenu,
	}, nil
}

// WithContext sets the context for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.topicsView.WithContext(ctx)
	a.draftsView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("canon")
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a, a.updateCurrent(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewSearch:
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewTopics:
			return a, a.topicsView.Init()
		case messages.ViewDrafts:
			return a, a.draftsView.Init()
		case messages.ViewMenu, messages.ViewContent, messages.ViewHelp:
		}
		return a, nil

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.EntriesLoaded:
		a.err = msg.Err
		a.topicsView, _ = a.topicsView.Update(msg)
		a.draftsView, _ = a.draftsView.Update(msg)
		return a, nil

	case messages.EntrySelected:
		a.contentView.Open(msg.Entry, msg.From)
		a.currentView = messages.ViewContent
		return a, a.loadEntry(msg)

	case messages.ChunkSelected:
		a.contentView.Open(msg.Chunk.ID, messages.ViewSearch)
		a.currentView = messages.ViewContent
		chunk := msg.Chunk
		return a, func() tea.Msg {
			return messages.ContentLoaded{
				Title:     chunkTitle(chunk),
				Authority: messages.AuthorityRaw,
				Content:   renderChunk(chunk),
			}
		}

	case messages.ContentLoaded:
		a.err = msg.Err
		a.contentView, cmd = a.contentView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		return a, a.updateCurrent(msg)

	case messages.Quit:
		return a, tea.Quit
	}

	return a, a.updateCurrent(msg)
}

// updateCurrent forwards msg to the active view.
func (a *App) updateCurrent(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
	case messages.ViewTopics:
		a.topicsView, cmd = a.topicsView.Update(msg)
	case messages.ViewDrafts:
		a.draftsView, cmd = a.draftsView.Update(msg)
	case messages.ViewContent:
		a.contentView, cmd = a.contentView.Update(msg)
	case messages.ViewHelp:
		if key, ok := msg.(tea.KeyMsg); ok && (key.Type == tea.KeyEsc || key.String() == "q") {
			a.currentView = messages.ViewMenu
		}
	}
	return cmd
}

// loadEntry reads a curated topic by name or a draft by key.
func (a *App) loadEntry(sel messages.EntrySelected) tea.Cmd {
	ctx, ports := a.ctx, a.ports
	return func() tea.Msg {
		if sel.From == messages.ViewTopics {
			res, err := ports.Lookup.Lookup(ctx, sel.Entry)
			if err != nil {
				return messages.ContentLoaded{Err: err}
			}
			if !res.Found() {
				return messages.ContentLoaded{Err: fmt.Errorf("topic %q: %w", sel.Entry, domain.ErrNotFound)}
			}
			return messages.ContentLoaded{
				Title:     res.Key,
				Authority: messages.AuthorityCurated,
				Content:   frontmatter.RenderDossier(res.Topic),
			}
		}

		if keyKind(sel.Entry) == domain.KindTopic {
			topic, err := ports.Curation.GetTopic(ctx, sel.Entry)
			if err != nil {
				return messages.ContentLoaded{Err: err}
			}
			return messages.ContentLoaded{
				Title:     sel.Entry,
				Authority: authorityOf(topic.Status),
				Content:   frontmatter.RenderDossier(topic),
			}
		}

		artifact, err := ports.Curation.Get(ctx, sel.Entry)
		if err != nil {
			return messages.ContentLoaded{Err: err}
		}
		title := artifact.Title
		if title == "" {
			title = sel.Entry
		}
		return messages.ContentLoaded{
			Title:     title,
			Authority: authorityOf(artifact.Status),
			Content:   renderArtifact(artifact),
		}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewTopics:
		return a.topicsView.View()
	case messages.ViewDrafts:
		return a.draftsView.View()
	case messages.ViewContent:
		return a.contentView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Authority:
  CURATED     promoted by a human reviewer; the only authoritative content
  DRAFT       pending review; never treat as fact
  RAW         source chunk text; cite it, do not quote it as curated

Navigation:
  j/k, ↑/↓    move
  enter       select / open
  esc         back
  ctrl+c      quit

Search:
  enter       run the keyword query (every word must match)
  n           new search

Lists:
  r           reload

Promotion is not available here. Use:
  canon promote --draft <key> --reviewer <name>

[esc] back to menu`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has received its dimensions.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sizes every view.
func (a *App) SetDimensions(width, height int) {
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
	a.topicsView.SetDimensions(width, height)
	a.draftsView.SetDimensions(width, height)
	a.contentView.SetDimensions(width, height)
}
