// Package entries provides a navigable list of topic names or record keys.
package entries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/styles"
)

// ErrNoLoader is reported when the view has nothing to list from.
var ErrNoLoader = errors.New("entries: no loader configured")

// reservedLines covers the title, scroll indicator and help.
const reservedLines = 8

// Loader fetches the entries to display.
type Loader func(ctx context.Context) ([]string, error)

// View lists entries and emits EntrySelected on enter.
type View struct {
	styles *styles.Styles
	kind   messages.ViewType
	title  string
	empty  string
	badge  messages.Authority
	load   Loader
	ctx    context.Context

	entries      []string
	selected     int
	scrollOffset int
	width        int
	height       int
	err          error
	loading      bool
}

// NewView creates an entries view for kind. Every entry is labelled badge.
func NewView(s *styles.Styles, kind messages.ViewType, title, empty string, badge messages.Authority, load Loader) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		kind:   kind,
		title:  title,
		empty:  empty,
		badge:  badge,
		load:   load,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context passed to the loader.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts loading the entries.
func (v *View) Init() tea.Cmd {
	v.loading = true
	load, ctx, kind := v.load, v.ctx, v.kind
	return func() tea.Msg {
		if load == nil {
			return messages.EntriesLoaded{View: kind, Err: ErrNoLoader}
		}
		entries, err := load(ctx)
		return messages.EntriesLoaded{View: kind, Entries: entries, Err: err}
	}
}

// Update handles messages for the entries view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.EntriesLoaded:
		if msg.View != v.kind {
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.entries = msg.Entries
			v.selected = min(v.selected, max(len(v.entries)-1, 0))
			v.adjustScroll()
		}
		return v, nil

	case messages.ErrorOccurred:
		v.loading = false
		v.err = msg.Err
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case "down", "j":
		if v.selected < len(v.entries)-1 {
			v.selected++
			v.adjustScroll()
		}
	case "enter":
		if entry, ok := v.SelectedEntry(); ok {
			from := v.kind
			return v, func() tea.Msg {
				return messages.EntrySelected{From: from, Entry: entry}
			}
		}
	case "r":
		return v, v.Init()
	case "esc":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	return max(v.height-reservedLines, 1)
}

// View renders the entries view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Badge(v.badge) + " ")
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("%s (%d)", v.title, len(v.entries))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.entries) == 0:
		b.WriteString(v.styles.Muted.Render(v.empty))
	default:
		visible := v.visibleItemCount()
		end := min(v.scrollOffset+visible, len(v.entries))
		for i := v.scrollOffset; i < end; i++ {
			if i == v.selected {
				b.WriteString(v.styles.Selected.Render("> " + v.entries[i]))
			} else {
				b.WriteString(v.styles.Normal.Render("  " + v.entries[i]))
			}
			b.WriteString("\n")
		}
		if len(v.entries) > visible {
			b.WriteString("\n")
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
				v.scrollOffset+1, end, len(v.entries))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] open  [r] reload  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Entries returns the loaded entries.
func (v *View) Entries() []string {
	return v.entries
}

// SelectedEntry returns the highlighted entry.
func (v *View) SelectedEntry() (string, bool) {
	if v.selected < 0 || v.selected >= len(v.entries) {
		return "", false
	}
	return v.entries[v.selected], true
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether entries are being fetched.
func (v *View) Loading() bool {
	return v.loading
}
