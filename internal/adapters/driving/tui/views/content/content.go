// Package content provides a scrollable view of one chunk, artifact or dossier.
package content

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/styles"
)

// reservedLines covers the title, separator, scroll indicator and help.
const reservedLines = 7

// View is the content view.
type View struct {
	styles *styles.Styles

	title        string
	authority    messages.Authority
	content      string
	lines        []string
	back         messages.ViewType
	scrollOffset int
	width        int
	height       int
	err          error
	loading      bool
}

// NewView creates a new content view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		back:   messages.ViewMenu,
		width:  80,
		height: 24,
	}
}

// Open clears the view and waits for a ContentLoaded message. Esc
// returns to back.
func (v *View) Open(title string, back messages.ViewType) {
	v.title = title
	v.authority = ""
	v.content = ""
	v.lines = nil
	v.back = back
	v.scrollOffset = 0
	v.err = nil
	v.loading = true
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ContentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		if msg.Title != "" {
			v.title = msg.Title
		}
		v.authority = msg.Authority
		v.content = msg.Content
		v.err = nil
		v.wrapContent()
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
		v.scrollTo(v.scrollOffset - 1)
	case "down", "j":
		v.scrollTo(v.scrollOffset + 1)
	case "pgup", "ctrl+u":
		v.scrollTo(v.scrollOffset - v.visibleLines())
	case "pgdown", "ctrl+d", " ":
		v.scrollTo(v.scrollOffset + v.visibleLines())
	case "home", "g":
		v.scrollTo(0)
	case "end", "G":
		v.scrollTo(v.maxScrollOffset())
	case "esc":
		back := v.back
		return v, func() tea.Msg {
			return messages.ViewChanged{View: back}
		}
	}
	return v, nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = min(max(offset, 0), v.maxScrollOffset())
}

// wrapContent hard-wraps the content to the view width.
func (v *View) wrapContent() {
	v.lines = nil
	if v.content == "" {
		return
	}
	width := max(v.width-4, 20)
	for _, line := range strings.Split(v.content, "\n") {
		runes := []rune(line)
		for len(runes) > width {
			v.lines = append(v.lines, string(runes[:width]))
			runes = runes[width:]
		}
		v.lines = append(v.lines, string(runes))
	}
	v.scrollTo(v.scrollOffset)
}

func (v *View) visibleLines() int {
	return max(v.height-reservedLines, 1)
}

func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the content view.
func (v *View) View() string {
	var b strings.Builder

	header := v.styles.Title.Render(v.title)
	if v.authority != "" {
		header = v.styles.Badge(v.authority) + " " + header
	}
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
	default:
		end := min(v.scrollOffset+v.visibleLines(), len(v.lines))
		b.WriteString(v.styles.Normal.Render(strings.Join(v.lines[v.scrollOffset:end], "\n")))
		if len(v.lines) > v.visibleLines() {
			percentage := v.scrollOffset * 100 / v.maxScrollOffset()
			b.WriteString("\n\n")
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
				percentage, v.scrollOffset+1, end, len(v.lines))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
}

// SetDimensions sets the view dimensions and rewraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.wrapContent()
}

// Title returns the current title.
func (v *View) Title() string {
	return v.title
}

// Authority returns the authority of the shown content.
func (v *View) Authority() messages.Authority {
	return v.authority
}

// Content returns the unwrapped content.
func (v *View) Content() string {
	return v.content
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// Loading reports whether content is still being fetched.
func (v *View) Loading() bool {
	return v.loading
}
