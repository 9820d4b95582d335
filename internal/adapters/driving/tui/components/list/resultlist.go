// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/canon/internal/core/domain"
)

// linesPerResult is the height of one rendered result.
const linesPerResult = 2

// ResultList displays raw chunk matches in a navigable list.
type ResultList struct {
	results  []domain.RawSearchResult
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list. Every result carries the RAW badge.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No matching chunks")
	}

	lines := make([]string, 0, len(r.results)*linesPerResult+2)
	header := r.styles.Subtitle.Render(fmt.Sprintf("Chunks (%d)", len(r.results))) +
		"  " + r.styles.Muted.Render("raw text, not authoritative")
	lines = append(lines, header, "")

	visible := max((r.height-2)/linesPerResult, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.results))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) renderResult(index int, res *domain.RawSearchResult) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	c := &res.Chunk
	label := fmt.Sprintf("%s%s  %s", indicator, c.ID, pageSpan(c.PageStart, c.PageEnd))
	if c.Section != "" {
		label += "  " + c.Section
	}
	label = truncate(label, r.width-16)
	count := fmt.Sprintf("%d match", res.Matches)
	if res.Matches != 1 {
		count += "es"
	}

	badge := r.styles.Badge(messages.AuthorityRaw)
	var title string
	if index == r.selected {
		title = r.styles.Selected.Render(label) + " " + badge + " " + r.styles.Muted.Render(count)
	} else {
		title = r.styles.Normal.Render(label) + " " + badge + " " + r.styles.Muted.Render(count)
	}

	preview := truncate(strings.Join(strings.Fields(c.Text), " "), r.width-6)
	return title + "\n" + r.styles.Muted.Render("    "+preview)
}

// pageSpan formats an inclusive page range.
func pageSpan(start, end int) string {
	switch {
	case start <= 0:
		return ""
	case start == end:
		return fmt.Sprintf("p.%d", start)
	default:
		return fmt.Sprintf("pp.%d-%d", start, end)
	}
}

// truncate cuts s to n runes, marking the cut.
func truncate(s string, n int) string {
	n = max(n, 10)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetResults replaces the results and resets the selection.
func (r *ResultList) SetResults(results []domain.RawSearchResult) {
	r.results = results
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.RawSearchResult {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index. Out-of-range values are ignored.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.RawSearchResult {
	if r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}
