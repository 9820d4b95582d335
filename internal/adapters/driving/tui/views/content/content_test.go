package content

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/canon/internal/adapters/driving/tui/styles"
)

func numberedLines(n int) string {
	lines := make([]string, n)
	for i := range n {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return strings.Join(lines, "\n")
}

func loadedView(t *testing.T, content string, height int) *View {
	t.Helper()
	v := NewView(styles.DefaultStyles())
	v.SetDimensions(80, height)
	v.Open("clock gating", messages.ViewTopics)
	v.Update(messages.ContentLoaded{Authority: messages.AuthorityCurated, Content: content})
	return v
}

func TestNewView(t *testing.T) {
	v := NewView(nil)

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.Nil(t, v.Init())
}

func TestView_OpenShowsLoading(t *testing.T) {
	v := NewView(nil)

	v.Open("definition/clock_gating", messages.ViewSearch)

	assert.True(t, v.Loading())
	assert.Contains(t, v.View(), "Loading...")
	assert.Contains(t, v.View(), "definition/clock_gating")
}

func TestView_ContentLoaded(t *testing.T) {
	v := loadedView(t, "# Clock Gating\n\nDefinition text.", 24)

	assert.False(t, v.Loading())
	assert.Equal(t, messages.AuthorityCurated, v.Authority())
	out := v.View()
	assert.Contains(t, out, "CURATED")
	assert.Contains(t, out, "Definition text.")
}

func TestView_ContentLoadedTitleOverrides(t *testing.T) {
	v := NewView(nil)
	v.Open("manual_chunk_0001", messages.ViewSearch)

	v.Update(messages.ContentLoaded{Title: "manual_chunk_0001 (manual p.1)", Authority: messages.AuthorityRaw, Content: "x"})

	assert.Equal(t, "manual_chunk_0001 (manual p.1)", v.Title())
	assert.Contains(t, v.View(), "RAW")
}

func TestView_ContentLoadedError(t *testing.T) {
	v := NewView(nil)
	v.Open("topic", messages.ViewTopics)

	v.Update(messages.ContentLoaded{Err: errors.New("not found")})

	assert.False(t, v.Loading())
	assert.EqualError(t, v.Err(), "not found")
	assert.Contains(t, v.View(), "Error: not found")
}

func TestView_EmptyContent(t *testing.T) {
	v := loadedView(t, "", 24)

	assert.Contains(t, v.View(), "(No content)")
}

func TestView_Scrolling(t *testing.T) {
	v := loadedView(t, numberedLines(50), 17)
	visible := v.visibleLines()
	require.Equal(t, 10, visible)

	v.Update(tea.KeyMsg{Type: tea.KeyDown})
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 2, v.scrollOffset)

	v.Update(tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, 12, v.scrollOffset)

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, 40, v.scrollOffset)
	assert.Contains(t, v.View(), "line 50")
	assert.Contains(t, v.View(), "[100%]")

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 40, v.scrollOffset, "cannot scroll past the end")

	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, v.scrollOffset)
	v.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, v.scrollOffset)
	assert.NotContains(t, v.View(), "line 11\n")
}

func TestView_WrapsLongLines(t *testing.T) {
	v := loadedView(t, strings.Repeat("x", 200), 24)

	assert.Len(t, v.lines, 3)
	assert.Equal(t, 76, len([]rune(v.lines[0])))
}

func TestView_EscReturnsToOpener(t *testing.T) {
	v := loadedView(t, "x", 24)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewTopics}, cmd())
}
