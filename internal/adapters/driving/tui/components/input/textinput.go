// Package input provides text input components for the TUI.
package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/canon/internal/adapters/driving/tui/styles"
)

const (
	charLimit    = 256
	minWidth     = 20
	labelPadding = 12
)

// KeywordInput wraps a bubbles textinput for keyword queries.
type KeywordInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
	width     int
}

// NewKeywordInput creates a focused keyword input labelled label.
func NewKeywordInput(s *styles.Styles, label string) *KeywordInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "keywords, all must match..."
	ti.Focus()
	ti.CharLimit = charLimit
	ti.Width = 50

	return &KeywordInput{
		textinput: ti,
		styles:    s,
		label:     label,
		width:     50,
	}
}

// Init initialises the input.
func (k *KeywordInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (k *KeywordInput) Update(msg tea.Msg) (*KeywordInput, tea.Cmd) {
	var cmd tea.Cmd
	k.textinput, cmd = k.textinput.Update(msg)
	return k, cmd
}

// View renders the input with its label.
func (k *KeywordInput) View() string {
	label := k.styles.Title.Render(k.label + ": ")
	field := k.styles.InputField.Render(k.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the query with surrounding whitespace removed.
func (k *KeywordInput) Value() string {
	return strings.TrimSpace(k.textinput.Value())
}

// SetValue sets the input value.
func (k *KeywordInput) SetValue(value string) {
	k.textinput.SetValue(value)
}

// Focus sets focus on the input.
func (k *KeywordInput) Focus() tea.Cmd {
	return k.textinput.Focus()
}

// Blur removes focus from the input.
func (k *KeywordInput) Blur() {
	k.textinput.Blur()
}

// Focused returns whether the input is focused.
func (k *KeywordInput) Focused() bool {
	return k.textinput.Focused()
}

// SetWidth sets the width of the input, leaving room for the label.
func (k *KeywordInput) SetWidth(width int) {
	k.width = width
	k.textinput.Width = max(width-labelPadding, minWidth)
}

// Width returns the current width.
func (k *KeywordInput) Width() int {
	return k.width
}

// Reset clears the input.
func (k *KeywordInput) Reset() {
	k.textinput.Reset()
}
