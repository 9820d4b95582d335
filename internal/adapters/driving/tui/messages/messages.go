// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/canon/internal/core/domain"
)

// SearchCompleted carries raw chunk search results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.RawSearchResult
	Err     error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the raw chunk search view.
	ViewSearch
	// ViewTopics lists curated topics.
	ViewTopics
	// ViewDrafts lists pending drafts.
	ViewDrafts
	// ViewContent shows one chunk, artifact or dossier.
	ViewContent
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewTopics:
		return "topics"
	case ViewDrafts:
		return "drafts"
	case ViewContent:
		return "content"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Authority classifies what the content view is showing. Only curated
// entities are authoritative.
type Authority string

const (
	AuthorityCurated Authority = "CURATED"
	AuthorityDraft   Authority = "DRAFT"
	AuthorityRaw     Authority = "RAW"
)

// EntriesLoaded carries the keys or names listed by an entries view.
type EntriesLoaded struct {
	View    ViewType
	Entries []string
	Err     error
}

// EntrySelected asks the app to open a topic name or record key.
type EntrySelected struct {
	From  ViewType
	Entry string
}

// ChunkSelected asks the app to show a raw chunk.
type ChunkSelected struct {
	Chunk domain.Chunk
}

// ContentLoaded carries rendered text for the content view.
type ContentLoaded struct {
	Title     string
	Authority Authority
	Content   string
	Err       error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
