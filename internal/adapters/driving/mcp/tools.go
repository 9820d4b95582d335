package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/core/domain"
)

// defaultSearchLimit applies when search_raw is called without a limit.
const defaultSearchLimit = 10

// rawNotice is attached to every search_raw response.
const rawNotice = "NON-AUTHORITATIVE: raw document chunks, not curated knowledge. Cite chunk ids, do not treat as fact."

// LookupInput is the input schema for the lookup_topic tool.
type LookupInput struct {
	Name string `json:"name" jsonschema:"the concept name to look up"`
}

// TermMatchOutput is a curated artifact whose term matches a lookup.
type TermMatchOutput struct {
	Key  string `json:"key"`
	Kind string `json:"kind"`
	Term string `json:"term"`
}

// LookupOutput is the output schema for the lookup_topic tool.
type LookupOutput struct {
	Found         bool              `json:"found"`
	Key           string            `json:"key"`
	Dossier       string            `json:"dossier,omitempty"`
	DraftKeys     []string          `json:"draft_keys,omitempty"`
	MatchingTerms []TermMatchOutput `json:"matching_terms,omitempty"`
	RelatedTopics []string          `json:"related_topics,omitempty"`
	Instruction   string            `json:"instruction,omitempty"`
}

// ListTopicsInput is the (empty) input schema for the list_topics tool.
type ListTopicsInput struct{}

// ListTopicsOutput is the output schema for the list_topics tool.
type ListTopicsOutput struct {
	Topics []string `json:"topics"`
	Count  int      `json:"count"`
}

// SearchInput is the input schema for the search_raw tool.
type SearchInput struct {
	Query    string `json:"query" jsonschema:"keywords that must all appear in a chunk"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Document string `json:"document,omitempty" jsonschema:"restrict results to one source document"`
}

// SearchOutput is the output schema for the search_raw tool.
type SearchOutput struct {
	Notice  string               `json:"notice"`
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single raw chunk match.
type SearchResultOutput struct {
	ChunkID       string `json:"chunk_id"`
	Document      string `json:"document"`
	Section       string `json:"section,omitempty"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
	Matches       int    `json:"matches"`
	Text          string `json:"text"`
	Authoritative bool   `json:"authoritative"`
}

// DraftTopicInput is the input schema for the draft_topic tool.
type DraftTopicInput struct {
	Name string `json:"name" jsonschema:"the concept to assemble a draft dossier for"`
}

// DraftTopicOutput is the output schema for the draft_topic tool.
type DraftTopicOutput struct {
	DraftKey   string   `json:"draft_key"`
	Replaced   []string `json:"replaced,omitempty"`
	Unresolved []string `json:"unresolved,omitempty"`
	Dossier    string   `json:"dossier"`
	Notice     string   `json:"notice"`
}

// registerTools registers all tool handlers with the MCP server.
// Promotion is not exposed.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lookup_topic",
		Description: "Look up a CURATED topic dossier by concept name. Returns options when none exists.",
	}, s.handleLookup)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_topics",
		Description: "List the names of all CURATED topics",
	}, s.handleListTopics)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_raw",
		Description: "Keyword search over raw document chunks. Results are NOT authoritative.",
	}, s.handleSearch)

	if s.ports.canDraft() {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "draft_topic",
			Description: "Assemble a DRAFT topic dossier from curated artifacts. Drafts need human promotion.",
		}, s.handleDraftTopic)
	}
}

// handleLookup handles the lookup_topic tool invocation.
func (s *Server) handleLookup(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LookupInput,
) (*mcp.CallToolResult, LookupOutput, error) {
	res, err := s.ports.Lookup.Lookup(ctx, input.Name)
	if err != nil {
		return nil, LookupOutput{}, err
	}

	output := LookupOutput{
		Found:         res.Found(),
		Key:           res.Key,
		DraftKeys:     res.DraftKeys,
		RelatedTopics: res.RelatedTopics,
		Instruction:   res.Instruction,
	}
	if res.Found() {
		output.Dossier = frontmatter.RenderDossier(res.Topic)
	}
	for _, m := range res.MatchingTerms {
		output.MatchingTerms = append(output.MatchingTerms, TermMatchOutput{Key: m.Key, Kind: m.Kind.String(), Term: m.Term})
	}
	return nil, output, nil
}

// handleListTopics handles the list_topics tool invocation.
func (s *Server) handleListTopics(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListTopicsInput,
) (*mcp.CallToolResult, ListTopicsOutput, error) {
	topics, err := s.ports.Lookup.ListTopics(ctx)
	if err != nil {
		return nil, ListTopicsOutput{}, err
	}
	if topics == nil {
		topics = []string{}
	}
	return nil, ListTopicsOutput{Topics: topics, Count: len(topics)}, nil
}

// handleSearch handles the search_raw tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	opts := domain.RawSearchOptions{Limit: limit, Document: input.Document}
	results, err := s.ports.Search.SearchRaw(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Notice:  rawNotice,
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		c := &results[i].Chunk
		output.Results[i] = SearchResultOutput{
			ChunkID:   c.ID,
			Document:  c.SourceDocument,
			Section:   c.Section,
			PageStart: c.PageStart,
			PageEnd:   c.PageEnd,
			Matches:   results[i].Matches,
			Text:      c.Text,
		}
	}
	return nil, output, nil
}

// handleDraftTopic handles the draft_topic tool invocation. The result is
// always a DRAFT.
func (s *Server) handleDraftTopic(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DraftTopicInput,
) (*mcp.CallToolResult, DraftTopicOutput, error) {
	if !s.ports.canDraft() {
		return nil, DraftTopicOutput{}, ErrDraftingDisabled
	}
	topic, err := s.ports.Assembler.Assemble(ctx, input.Name)
	if err != nil {
		return nil, DraftTopicOutput{}, err
	}
	saved, err := s.ports.Curation.SaveTopicDraft(ctx, topic)
	if err != nil {
		return nil, DraftTopicOutput{}, err
	}

	output := DraftTopicOutput{
		DraftKey: saved.Key,
		Replaced: saved.Replaced,
		Dossier:  frontmatter.RenderDossier(topic),
		Notice:   fmt.Sprintf("DRAFT only. A human must run: canon promote --draft %s --reviewer <name>", saved.Key),
	}
	for _, u := range saved.Unresolved {
		output.Unresolved = append(output.Unresolved, u.String())
	}
	return nil, output, nil
}
