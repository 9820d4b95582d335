package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/canon/internal/adapters/driven/frontmatter"
	"github.com/custodia-labs/canon/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for canon resources.
	uriScheme = "canon://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing curated topics.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "topics",
		Name:        "topics",
		Description: "Names of all CURATED topics",
		MIMEType:    "application/json",
	}, s.handleTopicsResource)

	// Template for curated topic dossiers.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "topics/{slug}",
		Name:        "topic-dossier",
		Description: "Dossier of a CURATED topic",
		MIMEType:    "text/markdown",
	}, s.handleTopicResource)

	if s.ports.Curation != nil {
		// Template for curated artifacts.
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "curated/{kind}/{slug}",
			Name:        "curated-artifact",
			Description: "A CURATED definition, rule, invariant, procedure, contradiction or open question",
			MIMEType:    "text/markdown",
		}, s.handleArtifactResource)
	}
}

// handleTopicsResource returns the curated topic names.
func (s *Server) handleTopicsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	topics, err := s.ports.Lookup.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	if topics == nil {
		topics = []string{}
	}

	data, err := json.MarshalIndent(topics, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling topics: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleTopicResource returns a curated topic dossier. Drafts are never served.
func (s *Server) handleTopicResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	slug := extractTopicSlug(req.Params.URI)
	if slug == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	res, err := s.ports.Lookup.Lookup(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("looking up topic: %w", err)
	}
	if !res.Found() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     frontmatter.RenderDossier(res.Topic),
		}},
	}, nil
}

// handleArtifactResource returns a curated artifact as markdown.
func (s *Server) handleArtifactResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	key := extractArtifactKey(req.Params.URI)
	if key == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	artifact, err := s.ports.Curation.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	if !artifact.IsCurated() {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     renderArtifact(artifact),
		}},
	}, nil
}

func renderArtifact(a *domain.Artifact) string {
	var b strings.Builder
	title := a.Title
	if title == "" {
		title = a.Term
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Kind: %s\nTerm: %s\nStatus: %s\nReviewed by: %s\n\n", a.Kind, a.Term, a.Status, a.ReviewedBy)
	b.WriteString(strings.TrimSpace(a.Body))
	b.WriteString("\n")
	if len(a.Citations) > 0 {
		b.WriteString("\n## Citations\n\n")
		for _, c := range a.Citations {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	return b.String()
}

// extractTopicSlug extracts the slug from a URI like canon://topics/{slug}.
func extractTopicSlug(uri string) string {
	const prefix = uriScheme + "topics/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	slug := strings.TrimPrefix(uri, prefix)
	if strings.Contains(slug, "/") {
		return ""
	}
	return slug
}

// extractArtifactKey extracts "<kind>/<slug>" from a URI like
// canon://curated/{kind}/{slug}. Unknown kinds are rejected.
func extractArtifactKey(uri string) string {
	const prefix = uriScheme + "curated/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	kind, slug, ok := strings.Cut(strings.TrimPrefix(uri, prefix), "/")
	if !ok || slug == "" || strings.Contains(slug, "/") || !domain.ArtifactKind(kind).IsValid() {
		return ""
	}
	return domain.CuratedKey(kind, slug)
}
