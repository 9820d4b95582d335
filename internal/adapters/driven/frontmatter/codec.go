// Package frontmatter encodes artifacts and topics as markdown files with
// YAML front matter. Front matter carries every field; the markdown body is
// the artifact statement, or for topics a rendered dossier that is
// regenerated on every write.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// Ensure Codec implements the interface.
var _ driven.EntityCodec = (*Codec)(nil)

const delimiter = "---\n"

// Codec implements driven.EntityCodec.
type Codec struct{}

// New creates a front matter codec.
func New() *Codec {
	return &Codec{}
}

type citationDoc struct {
	ChunkID   string `yaml:"chunk_id,omitempty"`
	Document  string `yaml:"document,omitempty"`
	Section   string `yaml:"section,omitempty"`
	PageStart int    `yaml:"page_start,omitempty"`
	PageEnd   int    `yaml:"page_end,omitempty"`
	Artifact  string `yaml:"artifact,omitempty"`
}

type revisionDoc struct {
	ID         string    `yaml:"id"`
	Action     string    `yaml:"action"`
	ReviewedBy string    `yaml:"reviewed_by"`
	DraftKey   string    `yaml:"draft_key,omitempty"`
	At         time.Time `yaml:"at"`
}

type artifactDoc struct {
	Kind        string        `yaml:"kind"`
	Name        string        `yaml:"name"`
	Title       string        `yaml:"title,omitempty"`
	Term        string        `yaml:"term,omitempty"`
	Tags        []string      `yaml:"tags,omitempty"`
	Status      string        `yaml:"status"`
	Citations   []citationDoc `yaml:"citations,omitempty"`
	GeneratedBy string        `yaml:"generated_by,omitempty"`
	ReviewedBy  string        `yaml:"reviewed_by,omitempty"`
	CreatedAt   time.Time     `yaml:"created_at,omitempty"`
	LastUpdated time.Time     `yaml:"last_updated,omitempty"`
	History     []revisionDoc `yaml:"history,omitempty"`
}

type entryDoc struct {
	Artifact     string        `yaml:"artifact"`
	Kind         string        `yaml:"kind"`
	Term         string        `yaml:"term,omitempty"`
	Relationship string        `yaml:"relationship,omitempty"`
	Excerpt      string        `yaml:"excerpt,omitempty"`
	Citations    []citationDoc `yaml:"citations,omitempty"`
}

type searchDoc struct {
	Section string `yaml:"section"`
	Query   string `yaml:"query"`
	Matches int    `yaml:"matches"`
}

type topicDoc struct {
	Kind        string                `yaml:"kind"`
	Name        string                `yaml:"name"`
	Slug        string                `yaml:"slug"`
	Status      string                `yaml:"status"`
	Sections    map[string][]entryDoc `yaml:"sections,omitempty"`
	Sources     []citationDoc         `yaml:"sources,omitempty"`
	SearchLog   []searchDoc           `yaml:"search_log,omitempty"`
	GeneratedBy string                `yaml:"generated_by,omitempty"`
	ReviewedBy  string                `yaml:"reviewed_by,omitempty"`
	CreatedAt   time.Time             `yaml:"created_at,omitempty"`
	LastUpdated time.Time             `yaml:"last_updated,omitempty"`
	History     []revisionDoc         `yaml:"history,omitempty"`
}

// EncodeArtifact renders an artifact as front matter plus its body.
func (c *Codec) EncodeArtifact(a *domain.Artifact) ([]byte, error) {
	doc := artifactDoc{
		Kind:        string(a.Kind),
		Name:        a.Name,
		Title:       a.Title,
		Term:        a.Term,
		Tags:        a.Tags,
		Status:      string(a.Status),
		Citations:   fromCitations(a.Citations),
		GeneratedBy: a.GeneratedBy,
		ReviewedBy:  a.ReviewedBy,
		CreatedAt:   a.CreatedAt,
		LastUpdated: a.LastUpdated,
		History:     fromHistory(a.History),
	}
	return encode(doc, a.Body)
}

// DecodeArtifact parses an artifact file.
func (c *Codec) DecodeArtifact(data []byte) (*domain.Artifact, error) {
	var doc artifactDoc
	body, err := decode(data, &doc)
	if err != nil {
		return nil, err
	}
	if doc.Kind == string(domain.KindTopic) {
		return nil, fmt.Errorf("record holds a topic, not an artifact: %w", domain.ErrUnsupportedType)
	}
	return &domain.Artifact{
		Kind:        domain.ArtifactKind(doc.Kind),
		Name:        doc.Name,
		Title:       doc.Title,
		Term:        doc.Term,
		Tags:        doc.Tags,
		Status:      domain.Status(doc.Status),
		Body:        body,
		Citations:   toCitations(doc.Citations),
		GeneratedBy: doc.GeneratedBy,
		ReviewedBy:  doc.ReviewedBy,
		CreatedAt:   doc.CreatedAt,
		LastUpdated: doc.LastUpdated,
		History:     toHistory(doc.History),
	}, nil
}

// EncodeTopic renders a topic as front matter plus a readable dossier.
func (c *Codec) EncodeTopic(t *domain.Topic) ([]byte, error) {
	doc := topicDoc{
		Kind:        domain.KindTopic,
		Name:        t.Name,
		Slug:        t.Slug,
		Status:      string(t.Status),
		Sources:     fromCitations(t.Sources),
		GeneratedBy: t.GeneratedBy,
		ReviewedBy:  t.ReviewedBy,
		CreatedAt:   t.CreatedAt,
		LastUpdated: t.LastUpdated,
		History:     fromHistory(t.History),
	}
	if len(t.Sections) > 0 {
		doc.Sections = make(map[string][]entryDoc, len(t.Sections))
		for section, entries := range t.Sections {
			if len(entries) == 0 {
				continue
			}
			docs := make([]entryDoc, len(entries))
			for i, e := range entries {
				docs[i] = entryDoc{
					Artifact:     e.ArtifactKey,
					Kind:         string(e.Kind),
					Term:         e.Term,
					Relationship: e.Relationship,
					Excerpt:      e.Excerpt,
					Citations:    fromCitations(e.Citations),
				}
			}
			doc.Sections[string(section)] = docs
		}
	}
	for _, s := range t.SearchLog {
		doc.SearchLog = append(doc.SearchLog, searchDoc{Section: string(s.Section), Query: s.Query, Matches: s.Matches})
	}
	return encode(doc, RenderDossier(t))
}

// DecodeTopic parses a topic file. The dossier body is ignored.
func (c *Codec) DecodeTopic(data []byte) (*domain.Topic, error) {
	var doc topicDoc
	if _, err := decode(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != domain.KindTopic {
		return nil, fmt.Errorf("record holds a %q, not a topic: %w", doc.Kind, domain.ErrUnsupportedType)
	}
	t := &domain.Topic{
		Name:        doc.Name,
		Slug:        doc.Slug,
		Status:      domain.Status(doc.Status),
		Sections:    make(map[domain.TopicSection][]domain.TopicEntry, len(doc.Sections)),
		Sources:     toCitations(doc.Sources),
		GeneratedBy: doc.GeneratedBy,
		ReviewedBy:  doc.ReviewedBy,
		CreatedAt:   doc.CreatedAt,
		LastUpdated: doc.LastUpdated,
		History:     toHistory(doc.History),
	}
	for section, docs := range doc.Sections {
		entries := make([]domain.TopicEntry, len(docs))
		for i, e := range docs {
			entries[i] = domain.TopicEntry{
				ArtifactKey:  e.Artifact,
				Kind:         domain.ArtifactKind(e.Kind),
				Term:         e.Term,
				Relationship: e.Relationship,
				Excerpt:      e.Excerpt,
				Citations:    toCitations(e.Citations),
			}
		}
		t.Sections[domain.TopicSection(section)] = entries
	}
	for _, s := range doc.SearchLog {
		t.SearchLog = append(t.SearchLog, domain.SearchLogEntry{
			Section: domain.TopicSection(s.Section), Query: s.Query, Matches: s.Matches,
		})
	}
	return t, nil
}

// KindOf reads only the kind field of an encoded record.
func KindOf(data []byte) (string, error) {
	var doc struct {
		Kind string `yaml:"kind"`
	}
	if _, err := decode(data, &doc); err != nil {
		return "", err
	}
	return doc.Kind, nil
}

func encode(doc any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	buf.WriteString(delimiter)
	buf.WriteString("\n")
	buf.WriteString(body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

func decode(data []byte, out any) (string, error) {
	text := string(data)
	if !strings.HasPrefix(text, delimiter) {
		return "", fmt.Errorf("missing front matter: %w", domain.ErrInvalidInput)
	}
	rest := text[len(delimiter):]
	end := strings.Index(rest, "\n"+delimiter)
	var head, body string
	switch {
	case strings.HasPrefix(rest, delimiter):
		body = rest[len(delimiter):]
	case end >= 0:
		head = rest[:end+1]
		body = rest[end+1+len(delimiter):]
	default:
		return "", fmt.Errorf("unterminated front matter: %w", domain.ErrInvalidInput)
	}
	if err := yaml.Unmarshal([]byte(head), out); err != nil {
		return "", fmt.Errorf("parse front matter: %v: %w", err, domain.ErrInvalidInput)
	}
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimSuffix(body, "\n")
	return body, nil
}

func fromCitations(in []domain.Citation) []citationDoc {
	if len(in) == 0 {
		return nil
	}
	out := make([]citationDoc, len(in))
	for i, c := range in {
		out[i] = citationDoc{
			ChunkID:   c.ChunkID,
			Document:  c.Document,
			Section:   c.Section,
			PageStart: c.PageStart,
			PageEnd:   c.PageEnd,
			Artifact:  c.ArtifactKey,
		}
	}
	return out
}

func toCitations(in []citationDoc) []domain.Citation {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Citation, len(in))
	for i, c := range in {
		out[i] = domain.Citation{
			ChunkID:     c.ChunkID,
			Document:    c.Document,
			Section:     c.Section,
			PageStart:   c.PageStart,
			PageEnd:     c.PageEnd,
			ArtifactKey: c.Artifact,
		}
	}
	return out
}

func fromHistory(in []domain.Revision) []revisionDoc {
	if len(in) == 0 {
		return nil
	}
	out := make([]revisionDoc, len(in))
	for i, r := range in {
		out[i] = revisionDoc{ID: r.ID, Action: r.Action, ReviewedBy: r.ReviewedBy, DraftKey: r.DraftKey, At: r.At}
	}
	return out
}

func toHistory(in []revisionDoc) []domain.Revision {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Revision, len(in))
	for i, r := range in {
		out[i] = domain.Revision{ID: r.ID, Action: r.Action, ReviewedBy: r.ReviewedBy, DraftKey: r.DraftKey, At: r.At}
	}
	return out
}
