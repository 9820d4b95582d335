// Package pages reads and writes extracted page directories.
//
// A page directory holds one markdown file per source page:
//
//	<dir>/<document>/page_0001.md
//
// Each file starts with a metadata header that is stripped on read:
//
//	# <document> - Page 1
//
//	> Extracted from: <document>
//	> Page: 1
//	> Extraction: Mechanical (no LLM)
//
//	---
package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// pageFile matches page file names and captures the page number.
var pageFile = regexp.MustCompile(`^page_(\d+)\.md$`)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor reads documents from page directories.
type Extractor struct {
	dir string
	now func() time.Time
}

// New creates a page extractor. dir is the extracted output directory
// consulted for sources that are not page directories themselves; it may
// be empty.
func New(dir string) *Extractor {
	return &Extractor{dir: dir, now: time.Now}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "pages"
}

// Priority returns the selection priority. Existing page directories win
// over re-running PDF extraction.
func (e *Extractor) Priority() int {
	return 60
}

// CanExtract reports whether the source is a page directory or already has
// one under the extracted directory.
func (e *Extractor) CanExtract(src domain.SourceFile) bool {
	return e.pageDir(src) != ""
}

func (e *Extractor) pageDir(src domain.SourceFile) string {
	if hasPages(src.Path) {
		return src.Path
	}
	if e.dir != "" && src.Name != "" {
		candidate := filepath.Join(e.dir, src.Name)
		if hasPages(candidate) {
			return candidate
		}
	}
	return ""
}

// Extract reads every page file of the source in page order.
func (e *Extractor) Extract(ctx context.Context, src domain.SourceFile) (*domain.Document, error) {
	dir := e.pageDir(src)
	if dir == "" {
		return nil, fmt.Errorf("%w: %s has no page files", domain.ErrInputUnreadable, src.Name)
	}
	files, err := listPages(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInputUnreadable, err)
	}

	doc := &domain.Document{
		Name:         src.Name,
		ProjectName:  src.ProjectName,
		RelativePath: src.RelativePath,
		URI:          src.Path,
		ExtractedAt:  e.now().UTC(),
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInputUnreadable, err)
		}
		doc.Pages = append(doc.Pages, domain.Page{Number: f.number, Text: StripHeader(string(data))})
	}
	return doc, nil
}

type page struct {
	number int
	path   string
}

func listPages(dir string) ([]page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageFile.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		out = append(out, page{number: n, path: filepath.Join(dir, entry.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].number < out[j].number })
	return out, nil
}

func hasPages(dir string) bool {
	pages, err := listPages(dir)
	return err == nil && len(pages) > 0
}

// StripHeader removes the leading metadata header of a page file: the
// title line, quoted metadata lines, the rule and surrounding blank lines.
// Body lines are returned untouched.
func StripHeader(content string) string {
	lines := strings.SplitAfter(content, "\n")
	i := 0
	if i < len(lines) && strings.HasPrefix(lines[i], "# ") && strings.Contains(lines[i], " - Page ") {
		i++
	} else {
		return content
	}
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, ">") {
			i++
			continue
		}
		if line == "---" {
			i++
			for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
				i++
			}
		}
		break
	}
	return strings.Join(lines[i:], "")
}

// Header renders the metadata header written before a page body.
func Header(document string, number int) string {
	return fmt.Sprintf("# %s - Page %d\n\n> Extracted from: %s\n> Page: %d\n> Extraction: Mechanical (no LLM)\n\n---\n\n",
		document, number, document, number)
}

// Write stores doc as a page directory under dir and returns its path.
// Existing page files of the document are replaced.
func Write(dir string, doc *domain.Document) (string, error) {
	out := filepath.Join(dir, doc.Name)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("create page directory: %w", err)
	}
	stale, err := listPages(out)
	if err != nil {
		return "", err
	}
	for _, p := range stale {
		if err := os.Remove(p.path); err != nil {
			return "", fmt.Errorf("remove stale page: %w", err)
		}
	}
	for _, p := range doc.Pages {
		name := filepath.Join(out, fmt.Sprintf("page_%04d.md", p.Number))
		content := Header(doc.Name, p.Number) + p.Text
		if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write page %d: %w", p.Number, err)
		}
	}
	return out, nil
}
