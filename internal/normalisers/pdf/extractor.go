// Package pdf extracts paginated text from PDF files using pdftotext.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/logger"
	"github.com/custodia-labs/canon/internal/normalisers/pages"
)

// DefaultTool is the pdftotext binary looked up on PATH.
const DefaultTool = "pdftotext"

// pageBreak separates pages in pdftotext output.
const pageBreak = "\f"

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor runs `pdftotext -layout <file> -` and splits pages on form feeds.
type Extractor struct {
	tool     string
	runner   CommandRunner
	lookPath bool
	pagesDir string
	now      func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTool sets the pdftotext binary name or path.
func WithTool(tool string) Option {
	return func(e *Extractor) {
		if tool != "" {
			e.tool = tool
		}
	}
}

// WithRunner replaces the command runner. The tool is not looked up on
// PATH when a runner is injected.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) {
		e.runner = r
		e.lookPath = false
	}
}

// WithPageOutput writes every extracted document as a page directory
// under dir so later runs can skip pdftotext.
func WithPageOutput(dir string) Option {
	return func(e *Extractor) {
		e.pagesDir = dir
	}
}

// New creates a PDF extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		tool:     DefaultTool,
		runner:   execRunner{},
		lookPath: true,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return "pdf"
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// CanExtract reports whether the source is a PDF file.
func (e *Extractor) CanExtract(src domain.SourceFile) bool {
	return strings.EqualFold(filepath.Ext(src.Path), ".pdf")
}

// Extract runs pdftotext over the source. Any failure is fatal for this
// document only and wraps domain.ErrInputUnreadable.
func (e *Extractor) Extract(ctx context.Context, src domain.SourceFile) (*domain.Document, error) {
	tool := e.tool
	if e.lookPath {
		path, err := exec.LookPath(e.tool)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInputUnreadable, ErrPDFToolNotFound)
		}
		tool = path
	}

	out, err := e.runner.Run(ctx, tool, "-layout", src.Path, "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: pdftotext failed for %s: %w", domain.ErrInputUnreadable, src.Name, err)
	}

	doc := &domain.Document{
		Name:         src.Name,
		ProjectName:  src.ProjectName,
		RelativePath: src.RelativePath,
		URI:          src.Path,
		Pages:        SplitPages(string(out)),
		ExtractedAt:  e.now().UTC(),
	}
	if doc.Text() == "" {
		logger.Warn("%s: no extractable text (scanned PDF?)", src.Name)
	}

	if e.pagesDir != "" {
		dir, err := pages.Write(e.pagesDir, doc)
		if err != nil {
			return nil, fmt.Errorf("write pages for %s: %w", src.Name, err)
		}
		logger.Debug("%s: wrote %d pages to %s", src.Name, len(doc.Pages), dir)
	}
	return doc, nil
}

// SplitPages splits pdftotext output into 1-based pages. The trailing form
// feed pdftotext emits after the last page does not start a new page.
// Empty pages keep their number so later page numbers stay accurate.
func SplitPages(out string) []domain.Page {
	if out == "" {
		return nil
	}
	parts := strings.Split(out, pageBreak)
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	result := make([]domain.Page, len(parts))
	for i, p := range parts {
		result[i] = domain.Page{Number: i + 1, Text: p}
	}
	return result
}

// CheckAvailable reports whether pdftotext is on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(DefaultTool); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform-specific install hints for pdftotext.
func InstallInstructions() string {
	return `pdftotext is required for PDF extraction. Install poppler:

  macOS:          brew install poppler
  Debian/Ubuntu:  sudo apt install poppler-utils
  Fedora:         sudo dnf install poppler-utils
  Arch:           sudo pacman -S poppler`
}
