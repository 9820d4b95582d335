// Package filesystem discovers source documents under a local directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/logger"
)

// DefaultDebounce is how long Watch waits for a burst of writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// ErrClosed is returned by operations on a closed connector.
var ErrClosed = errors.New("connector closed")

// Ensure Connector implements the interface.
var _ driven.SourceConnector = (*Connector)(nil)

// Connector lists and watches sources matching doublestar include globs.
// A pattern may match files (PDFs) or directories (extracted page sets).
type Connector struct {
	root     string
	include  []string
	debounce time.Duration

	mu       sync.Mutex
	closed   bool
	watchers []*fsnotify.Watcher
}

// Option configures a Connector.
type Option func(*Connector)

// WithDebounce sets the Watch debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Connector) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// New creates a connector rooted at root. Patterns are relative to root
// and use forward slashes.
func New(root string, include []string, opts ...Option) *Connector {
	c := &Connector{
		root:     root,
		include:  slices.Clone(include),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Root returns the sources root directory.
func (c *Connector) Root() string {
	return c.root
}

// Validate checks that the root exists and is a readable directory.
func (c *Connector) Validate(_ context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path %s is not a directory: %w", c.root, domain.ErrInvalidInput)
	}
	if _, err := os.ReadDir(c.root); err != nil {
		return fmt.Errorf("root path not readable: %w", err)
	}
	for _, pattern := range c.include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("include pattern %q: %w", pattern, domain.ErrInvalidInput)
		}
	}
	return nil
}

// List returns every source matching an include pattern, sorted by
// relative path. Hidden entries are skipped. When two sources share a
// document name the first one wins and the other is logged.
func (c *Connector) List(ctx context.Context) ([]domain.SourceFile, error) {
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}
	fsys := os.DirFS(c.root)
	seen := make(map[string]bool)
	var rels []string
	for _, pattern := range c.include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if isHidden(rel) || seen[rel] {
				continue
			}
			seen[rel] = true
			rels = append(rels, rel)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	slices.Sort(rels)

	names := make(map[string]string)
	files := make([]domain.SourceFile, 0, len(rels))
	for _, rel := range rels {
		src := c.sourceFile(rel)
		if first, dup := names[src.Name]; dup {
			logger.Warn("skipping %s: document name %q already used by %s", rel, src.Name, first)
			continue
		}
		names[src.Name] = rel
		files = append(files, src)
	}
	return files, nil
}

// sourceFile derives document provenance from a slash-separated path
// relative to the root.
func (c *Connector) sourceFile(rel string) domain.SourceFile {
	base := path.Base(rel)
	name := strings.TrimSuffix(base, path.Ext(base))
	if name == "" {
		name = base
	}
	src := domain.SourceFile{
		Path:         filepath.Join(c.root, filepath.FromSlash(rel)),
		Name:         name,
		RelativePath: rel,
	}
	if dir, _, nested := strings.Cut(rel, "/"); nested {
		src.ProjectName = dir
	}
	return src
}

// matches reports whether rel, or the directory holding it, is a source.
// A change to a page file inside a matched directory reports the directory.
func (c *Connector) matches(rel string) (string, bool) {
	for _, candidate := range []string{rel, path.Dir(rel)} {
		if candidate == "." || isHidden(candidate) {
			continue
		}
		for _, pattern := range c.include {
			if ok, _ := doublestar.Match(pattern, candidate); ok {
				return candidate, true
			}
		}
	}
	return "", false
}

// Watch emits debounced source changes until ctx is done, then closes the
// channel. New directories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.SourceChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addRecursive(w, c.root); err != nil {
		_ = w.Close()
		return nil, err
	}
	c.watchers = append(c.watchers, w)

	out := make(chan domain.SourceChange, 16)
	go c.run(ctx, w, out)
	return out, nil
}

func (c *Connector) run(ctx context.Context, w *fsnotify.Watcher, out chan<- domain.SourceChange) {
	defer close(out)
	defer c.release(w)

	pending := make(map[string]bool)
	timer := time.NewTimer(c.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !isHidden(filepath.Base(event.Name)) {
					if err := addRecursive(w, event.Name); err != nil {
						logger.Warn("watch %s: %v", event.Name, err)
					}
				}
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			rel, err := filepath.Rel(c.root, event.Name)
			if err != nil {
				continue
			}
			if src, ok := c.matches(filepath.ToSlash(rel)); ok {
				pending[src] = true
				timer.Reset(c.debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error: %v", err)

		case <-timer.C:
			for _, rel := range sortedKeys(pending) {
				change := domain.SourceChange{File: c.sourceFile(rel)}
				if _, err := os.Stat(change.File.Path); errors.Is(err, fs.ErrNotExist) {
					change.Removed = true
				}
				logger.Debug("source changed: %s (removed=%t)", rel, change.Removed)
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
			clear(pending)
		}
	}
}

func (c *Connector) release(w *fsnotify.Watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.Index(c.watchers, w); i >= 0 {
		c.watchers = slices.Delete(c.watchers, i, i+1)
		_ = w.Close()
	}
}

// Close stops every active watch. Close is idempotent.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	var errs []error
	for _, w := range c.watchers {
		errs = append(errs, w.Close())
	}
	c.watchers = nil
	return errors.Join(errs...)
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// isHidden reports whether any component of a slash path starts with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
