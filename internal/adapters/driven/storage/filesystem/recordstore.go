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

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// RecordExtension is appended to every record key on disk.
const RecordExtension = ".md"

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore keeps each record as <dir>/<key>.md.
type RecordStore struct {
	dir   string
	locks locker
}

// NewRecordStore creates a record store rooted at dir.
func NewRecordStore(dir string) (*RecordStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &RecordStore{dir: dir, locks: locker{dir: dir}}, nil
}

// Dir returns the store root.
func (s *RecordStore) Dir() string {
	return s.dir
}

// file maps a key to its path, rejecting keys that escape the root.
func (s *RecordStore) file(key string) (string, error) {
	clean := path.Clean(key)
	if key == "" || clean != key || strings.HasPrefix(clean, "../") || clean == ".." ||
		path.IsAbs(clean) || strings.Contains(key, `\`) {
		return "", fmt.Errorf("record key %q: %w", key, domain.ErrInvalidInput)
	}
	for _, part := range strings.Split(clean, "/") {
		if hidden(part) {
			return "", fmt.Errorf("record key %q: %w", key, domain.ErrInvalidInput)
		}
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)+RecordExtension), nil
}

// Get reads the record at key.
func (s *RecordStore) Get(ctx context.Context, key string) (*domain.Record, error) {
	p, err := s.file(key)
	if err != nil {
		return nil, err
	}
	release, err := s.locks.rlock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()
	return readRecord(key, p)
}

func readRecord(key, p string) (*domain.Record, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return &domain.Record{
		Key:       key,
		Data:      data,
		Revision:  domain.RevisionOf(data),
		UpdatedAt: info.ModTime().UTC(),
	}, nil
}

// List walks the tree and returns keys starting with prefix, sorted.
func (s *RecordStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == s.dir {
			return nil
		}
		if hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), RecordExtension) {
			return nil
		}
		rel, err := filepath.Rel(s.dir, p)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), RecordExtension)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk store: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

// CompareAndSwap rewrites the file under the key's exclusive lock when the
// revision on disk still equals expected.
func (s *RecordStore) CompareAndSwap(ctx context.Context, key, expected string, data []byte) (string, error) {
	p, err := s.file(key)
	if err != nil {
		return "", err
	}
	release, err := s.locks.lock(ctx, key)
	if err != nil {
		return "", err
	}
	defer release()

	current, err := s.revision(key, p)
	if err != nil {
		return "", err
	}
	if current != expected {
		return "", fmt.Errorf("%s: %w", key, domain.ErrConflict)
	}
	if err := writeFileAtomic(p, data); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	return domain.RevisionOf(data), nil
}

// Delete removes the file when its revision equals expected.
func (s *RecordStore) Delete(ctx context.Context, key, expected string) error {
	p, err := s.file(key)
	if err != nil {
		return err
	}
	release, err := s.locks.lock(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	current, err := s.revision(key, p)
	if err != nil {
		return err
	}
	if current == domain.NoRevision {
		return fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}
	if current != expected {
		return fmt.Errorf("%s: %w", key, domain.ErrConflict)
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	syncDir(filepath.Dir(p))
	return nil
}

func (s *RecordStore) revision(key, p string) (string, error) {
	rec, err := readRecord(key, p)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NoRevision, nil
	}
	if err != nil {
		return "", err
	}
	return rec.Revision, nil
}
