package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	lockDir       = ".locks"
	tempMarker    = ".tmp-"
	lockRetry     = 10 * time.Millisecond
	dirPerm       = 0o755
	filePerm      = 0o644
	lockExtension = ".lock"
)

// locker hands out advisory locks named after a logical resource.
type locker struct {
	dir string
}

func (l locker) path(name string) string {
	safe := strings.NewReplacer("/", "__", "\\", "__").Replace(name)
	return filepath.Join(l.dir, lockDir, safe+lockExtension)
}

// lock takes an exclusive lock on name and returns its release func.
func (l locker) lock(ctx context.Context, name string) (func(), error) {
	return l.acquire(ctx, name, false)
}

// rlock takes a shared lock on name and returns its release func.
func (l locker) rlock(ctx context.Context, name string) (func(), error) {
	return l.acquire(ctx, name, true)
}

func (l locker) acquire(ctx context.Context, name string, shared bool) (func(), error) {
	path := l.path(name)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(path)
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLockContext(ctx, lockRetry)
	} else {
		ok, err = fl.TryLockContext(ctx, lockRetry)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", name, ctx.Err())
	}
	return func() { _ = fl.Unlock() }, nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := filepath.Join(dir, "."+filepath.Base(path)+tempMarker+uuid.NewString())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes a directory entry change. Best effort: not every
// platform supports fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// hidden reports whether a directory entry belongs to the store itself.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
