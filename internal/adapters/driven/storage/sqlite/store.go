package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/canon/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// DatabaseName is the file created inside the data directory.
const DatabaseName = "canon.db"

// Store is a unified SQLite-based storage that provides access to
// the chunk and record store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.canon/store.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".canon", "store")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseName)

	// WAL mode for concurrent readers; foreign keys on every pooled connection
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  time.Now,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = `id, document, project_name, relative_path, section, page_start, page_end,
	raw_text, token_estimate, chunk_index, total_chunks, boundary_forced, carry_len, created_at`

// ReplaceDocument swaps a document's chunk set in one transaction.
func (s *chunkStore) ReplaceDocument(
	ctx context.Context, document string, chunks []domain.Chunk, stats domain.ChunkingStats,
) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteDocument(ctx, tx, document); err != nil {
		return fmt.Errorf("removing previous chunk set: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (name, chunks_created, min_tokens, max_tokens, forced, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, document, stats.ChunksCreated, stats.MinTokens, stats.MaxTokens, stats.Forced, stats.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("saving chunking stats: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		c := &chunks[i]
		if c.SourceDocument != document {
			return fmt.Errorf("chunk %s belongs to %q, not %q: %w", c.ID, c.SourceDocument, document, domain.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, document, c.ProjectName, c.RelativePath, c.Section,
			c.PageStart, c.PageEnd, c.Text, c.TokenEstimate, c.Index, c.Total,
			c.BoundaryForced, c.CarryLen, c.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *chunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE id = ?", id)
	return scanChunk(row)
}

// GetChunks retrieves all chunks for a document in index order.
func (s *chunkStore) GetChunks(ctx context.Context, document string) ([]domain.Chunk, error) {
	if _, err := s.GetStats(ctx, document); err != nil {
		return nil, err
	}
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE document = ? ORDER BY chunk_index", document)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetStats returns the chunking stats recorded with a document's set.
func (s *chunkStore) GetStats(ctx context.Context, document string) (*domain.ChunkingStats, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT name, chunks_created, min_tokens, max_tokens, forced, created_at
		FROM documents WHERE name = ?
	`, document)

	var stats domain.ChunkingStats
	if err := row.Scan(&stats.Document, &stats.ChunksCreated, &stats.MinTokens,
		&stats.MaxTokens, &stats.Forced, &stats.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %s: %w", document, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning chunking stats: %w", err)
	}
	return &stats, nil
}

// ListDocuments returns document names with a chunk set, sorted.
func (s *chunkStore) ListDocuments(ctx context.Context) ([]string, error) {
	return s.store.queryStrings(ctx, "SELECT name FROM documents ORDER BY name")
}

// DeleteDocument removes a document's chunk set.
func (s *chunkStore) DeleteDocument(ctx context.Context, document string) error {
	if err := deleteDocument(ctx, s.store.db, document); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Search narrows candidates in SQL and counts matches in Go. LIKE only
// folds ASCII case, so non-ASCII terms are checked in Go alone.
func (s *chunkStore) Search(
	ctx context.Context, terms []string, opts domain.RawSearchOptions,
) ([]domain.RawSearchResult, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	var where []string
	var args []any
	if opts.Document != "" {
		where = append(where, "document = ?")
		args = append(args, opts.Document)
	}
	for _, term := range terms {
		if !isASCII(term) {
			continue
		}
		where = append(where, `raw_text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(term)+"%")
	}
	query := "SELECT " + chunkColumns + " FROM chunks"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.RawSearchResult
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		if n := domain.CountMatches(chunk.Text, terms); n > 0 {
			results = append(results, domain.RawSearchResult{Chunk: *chunk, Matches: n})
			if opts.Limit > 0 && len(results) == opts.Limit {
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return results, nil
}

// Count returns the total number of chunks.
func (s *chunkStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Clear removes every chunk set.
func (s *chunkStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks; DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Get retrieves a record by key.
func (s *recordStore) Get(ctx context.Context, key string) (*domain.Record, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT key, data, revision, updated_at FROM records WHERE key = ?", key)

	var rec domain.Record
	if err := row.Scan(&rec.Key, &rec.Data, &rec.Revision, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return &rec, nil
}

// List returns keys starting with prefix, sorted.
func (s *recordStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.store.queryStrings(ctx,
		"SELECT key FROM records WHERE substr(key, 1, length(?1)) = ?1 ORDER BY key", prefix)
}

// CompareAndSwap writes data with one conditional statement: an insert
// that ignores existing keys, or an update keyed on the expected revision.
func (s *recordStore) CompareAndSwap(ctx context.Context, key, expected string, data []byte) (string, error) {
	rev := domain.RevisionOf(data)
	now := s.store.now().UTC()

	var res sql.Result
	var err error
	if expected == domain.NoRevision {
		res, err = s.store.db.ExecContext(ctx, `
			INSERT INTO records (key, data, revision, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, data, rev, now)
	} else {
		res, err = s.store.db.ExecContext(ctx, `
			UPDATE records SET data = ?, revision = ?, updated_at = ?
			WHERE key = ? AND revision = ?
		`, data, rev, now, key, expected)
	}
	if err != nil {
		return "", fmt.Errorf("writing record %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("writing record %s: %w", key, err)
	}
	if n == 0 {
		return "", fmt.Errorf("%s: %w", key, domain.ErrConflict)
	}
	return rev, nil
}

// Delete removes key if its revision equals expected.
func (s *recordStore) Delete(ctx context.Context, key, expected string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM records WHERE key = ? AND revision = ?", key, expected)
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, key); err != nil {
		return err
	}
	return fmt.Errorf("%s: %w", key, domain.ErrConflict)
}

// ==================== Helper Functions ====================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// deleteDocument removes a chunk set and its stats row.
func deleteDocument(ctx context.Context, db execer, document string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM chunks WHERE document = ?", document); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, "DELETE FROM documents WHERE name = ?", document)
	return err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanChunk scans one chunk row.
func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var c domain.Chunk
	if err := row.Scan(&c.ID, &c.SourceDocument, &c.ProjectName, &c.RelativePath, &c.Section,
		&c.PageStart, &c.PageEnd, &c.Text, &c.TokenEstimate, &c.Index, &c.Total,
		&c.BoundaryForced, &c.CarryLen, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	return &c, nil
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating: %w", err)
	}
	return out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// escapeLike escapes LIKE wildcards with a backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
