package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// MetadataFile is the per-document chunking summary written with each set.
const MetadataFile = "_chunking_metadata.json"

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore keeps one directory of chunk JSON files per document.
type ChunkStore struct {
	dir   string
	locks locker
}

// NewChunkStore creates a chunk store rooted at dir.
func NewChunkStore(dir string) (*ChunkStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create chunks directory: %w", err)
	}
	return &ChunkStore{dir: dir, locks: locker{dir: dir}}, nil
}

// Dir returns the chunks root.
func (s *ChunkStore) Dir() string {
	return s.dir
}

// chunkFile is the on-disk chunk layout.
type chunkFile struct {
	ID             string    `json:"id"`
	ProjectName    string    `json:"project_name,omitempty"`
	SourceDocument string    `json:"source_document"`
	RelativePath   string    `json:"relative_path,omitempty"`
	Section        string    `json:"section,omitempty"`
	PageStart      int       `json:"page_start"`
	PageEnd        int       `json:"page_end"`
	RawText        string    `json:"raw_text"`
	TokenEstimate  int       `json:"token_count_estimate"`
	ChunkIndex     int       `json:"chunk_index"`
	TotalChunks    int       `json:"total_chunks"`
	CreatedAt      time.Time `json:"created_at"`
	BoundaryForced bool      `json:"boundary_forced,omitempty"`
	CarryLen       int       `json:"carry_len,omitempty"`
}

// metadataFile is the on-disk chunking summary.
type metadataFile struct {
	SourceDocument string     `json:"source_document"`
	ProcessingTime time.Time  `json:"processing_time"`
	ChunksCreated  int        `json:"chunks_created"`
	TokenRange     tokenRange `json:"token_range"`
	Forced         int        `json:"forced_boundaries"`
}

type tokenRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func toFile(c *domain.Chunk) chunkFile {
	return chunkFile{
		ID:             c.ID,
		ProjectName:    c.ProjectName,
		SourceDocument: c.SourceDocument,
		RelativePath:   c.RelativePath,
		Section:        c.Section,
		PageStart:      c.PageStart,
		PageEnd:        c.PageEnd,
		RawText:        c.Text,
		TokenEstimate:  c.TokenEstimate,
		ChunkIndex:     c.Index,
		TotalChunks:    c.Total,
		CreatedAt:      c.CreatedAt,
		BoundaryForced: c.BoundaryForced,
		CarryLen:       c.CarryLen,
	}
}

func (f *chunkFile) chunk() domain.Chunk {
	return domain.Chunk{
		ID:             f.ID,
		SourceDocument: f.SourceDocument,
		ProjectName:    f.ProjectName,
		RelativePath:   f.RelativePath,
		Section:        f.Section,
		PageStart:      f.PageStart,
		PageEnd:        f.PageEnd,
		Text:           f.RawText,
		TokenEstimate:  f.TokenEstimate,
		Index:          f.ChunkIndex,
		Total:          f.TotalChunks,
		CreatedAt:      f.CreatedAt,
		BoundaryForced: f.BoundaryForced,
		CarryLen:       f.CarryLen,
	}
}

func validDocument(document string) error {
	if document == "" || hidden(document) || strings.ContainsAny(document, `/\`) {
		return fmt.Errorf("document name %q: %w", document, domain.ErrInvalidInput)
	}
	return nil
}

// ReplaceDocument stages the new set in a hidden directory and swaps it in
// under the document's exclusive lock.
func (s *ChunkStore) ReplaceDocument(
	ctx context.Context, document string, chunks []domain.Chunk, stats domain.ChunkingStats,
) error {
	if err := validDocument(document); err != nil {
		return err
	}
	for i := range chunks {
		if chunks[i].SourceDocument != document {
			return fmt.Errorf("chunk %s belongs to %q, not %q: %w",
				chunks[i].ID, chunks[i].SourceDocument, document, domain.ErrInvalidInput)
		}
	}

	staging := filepath.Join(s.dir, "."+document+tempMarker+uuid.NewString())
	if err := s.stage(staging, chunks, stats); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}

	release, err := s.locks.lock(ctx, document)
	if err != nil {
		_ = os.RemoveAll(staging)
		return err
	}
	defer release()

	target := filepath.Join(s.dir, document)
	retired := ""
	if _, err := os.Stat(target); err == nil {
		retired = filepath.Join(s.dir, "."+document+".old-"+uuid.NewString())
		if err := os.Rename(target, retired); err != nil {
			_ = os.RemoveAll(staging)
			return fmt.Errorf("retire chunk set: %w", err)
		}
	}
	if err := os.Rename(staging, target); err != nil {
		if retired != "" {
			_ = os.Rename(retired, target)
		}
		_ = os.RemoveAll(staging)
		return fmt.Errorf("install chunk set: %w", err)
	}
	syncDir(s.dir)
	if retired != "" {
		_ = os.RemoveAll(retired)
	}
	return nil
}

func (s *ChunkStore) stage(dir string, chunks []domain.Chunk, stats domain.ChunkingStats) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	for i := range chunks {
		data, err := json.MarshalIndent(toFile(&chunks[i]), "", "  ")
		if err != nil {
			return fmt.Errorf("encode chunk %s: %w", chunks[i].ID, err)
		}
		if err := writeFileAtomic(filepath.Join(dir, chunks[i].ID+".json"), data); err != nil {
			return err
		}
	}
	meta := metadataFile{
		SourceDocument: stats.Document,
		ProcessingTime: stats.CreatedAt,
		ChunksCreated:  stats.ChunksCreated,
		TokenRange:     tokenRange{Min: stats.MinTokens, Max: stats.MaxTokens},
		Forced:         stats.Forced,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode chunking metadata: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, MetadataFile), data)
}

// GetChunk retrieves a chunk by ID.
func (s *ChunkStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	cut := strings.LastIndex(id, "_chunk_")
	if cut <= 0 {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	document := id[:cut]
	if validDocument(document) != nil {
		return nil, fmt.Errorf("chunk %s: %w", id, domain.ErrNotFound)
	}
	release, err := s.locks.rlock(ctx, document)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := readChunk(filepath.Join(s.dir, document, id+".json"))
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", id, err)
	}
	return c, nil
}

// GetChunks returns a document's chunks in index order.
func (s *ChunkStore) GetChunks(ctx context.Context, document string) ([]domain.Chunk, error) {
	if validDocument(document) != nil {
		return nil, fmt.Errorf("document %s: %w", document, domain.ErrNotFound)
	}
	release, err := s.locks.rlock(ctx, document)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.readSet(document)
}

func (s *ChunkStore) readSet(document string) ([]domain.Chunk, error) {
	dir := filepath.Join(s.dir, document)
	if _, err := os.Stat(filepath.Join(dir, MetadataFile)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", document, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("document %s: %w", document, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	chunks := make([]domain.Chunk, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isChunkFile(document, e.Name()) {
			continue
		}
		c, err := readChunk(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		chunks = append(chunks, *c)
	}
	slices.SortFunc(chunks, func(a, b domain.Chunk) int { return a.Index - b.Index })
	return chunks, nil
}

// isChunkFile reports whether name is "<document>_chunk_<digits>.json".
// Names are compared literally; document names may hold glob metacharacters.
func isChunkFile(document, name string) bool {
	rest, ok := strings.CutPrefix(name, document+"_chunk_")
	if !ok {
		return false
	}
	digits, ok := strings.CutSuffix(rest, ".json")
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func readChunk(path string) (*domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var f chunkFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	c := f.chunk()
	return &c, nil
}

// GetStats reads the document's chunking metadata.
func (s *ChunkStore) GetStats(ctx context.Context, document string) (*domain.ChunkingStats, error) {
	if validDocument(document) != nil {
		return nil, fmt.Errorf("document %s: %w", document, domain.ErrNotFound)
	}
	release, err := s.locks.rlock(ctx, document)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := os.ReadFile(filepath.Join(s.dir, document, MetadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", document, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read chunking metadata: %w", err)
	}
	var meta metadataFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode chunking metadata: %w", err)
	}
	return &domain.ChunkingStats{
		Document:      document,
		ChunksCreated: meta.ChunksCreated,
		MinTokens:     meta.TokenRange.Min,
		MaxTokens:     meta.TokenRange.Max,
		Forced:        meta.Forced,
		CreatedAt:     meta.ProcessingTime,
	}, nil
}

// ListDocuments returns the documents that have a chunk set, sorted.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read chunks directory: %w", err)
	}
	var docs []string
	for _, e := range entries {
		if !e.IsDir() || validDocument(e.Name()) != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), MetadataFile)); err == nil {
			docs = append(docs, e.Name())
		}
	}
	return docs, nil
}

// DeleteDocument removes a document's chunk set. Absent sets are not an error.
func (s *ChunkStore) DeleteDocument(ctx context.Context, document string) error {
	if err := validDocument(document); err != nil {
		return err
	}
	release, err := s.locks.lock(ctx, document)
	if err != nil {
		return err
	}
	defer release()
	if err := os.RemoveAll(filepath.Join(s.dir, document)); err != nil {
		return fmt.Errorf("delete chunk set: %w", err)
	}
	return nil
}

// Search reads every chunk set and filters it by the query terms.
func (s *ChunkStore) Search(
	ctx context.Context, terms []string, opts domain.RawSearchOptions,
) ([]domain.RawSearchResult, error) {
	docs := []string{opts.Document}
	if opts.Document == "" {
		var err error
		if docs, err = s.ListDocuments(ctx); err != nil {
			return nil, err
		}
	}
	var all []domain.Chunk
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks, err := s.GetChunks(ctx, doc)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}
	return domain.MatchChunks(all, terms, opts), nil
}

// Count returns the total number of chunks.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, doc := range docs {
		stats, err := s.GetStats(ctx, doc)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		n += stats.ChunksCreated
	}
	return n, nil
}

// Clear removes every chunk set.
func (s *ChunkStore) Clear(ctx context.Context) error {
	docs, err := s.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.DeleteDocument(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}
