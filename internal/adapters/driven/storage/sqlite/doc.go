// Package sqlite provides a unified SQLite-based implementation of the
// chunk and record stores.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements both store interfaces
// through a single database connection:
//
//   - ChunkStore: chunk sets and per-document chunking stats
//   - RecordStore: drafts and curated entities with revision-guarded writes
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Guarded Writes
//
// CompareAndSwap and Delete are single conditional statements, so a lost
// race is detected by the affected row count without explicit locking.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
