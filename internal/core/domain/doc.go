// Package domain defines the core business entities for Canon.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Paginated text produced by an extractor
//   - Chunk: A bounded, citable slice of a document's text
//   - Citation: A provenance pointer to a chunk, a page span or a curated artifact
//   - Artifact: A typed knowledge statement (DRAFT or CURATED)
//   - Topic: A per-concept dossier assembled from curated artifacts
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
