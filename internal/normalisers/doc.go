// Package normalisers turns source files into paginated text.
//
// Each subpackage provides a driven.Extractor for one input layout:
//
//   - pdf: PDF files through pdftotext
//   - pages: directories of extracted page_NNNN.md files
//
// Extractors are registered with a Registry at startup, which picks the
// highest-priority extractor that accepts a source.
package normalisers
