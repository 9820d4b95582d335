// Package filesystem stores chunk sets and records as plain files.
//
// Chunk sets live one directory per document:
//
//	<chunks>/<document>/<document>_chunk_0001.json
//	<chunks>/<document>/_chunking_metadata.json
//
// Records live at <store>/<key>.md, so curated artifacts end up at
// <store>/<kind>/<slug>.md and drafts under <store>/drafts/.
//
// Every write is a temp file, fsync, then rename, taken under an
// advisory file lock (gofrs/flock) so that several canon processes can
// share one tree. Lock files are kept under a hidden .locks directory.
package filesystem
