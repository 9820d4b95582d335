// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SourceConnector: Discovers and watches source files
//   - Extractor: Turns a source file into paginated text
//   - ExtractorRegistry: Selects the extractor for a source
//   - PostProcessor: Chunking and audit stages
//   - ChunkStore: Chunk set persistence
//   - RecordStore: Guarded persistence for drafts and curated entities
//   - EntityCodec: Serialization of artifacts and topics
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DraftOracle: Proposes draft text. Without it, synthesis is disabled.
//   - PromptStore: User-editable oracle prompts. Embedded defaults otherwise.
//   - MetricsRecorder: Operational counters. No-op otherwise.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
