package domain

import (
	"errors"
	"fmt"
	"regexp"
)

const unknownDescription = "Unknown"

// AIProvider identifies a draft oracle provider.
type AIProvider string

// Available oracle providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderOpenAI is the OpenAI API or a compatible server.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderAnthropic, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderAnthropic || p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// Environment variables that supply an API key when the config has none.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
)

// APIKeyEnv returns the environment variable holding the provider's API
// key, or "" when the provider takes none.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderAnthropic:
		return EnvAnthropicAPIKey
	case AIProviderOpenAI:
		return EnvOpenAIAPIKey
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud or compatible)"
	default:
		return unknownDescription
	}
}

// StorageBackend selects the record and chunk store implementation.
type StorageBackend string

// Available storage backends.
const (
	// StorageFilesystem keeps markdown artifacts and JSON chunks on disk.
	StorageFilesystem StorageBackend = "filesystem"

	// StorageSQLite keeps everything in a single SQLite database.
	StorageSQLite StorageBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	return b == StorageFilesystem || b == StorageSQLite
}

// PathSettings locates the knowledge base on disk.
type PathSettings struct {
	// Root is the knowledge base root. Relative paths below resolve against it.
	Root string

	// Sources holds the input PDFs.
	Sources string

	// Extracted holds page-per-file extraction output.
	Extracted string

	// Store holds chunks, drafts and curated entities.
	Store string

	// Prompts holds user-editable oracle prompts.
	Prompts string
}

// StorageSettings selects the backend.
type StorageSettings struct {
	Backend StorageBackend
}

// ChunkingSettings bounds chunk sizes.
type ChunkingSettings struct {
	// MinTokens is the lower bound of the target range.
	MinTokens int

	// MaxTokens is the hard upper bound.
	MaxTokens int

	// TokenFactor converts words to estimated tokens.
	TokenFactor float64

	// CarrySentences repeats up to this many trailing sentences (0 or 1).
	CarrySentences int

	// HeadingPatterns are regular expressions matched against whole lines.
	HeadingPatterns []string

	// Processors is the post-processing pipeline, in order.
	Processors []string
}

// IngestSettings controls source discovery and extraction.
type IngestSettings struct {
	// Include are doublestar globs relative to the sources directory.
	Include []string

	// Workers bounds parallel document processing.
	Workers int

	// PDFToText is the pdftotext executable.
	PDFToText string
}

// OracleSettings configures the draft oracle.
type OracleSettings struct {
	// Provider is the oracle provider. Empty disables synthesis.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (Anthropic).
	APIKey string

	// TimeoutSeconds bounds each oracle call.
	TimeoutSeconds int

	// RequestsPerMinute is the token-bucket rate.
	RequestsPerMinute int

	// MaxChunks caps how many chunks go into one proposal.
	MaxChunks int
}

// IsConfigured returns true if the oracle provider is set up.
func (o OracleSettings) IsConfigured() bool {
	if !o.Provider.IsValid() {
		return false
	}
	if o.Provider.RequiresAPIKey() && o.APIKey == "" {
		return false
	}
	return true
}

// MCPSettings configures the MCP server.
type MCPSettings struct {
	// HTTPAddr serves MCP over HTTP when set; stdio otherwise.
	HTTPAddr string
}

// Settings holds all application settings.
type Settings struct {
	Paths    PathSettings
	Storage  StorageSettings
	Chunking ChunkingSettings
	Ingest   IngestSettings
	Oracle   OracleSettings
	MCP      MCPSettings

	// Verbose enables debug logging.
	Verbose bool
}

// DefaultHeadingPattern matches markdown headings produced by extraction.
// Capture group 1 is the section title.
const DefaultHeadingPattern = `^#{1,6}\s+(.+?)\s*#*$`

// DefaultSettings returns settings with sensible defaults.
// The oracle is left unconfigured; synthesis stays disabled until set up.
func DefaultSettings() Settings {
	return Settings{
		Paths: PathSettings{
			Root:      ".",
			Sources:   "sources",
			Extracted: "extracted",
			Store:     "store",
			Prompts:   "prompts",
		},
		Storage: StorageSettings{Backend: StorageFilesystem},
		Chunking: ChunkingSettings{
			MinTokens:       300,
			MaxTokens:       800,
			TokenFactor:     1.3,
			CarrySentences:  0,
			HeadingPatterns: []string{DefaultHeadingPattern},
			Processors:      []string{"chunker", "audit"},
		},
		Ingest: IngestSettings{
			Include:   []string{"**/*.pdf"},
			Workers:   4,
			PDFToText: "pdftotext",
		},
		Oracle: OracleSettings{
			TimeoutSeconds:    120,
			RequestsPerMinute: 20,
			MaxChunks:         8,
		},
	}
}

// Validate checks settings for consistency.
func (s *Settings) Validate() error {
	var errs []error
	if !s.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("storage.backend %q: %w", s.Storage.Backend, ErrUnsupportedType))
	}
	if err := s.Chunking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Ingest.Workers < 1 {
		errs = append(errs, fmt.Errorf("ingest.workers must be at least 1: %w", ErrInvalidInput))
	}
	if s.Oracle.Provider != "" && !s.Oracle.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("oracle.provider %q: %w", s.Oracle.Provider, ErrUnsupportedType))
	}
	if s.Oracle.TimeoutSeconds < 0 || s.Oracle.RequestsPerMinute < 0 || s.Oracle.MaxChunks < 0 {
		errs = append(errs, fmt.Errorf("oracle limits must not be negative: %w", ErrInvalidInput))
	}
	return errors.Join(errs...)
}

// Validate checks chunking bounds: 0 < min < max and 0 < factor < max-min.
// The factor bound guarantees a single word never jumps across the range.
func (c ChunkingSettings) Validate() error {
	if c.MinTokens <= 0 || c.MaxTokens <= c.MinTokens {
		return fmt.Errorf("chunking bounds must satisfy 0 < min_tokens (%d) < max_tokens (%d): %w",
			c.MinTokens, c.MaxTokens, ErrInvalidInput)
	}
	if c.TokenFactor <= 0 || c.TokenFactor >= float64(c.MaxTokens-c.MinTokens) {
		return fmt.Errorf("chunking token_factor %.2f must be in (0, %d): %w",
			c.TokenFactor, c.MaxTokens-c.MinTokens, ErrInvalidInput)
	}
	if c.CarrySentences < 0 || c.CarrySentences > 1 {
		return fmt.Errorf("chunking carry_sentences must be 0 or 1: %w", ErrInvalidInput)
	}
	for _, p := range c.HeadingPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("chunking heading pattern %q: %w", p, ErrInvalidInput)
		}
	}
	return nil
}
