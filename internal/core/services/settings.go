package services

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRoot            = "paths.root"
	keySources         = "paths.sources"
	keyExtracted       = "paths.extracted"
	keyStore           = "paths.store"
	keyPrompts         = "paths.prompts"
	keyBackend         = "storage.backend"
	keyMinTokens       = "chunking.min_tokens"
	keyMaxTokens       = "chunking.max_tokens"
	keyTokenFactor     = "chunking.token_factor"
	keyCarrySentences  = "chunking.carry_sentences"
	keyHeadingPatterns = "chunking.heading_patterns"
	keyProcessors      = "chunking.processors"
	keyInclude         = "ingest.include"
	keyWorkers         = "ingest.workers"
	keyPDFToText       = "ingest.pdftotext"
	keyOracleProvider  = "oracle.provider"
	keyOracleModel     = "oracle.model"
	keyOracleBaseURL   = "oracle.base_url"
	keyOracleAPIKey    = "oracle.api_key"
	keyOracleTimeout   = "oracle.timeout_seconds"
	keyOracleRPM       = "oracle.requests_per_minute"
	keyOracleMaxChunks = "oracle.max_chunks"
	keyVerbose         = "logging.verbose"
	keyMCPAddr         = "mcp.http_addr"
)


type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindList
)

var settingKinds = map[string]valueKind{
	keyRoot:            kindString,
	keySources:         kindString,
	keyExtracted:       kindString,
	keyStore:           kindString,
	keyPrompts:         kindString,
	keyBackend:         kindString,
	keyMinTokens:       kindInt,
	keyMaxTokens:       kindInt,
	keyTokenFactor:     kindFloat,
	keyCarrySentences:  kindInt,
	keyHeadingPatterns: kindList,
	keyProcessors:      kindList,
	keyInclude:         kindList,
	keyWorkers:         kindInt,
	keyPDFToText:       kindString,
	keyOracleProvider:  kindString,
	keyOracleModel:     kindString,
	keyOracleBaseURL:   kindString,
	keyOracleAPIKey:    kindString,
	keyOracleTimeout:   kindInt,
	keyOracleRPM:       kindInt,
	keyOracleMaxChunks: kindInt,
	keyVerbose:         kindBool,
	keyMCPAddr:         kindString,
}

// Default oracle models per provider.
var defaultOracleModels = map[domain.AIProvider]string{
	domain.AIProviderAnthropic: "claude-sonnet-4-20250514",
	domain.AIProviderOpenAI:    "gpt-4o-mini",
	domain.AIProviderOllama:    "llama3.2",
}

// SettingsService reads settings from a ConfigStore and applies defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.OracleValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. validator may be nil.
func NewSettingsService(configStore driven.ConfigStore, validator driven.OracleValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current settings with defaults applied and paths resolved.
func (s *SettingsService) Get() (*domain.Settings, error) {
	settings := s.read(nil)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Set validates the settings that would result from the change, then
// persists the value. Invalid changes leave the store untouched.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	typed, err := coerce(kind, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	candidate := s.read(map[string]any{key: typed})
	if err := candidate.Validate(); err != nil {
		return err
	}
	return s.configStore.Set(key, typed)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// ValidateOracle pings the configured oracle.
func (s *SettingsService) ValidateOracle() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateOracle(&settings.Oracle)
}

// Keys returns every settable key, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// read builds settings from the store, with overrides taking precedence.
func (s *SettingsService) read(overrides map[string]any) *domain.Settings {
	r := reader{store: s.configStore, overrides: overrides}
	d := domain.DefaultSettings()

	settings := &domain.Settings{
		Paths: domain.PathSettings{
			Root:      r.str(keyRoot, d.Paths.Root),
			Sources:   r.str(keySources, d.Paths.Sources),
			Extracted: r.str(keyExtracted, d.Paths.Extracted),
			Store:     r.str(keyStore, d.Paths.Store),
			Prompts:   r.str(keyPrompts, d.Paths.Prompts),
		},
		Storage: domain.StorageSettings{
			Backend: domain.StorageBackend(r.str(keyBackend, string(d.Storage.Backend))),
		},
		Chunking: domain.ChunkingSettings{
			MinTokens:       r.integer(keyMinTokens, d.Chunking.MinTokens),
			MaxTokens:       r.integer(keyMaxTokens, d.Chunking.MaxTokens),
			TokenFactor:     r.float(keyTokenFactor, d.Chunking.TokenFactor),
			CarrySentences:  r.integer(keyCarrySentences, d.Chunking.CarrySentences),
			HeadingPatterns: r.list(keyHeadingPatterns, d.Chunking.HeadingPatterns),
			Processors:      r.list(keyProcessors, d.Chunking.Processors),
		},
		Ingest: domain.IngestSettings{
			Include:   r.list(keyInclude, d.Ingest.Include),
			Workers:   r.integer(keyWorkers, d.Ingest.Workers),
			PDFToText: r.str(keyPDFToText, d.Ingest.PDFToText),
		},
		Oracle: domain.OracleSettings{
			Provider:          domain.AIProvider(r.str(keyOracleProvider, "")),
			Model:             r.str(keyOracleModel, ""),
			BaseURL:           r.str(keyOracleBaseURL, ""),
			APIKey:            r.str(keyOracleAPIKey, ""),
			TimeoutSeconds:    r.integer(keyOracleTimeout, d.Oracle.TimeoutSeconds),
			RequestsPerMinute: r.integer(keyOracleRPM, d.Oracle.RequestsPerMinute),
			MaxChunks:         r.integer(keyOracleMaxChunks, d.Oracle.MaxChunks),
		},
		MCP:     domain.MCPSettings{HTTPAddr: r.str(keyMCPAddr, "")},
		Verbose: r.boolean(keyVerbose, d.Verbose),
	}

	if settings.Oracle.Model == "" {
		settings.Oracle.Model = defaultOracleModels[settings.Oracle.Provider]
	}
	if env := settings.Oracle.Provider.APIKeyEnv(); env != "" && settings.Oracle.APIKey == "" {
		settings.Oracle.APIKey = s.getenv(env)
	}
	if settings.Oracle.Provider.IsLocal() && settings.Oracle.BaseURL == "" {
		settings.Oracle.BaseURL = "http://localhost:11434"
	}

	s.resolvePaths(&settings.Paths)
	return settings
}

// resolvePaths makes the root absolute (relative to the config file when
// there is one) and the other paths relative to the root.
func (s *SettingsService) resolvePaths(p *domain.PathSettings) {
	root := expandHome(p.Root)
	if !filepath.IsAbs(root) {
		base := "."
		if path := s.configStore.Path(); path != "" && !strings.HasPrefix(path, ":") {
			base = filepath.Dir(path)
		}
		root = filepath.Join(base, root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	p.Root = root

	for _, dir := range []*string{&p.Sources, &p.Extracted, &p.Store, &p.Prompts} {
		v := expandHome(*dir)
		if !filepath.IsAbs(v) {
			v = filepath.Join(root, v)
		}
		*dir = filepath.Clean(v)
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// reader reads typed config values with defaults.
type reader struct {
	store     driven.ConfigStore
	overrides map[string]any
}

func (r reader) has(key string) bool {
	if _, ok := r.overrides[key]; ok {
		return true
	}
	_, ok := r.store.Get(key)
	return ok
}

func (r reader) str(key, def string) string {
	if v, ok := r.overrides[key].(string); ok {
		return v
	}
	if v := r.store.GetString(key); v != "" {
		return v
	}
	return def
}

func (r reader) integer(key string, def int) int {
	if v, ok := r.overrides[key].(int); ok {
		return v
	}
	if !r.has(key) {
		return def
	}
	return r.store.GetInt(key)
}

func (r reader) float(key string, def float64) float64 {
	if v, ok := r.overrides[key].(float64); ok {
		return v
	}
	if !r.has(key) {
		return def
	}
	return r.store.GetFloat(key)
}

func (r reader) boolean(key string, def bool) bool {
	if v, ok := r.overrides[key].(bool); ok {
		return v
	}
	if !r.has(key) {
		return def
	}
	return r.store.GetBool(key)
}

func (r reader) list(key string, def []string) []string {
	if v, ok := r.overrides[key].([]string); ok {
		return v
	}
	if v := r.store.GetStringSlice(key); len(v) > 0 {
		return v
	}
	return slices.Clone(def)
}

// coerce converts CLI strings and loosely typed values to the key's type.
func coerce(kind valueKind, value any) (any, error) {
	s, isString := value.(string)
	switch kind {
	case kindString:
		if !isString {
			return nil, fmt.Errorf("want a string, got %T: %w", value, domain.ErrInvalidInput)
		}
		return s, nil
	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("want an integer: %w", domain.ErrInvalidInput)
			}
			return n, nil
		}
	case kindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("want a number: %w", domain.ErrInvalidInput)
			}
			return f, nil
		}
	case kindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, fmt.Errorf("want true or false: %w", domain.ErrInvalidInput)
			}
			return b, nil
		}
	case kindList:
		switch v := value.(type) {
		case []string:
			return v, nil
		case string:
			var out []string
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("unsupported value %T: %w", value, domain.ErrInvalidInput)
}
