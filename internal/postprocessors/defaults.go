package postprocessors

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
	"github.com/custodia-labs/canon/internal/postprocessors/audit"
	"github.com/custodia-labs/canon/internal/postprocessors/chunker"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerStage, buildChunker)
	r.Register(AuditStage, buildAudit)
}

// ConfigFor converts chunking settings into the generic processor config.
func ConfigFor(s domain.ChunkingSettings) map[string]any {
	return map[string]any{
		"min_tokens":       s.MinTokens,
		"max_tokens":       s.MaxTokens,
		"token_factor":     s.TokenFactor,
		"carry_sentences":  s.CarrySentences,
		"heading_patterns": s.HeadingPatterns,
	}
}

// FromSettings builds the pipeline named by the chunking settings. Every
// name must be registered, the chunker must come first, the audit stage
// (when listed) last, and no stage may repeat.
func FromSettings(r *Registry, s domain.ChunkingSettings) (*Pipeline, error) {
	if err := checkStages(r, s.Processors); err != nil {
		return nil, err
	}
	cfg := ConfigFor(s)
	stages := make([]driven.PostProcessor, 0, len(s.Processors))
	for _, name := range s.Processors {
		proc, err := r.Build(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", name, err)
		}
		stages = append(stages, proc)
	}
	return NewPipeline(stages...), nil
}

func checkStages(r *Registry, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("no processors configured: %w", domain.ErrInvalidInput)
	}
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		if !r.Has(name) {
			return fmt.Errorf("unknown processor %q (available: %s): %w",
				name, strings.Join(r.Names(), ", "), domain.ErrInvalidInput)
		}
		if seen[name] {
			return fmt.Errorf("processor %q listed twice: %w", name, domain.ErrInvalidInput)
		}
		seen[name] = true
		if i == 0 && name != ChunkerStage {
			return fmt.Errorf("processors must start with %q, got %q: %w", ChunkerStage, name, domain.ErrInvalidInput)
		}
		if name == AuditStage && i != len(names)-1 {
			return fmt.Errorf("processor %q must be last: %w", AuditStage, domain.ErrInvalidInput)
		}
	}
	return nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - min_tokens (int): lower bound for non-final chunks (default: 300)
//   - max_tokens (int): upper bound for every chunk (default: 800)
//   - token_factor (float): tokens per word (default: 1.3)
//   - carry_sentences (int): sentences repeated across boundaries (default: 0)
//   - heading_patterns ([]string): heading line regexes
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if v := getIntFromConfig(cfg, "min_tokens"); v > 0 {
			opts = append(opts, chunker.WithMinTokens(v))
		}
		if v := getIntFromConfig(cfg, "max_tokens"); v > 0 {
			opts = append(opts, chunker.WithMaxTokens(v))
		}
		if v := getFloatFromConfig(cfg, "token_factor"); v > 0 {
			opts = append(opts, chunker.WithTokenFactor(v))
		}
		if v := getIntFromConfig(cfg, "carry_sentences"); v > 0 {
			opts = append(opts, chunker.WithCarrySentences(v))
		}
		if v := getStringsFromConfig(cfg, "heading_patterns"); len(v) > 0 {
			opts = append(opts, chunker.WithHeadingPatterns(v...))
		}
	}

	return chunker.New(opts...)
}

// buildAudit creates an audit processor checking the same token range the
// chunker was configured with.
func buildAudit(cfg map[string]any) (driven.PostProcessor, error) {
	defaults := domain.DefaultSettings().Chunking
	lo, hi := defaults.MinTokens, defaults.MaxTokens
	if v := getIntFromConfig(cfg, "min_tokens"); v > 0 {
		lo = v
	}
	if v := getIntFromConfig(cfg, "max_tokens"); v > 0 {
		hi = v
	}
	return audit.New(lo, hi), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// getFloatFromConfig extracts a float64, accepting integer values too.
func getFloatFromConfig(cfg map[string]any, key string) float64 {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// getStringsFromConfig extracts a string list. TOML decoding yields []any.
func getStringsFromConfig(cfg map[string]any, key string) []string {
	val, ok := cfg[key]
	if !ok {
		return nil
	}

	switch v := val.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}
