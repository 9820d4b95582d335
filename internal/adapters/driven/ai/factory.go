// Package ai provides factory functions for creating draft oracle adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/canon/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/canon/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/canon/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateOracle creates the oracle adapter for the configured provider.
// Returns nil if the oracle is not configured.
func CreateOracle(settings *domain.OracleSettings) (driven.DraftOracle, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	timeout := time.Duration(settings.TimeoutSeconds) * time.Second

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollama.NewOracle(ollama.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		}), nil

	case domain.AIProviderAnthropic:
		oracle, err := anthropic.NewOracle(anthropic.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return oracle, nil

	case domain.AIProviderOpenAI:
		oracle, err := openai.NewOracle(openai.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: timeout,
		})
		if err != nil {
			return nil, err
		}
		return oracle, nil

	default:
		return nil, fmt.Errorf("oracle provider %q: %w", settings.Provider, domain.ErrUnsupportedType)
	}
}

// CreateAndValidateOracle creates an oracle and checks connectivity.
// Returns the oracle if successful, or an error with guidance.
func CreateAndValidateOracle(settings *domain.OracleSettings) (driven.DraftOracle, error) {
	oracle, err := CreateOracle(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'canon settings' to fix", domain.ErrOracleUnavailable, err)
	}
	if oracle == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := oracle.Ping(ctx); err != nil {
		_ = oracle.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'canon settings' to fix",
			domain.ErrOracleUnavailable, err)
	}
	return oracle, nil
}

// ValidateOracleConfig creates an oracle for the settings and pings it.
// Unconfigured settings are valid: synthesis is simply disabled.
func ValidateOracleConfig(settings *domain.OracleSettings) error {
	oracle, err := CreateOracle(settings)
	if err != nil {
		return err
	}
	if oracle == nil {
		return nil
	}
	defer oracle.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return oracle.Ping(ctx)
}
