package ai

import (
	"github.com/custodia-labs/canon/internal/core/domain"
	"github.com/custodia-labs/canon/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.OracleValidator = (*ConfigValidator)(nil)

// ConfigValidator validates oracle configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new oracle config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateOracle validates an oracle configuration by pinging the provider.
func (v *ConfigValidator) ValidateOracle(config *domain.OracleSettings) error {
	return ValidateOracleConfig(config)
}
