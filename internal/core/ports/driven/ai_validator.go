package driven

import "github.com/custodia-labs/canon/internal/core/domain"

// OracleValidator validates draft oracle configurations.
// Implementations verify that a configuration is usable by testing
// connectivity to the underlying service.
type OracleValidator interface {
	// ValidateOracle pings the configured provider.
	// Returns nil if the configuration is valid or the oracle is disabled.
	ValidateOracle(config *domain.OracleSettings) error
}
