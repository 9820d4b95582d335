package driving

import "github.com/custodia-labs/canon/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings with defaults applied and paths resolved.
	Get() (*domain.Settings, error)

	// Set stores one setting by dotted key after validating the result.
	Set(key string, value any) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// ValidateOracle pings the configured oracle provider.
	ValidateOracle() error

	// Keys returns every settable key, sorted.
	Keys() []string

	// Path returns the configuration file path.
	Path() string
}
