package driven

// ConfigStore provides access to application configuration.
// Keys use dot notation matching the TOML tables, e.g. "chunking.min_tokens".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string value. Empty if missing or mistyped.
	GetString(key string) string

	// GetInt retrieves an integer value. Zero if missing or mistyped.
	GetInt(key string) int

	// GetFloat retrieves a float value; integers are widened.
	GetFloat(key string) float64

	// GetBool retrieves a boolean value. False if missing or mistyped.
	GetBool(key string) bool

	// GetStringSlice retrieves a string slice value. Nil if missing.
	GetStringSlice(key string) []string

	// Set stores a configuration value and persists immediately.
	Set(key string, value any) error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
