package driven

import "time"

// ConfigStore provides access to persisted settings under flat dot keys
// such as "reader.token" or "vault.garden.url".
// Implementations handle persistence and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string value. Numbers and booleans are
	// formatted; a missing key gives "".
	GetString(key string) string

	// GetInt retrieves an integer value. Numeric strings are parsed.
	// Returns 0 if the key doesn't exist or isn't a number.
	GetInt(key string) int

	// GetBool retrieves a boolean value. "true" and "false" strings are parsed.
	GetBool(key string) bool

	// GetDuration retrieves a duration written as "90s" or "1h30m".
	// Returns 0 if the key doesn't exist or doesn't parse.
	GetDuration(key string) time.Duration

	// Keys lists the stored keys that start with prefix, sorted.
	Keys(prefix string) []string

	// Set stores a value and persists immediately.
	Set(key string, value any) error

	// Unset removes a key and persists immediately. Missing keys are not an error.
	Unset(key string) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
