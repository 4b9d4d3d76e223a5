package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/shelfsync/internal/logger"
)

// EnvFileVar names a .env file to load when --env is not given.
const EnvFileVar = "SHELFSYNC_ENV_FILE"

// LoadEnvFile loads variables from a .env file into the process
// environment, overriding variables already set. An empty path falls back
// to $SHELFSYNC_ENV_FILE; with neither set it does nothing.
func LoadEnvFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvFileVar))
	}
	if path == "" {
		return "", nil
	}

	if err := godotenv.Overload(path); err != nil {
		return "", fmt.Errorf("loading env file %s: %w", path, err)
	}
	logger.Debug("loaded environment from %s", path)
	return path, nil
}
