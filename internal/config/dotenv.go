package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no env file is named.
const DefaultEnvFile = ".env"

// ErrEnvFileNotFound is returned when a named env file does not exist.
var ErrEnvFileNotFound = errors.New("env file not found")

// LoadDotEnv sets variables from an env file without overriding ones already
// in the environment. An empty path reads DefaultEnvFile if it exists; a
// named file must exist.
func LoadDotEnv(path string) error {
	if path == "" {
		if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = DefaultEnvFile
	} else if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrEnvFileNotFound, path)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	return nil
}

// LoadConfig applies the env file, then builds the AppConfig from the environment.
// Variables already present in the environment win over the file.
func LoadConfig(envPath string) (AppConfig, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return AppConfig{}, err
	}

	envCfg, err := LoadFromEnv()
	if err != nil {
		return AppConfig{}, err
	}

	return envCfg.ToAppConfig(), nil
}
