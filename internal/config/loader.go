package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrReading indicates the configuration file could not be read.
	ErrReading ConfigErrorType = "READ_FAILED"
	// ErrParsing indicates a malformed YAML document or environment value.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)

// ConfigError is returned by Load and Validate.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads the configuration.
//
//  1. Applies the .env file next to path, if present. Values from an earlier
//     load are replaced, and the process environment always wins.
//  2. Starts from Default and overlays the YAML file at path. An empty path
//     skips the file; a missing DefaultFile is tolerated.
//  3. Applies PERFTEST_* environment overrides via envconfig.
//  4. Validates the result.
func Load(path string) (*Config, error) {
	if err := applyDotenv(DotenvPath(path)); err != nil {
		return nil, &ConfigError{
			Type:    ErrReading,
			Message: "failed to load dotenv file",
			Err:     err,
		}
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, &ConfigError{
					Type:    ErrParsing,
					Message: fmt.Sprintf("failed to parse %s", path),
					Err:     err,
				}
			}
		case errors.Is(err, os.ErrNotExist) && path == DefaultFile:
		default:
			return nil, &ConfigError{
				Type:    ErrReading,
				Message: fmt.Sprintf("failed to read %s", path),
				Err:     err,
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
