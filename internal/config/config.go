// Package config loads the server configuration from file, environment,
// and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config captures all configurable aspects of the cellar server.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (CELLAR_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Server contains the HTTP listener settings.
	Server ServerConfig `mapstructure:"server"`

	// Storage points at the directory tree that backs all buckets.
	Storage StorageConfig `mapstructure:"storage"`

	// Auth holds the single key pair the server accepts.
	Auth AuthConfig `mapstructure:"auth"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig contains the HTTP and HTTPS listener settings.
type ServerConfig struct {
	// Listen is the plain HTTP listen address, e.g. ":8000".
	// Empty disables the HTTP listener.
	Listen string `mapstructure:"listen"`

	// TLSListen is the HTTPS listen address. Empty disables HTTPS.
	TLSListen string `mapstructure:"tls_listen"`

	// TLSCert and TLSKey are the certificate and key file paths.
	// Both are required when TLSListen is set.
	TLSCert string `mapstructure:"tls_cert" validate:"required_with=TLSListen"`
	TLSKey  string `mapstructure:"tls_key" validate:"required_with=TLSListen"`

	// Region is the region name reported by GetBucketLocation and
	// accepted in SigV4 credential scopes.
	Region string `mapstructure:"region" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StorageConfig specifies where bucket data lives on disk.
type StorageConfig struct {
	// DataDir is the root directory. Each bucket is a subdirectory of it.
	DataDir string `mapstructure:"data_dir" validate:"required"`
}

// AuthConfig holds the accepted credentials. Leaving both fields empty
// disables authentication entirely.
type AuthConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// Enabled reports whether authentication is configured.
func (c AuthConfig) Enabled() bool {
	return c.AccessKeyID != "" || c.SecretAccessKey != ""
}

var validate = validator.New()

// Load loads configuration from file, environment, and defaults.
//
// configPath may be empty, in which case only environment variables and
// defaults are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Environment variables use the CELLAR_ prefix and underscores.
	// Example: CELLAR_STORAGE_DATA_DIR=/var/lib/cellar
	v.SetEnvPrefix("CELLAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper only resolves environment variables for keys it knows about,
	// so every key is registered up front.
	for _, key := range []string{
		"server.listen",
		"server.tls_listen",
		"server.tls_cert",
		"server.tls_key",
		"server.region",
		"storage.data_dir",
		"auth.access_key_id",
		"auth.secret_access_key",
		"logging.level",
		"logging.format",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("server.shutdown_timeout", "0s")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Listen == "" && cfg.Server.TLSListen == "" {
		cfg.Server.Listen = ":8000"
	}
	if cfg.Server.Region == "" {
		cfg.Server.Region = "us-east-1"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate validates the configuration using struct tags plus rules that
// cannot be expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.Server.Listen == "" && cfg.Server.TLSListen == "" {
		return fmt.Errorf("server: at least one of listen or tls_listen must be set")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly
// messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
