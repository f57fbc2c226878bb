package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"trade-sync/src/helpers"
	"trade-sync/src/models"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, read after the YAML file (and after .env).
const (
	EnvBackendURL = "TRADE_SYNC_BACKEND_URL"
	EnvStreamURL  = "TRADE_SYNC_STREAM_URL"
	EnvLogLevel   = "TRADE_SYNC_LOG_LEVEL"
	EnvDBDSN      = "TRADE_SYNC_DB_DSN"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes, applying defaults and
// environment overrides.
func Parse(data []byte) (*Config, error) {
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: modelConfig}
	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Defaults returns the values used for keys missing from the file.
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:     "trade-sync",
		Host:     "127.0.0.1",
		Port:     8090,
		LogLevel: "INFO",
		GrpcPort: 50061,
		Backend: models.MBackendConfig{
			RequestTimeout: 10,
			MaxRetries:     2,
		},
		Stream: models.MStreamConfig{
			ReconnectDelaySeconds: 5,
		},
		Account: models.MAccountConfig{
			PollIntervalSeconds: 2,
		},
		Dashboard: models.MDashboardConfig{
			Enabled:              true,
			PriceEventsPerSecond: 5,
		},
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: "trade-sync.db",
		},
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv loads a .env file if present and lets environment variables
// override file values.
func (c *Config) ApplyEnv() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvStreamURL); v != "" {
		c.Backend.StreamURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	if v := os.Getenv(EnvDBDSN); v != "" {
		c.Storage.DBConnectionString = v
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if err := validate.Struct(c.MConfig); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid value for %s (rule %q, got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.Dashboard.Enabled && (c.Port <= 1024 || c.Port > 65535) {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	if c.Backend.Proxy != "" && !helpers.ValidateProxy(c.Backend.Proxy) {
		return fmt.Errorf("invalid backend proxy: %s", c.Backend.Proxy)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("database connection string cannot be empty for postgres")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
