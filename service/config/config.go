package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultRPCURL is the public mainnet endpoint used when SOLANA_RPC_URL is unset.
// Public mainnet is heavily rate limited; prefer a dedicated endpoint for real runs.
const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

// Config holds all application configuration loaded from environment variables.
// Only the RPC endpoint is strictly required; the database, NATS, and metrics
// integrations are enabled by setting their respective variables.
type Config struct {
	// Solana configuration
	SolanaRPCURL string

	// Logging
	LogLevel string

	// Export configuration
	OutputPath     string
	OperationLimit int

	// Optional integrations (empty string disables them)
	DatabaseURL string
	NATSURL     string
	MetricsAddr string
}

// Load reads configuration from environment variables and validates it.
// Returns an error if any value is present but invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.SolanaRPCURL = getEnvOrDefault("SOLANA_RPC_URL", DefaultRPCURL)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.OutputPath = getEnvOrDefault("OUTPUT_PATH", "transactions.csv")

	limit, err := parseInt("OPERATION_LIMIT", 0)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.OperationLimit = limit
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.OutputPath == "" {
		errs = append(errs, fmt.Errorf("OutputPath is required"))
	}

	if c.OperationLimit < 0 {
		errs = append(errs, fmt.Errorf("OperationLimit cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
