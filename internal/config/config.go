// Package config provides reconciliation run configuration with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/backoff"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/errors"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/store"
	"github.com/ohadschn/HowLongToBeatSteam-sub000/internal/validation"
)

// Config holds the run configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Catalog   CatalogConfig
	Store     StoreConfig
	Retry     RetryConfig
	Inference InferenceConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// CatalogConfig locates the scraped catalog.
type CatalogConfig struct {
	Path string `validate:"required"`
}

// StoreConfig holds partitioned store configuration.
type StoreConfig struct {
	Path  string `validate:"required"`
	Table string `validate:"required"`
	// BatchCapacity is the operation count per batch (default: 100, at most 100)
	BatchCapacity int `validate:"min=1,max=100"`
	// BatchConcurrency is the number of batches in flight (default: 8)
	BatchConcurrency int `validate:"min=1"`
}

// RetryConfig is the backoff policy shared by the store and inference clients.
type RetryConfig struct {
	Attempts int           `validate:"min=1"`
	Delay    time.Duration `validate:"gte=0"`
	MaxDelay time.Duration `validate:"gte=0"`
}

// Policy converts the configuration to a backoff.Policy.
func (r RetryConfig) Policy() backoff.Policy {
	return backoff.Policy{
		Attempts: uint(max(r.Attempts, 1)),
		Delay:    r.Delay,
		MaxDelay: r.MaxDelay,
	}
}

// InferenceConfig holds inference service configuration.
type InferenceConfig struct {
	URL          string        `validate:"required,url"`
	PollInterval time.Duration `validate:"gt=0"`
	Timeout      time.Duration `validate:"gt=0"`
	// RPS caps outgoing requests per second (default: 5)
	RPS         float64       `validate:"gt=0"`
	HTTPTimeout time.Duration `validate:"gt=0"`
}

// LoadConfig loads configuration from os.Args.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	catalogPath := fs.String("catalog", "", "Path to the scraped catalog database")

	// Store flags
	storePath := fs.String("store-path", "", "Directory of the partitioned store")
	storeTable := fs.String("store-table", "", "Table the catalog is committed to (default: titles)")
	batchCapacity := fs.String("batch-capacity", "", "Operations per batch (default: 100)")
	batchConcurrency := fs.String("batch-concurrency", "", "Batches in flight (default: 8)")

	// Retry flags
	retryAttempts := fs.String("retry-attempts", "", "Attempts per call (default: 5)")
	retryDelay := fs.String("retry-delay", "", "Base retry delay (default: 200ms)")
	retryMaxDelay := fs.String("retry-max-delay", "", "Maximum retry delay (default: 10s)")

	// Inference flags
	inferenceURL := fs.String("inference-url", "", "Base URL of the inference service")
	pollInterval := fs.String("inference-poll-interval", "", "Job poll interval (default: 5s)")
	inferenceTimeout := fs.String("inference-timeout", "", "Job completion timeout (default: 10m)")
	inferenceRPS := fs.String("inference-rps", "", "Inference requests per second (default: 5)")
	httpTimeout := fs.String("inference-http-timeout", "", "Per-request timeout (default: 30s)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Catalog: CatalogConfig{
			Path: getConfigValue(*catalogPath, "CATALOG_PATH", ""),
		},
		Store: StoreConfig{
			Path:             getConfigValue(*storePath, "STORE_PATH", ""),
			Table:            getConfigValue(*storeTable, "STORE_TABLE", "titles"),
			BatchCapacity:    getIntConfigValue(*batchCapacity, "BATCH_CAPACITY", store.MaxBatchOperations),
			BatchConcurrency: getIntConfigValue(*batchConcurrency, "BATCH_CONCURRENCY", 8),
		},
		Retry: RetryConfig{
			Attempts: getIntConfigValue(*retryAttempts, "RETRY_ATTEMPTS", backoff.DefaultAttempts),
		},
		Inference: InferenceConfig{
			URL: getConfigValue(*inferenceURL, "INFERENCE_URL", ""),
		},
	}

	rps, err := strconv.ParseFloat(getConfigValue(*inferenceRPS, "INFERENCE_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid inference rps: %w", err)
	}
	cfg.Inference.RPS = rps

	durations := []struct {
		target   *time.Duration
		flag     string
		envKey   string
		fallback string
	}{
		{&cfg.Retry.Delay, *retryDelay, "RETRY_DELAY", backoff.DefaultDelay.String()},
		{&cfg.Retry.MaxDelay, *retryMaxDelay, "RETRY_MAX_DELAY", backoff.DefaultMaxDelay.String()},
		{&cfg.Inference.PollInterval, *pollInterval, "INFERENCE_POLL_INTERVAL", "5s"},
		{&cfg.Inference.Timeout, *inferenceTimeout, "INFERENCE_TIMEOUT", "10m"},
		{&cfg.Inference.HTTPTimeout, *httpTimeout, "INFERENCE_HTTP_TIMEOUT", "30s"},
	}
	for _, d := range durations {
		s := getConfigValue(d.flag, d.envKey, d.fallback)
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.envKey), s, err)
		}
		*d.target = parsed
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return errors.Validationf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	return validation.New().Validate(c)
}

// expandPaths expands ~ and makes the catalog and store paths absolute.
// The store defaults to a directory next to the catalog.
func (c *Config) expandPaths() error {
	catalog, err := expandPath(c.Catalog.Path, "")
	if err != nil {
		return fmt.Errorf("invalid catalog path: %w", err)
	}
	c.Catalog.Path = catalog

	defaultStore := ""
	if catalog != "" {
		defaultStore = filepath.Join(filepath.Dir(catalog), "store")
	}
	storePath, err := expandPath(c.Store.Path, defaultStore)
	if err != nil {
		return fmt.Errorf("invalid store path: %w", err)
	}
	c.Store.Path = storePath
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
