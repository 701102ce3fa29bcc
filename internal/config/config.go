package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "DASH"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Retry     RetryConfig     `yaml:"retry" envconfig:"RETRY"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/dashboard.log"`
}

// CacheConfig bounds the shared analytics result cache.
type CacheConfig struct {
	MaxSize int `yaml:"max_size" envconfig:"MAX_SIZE" default:"10"`
}

// RetryConfig controls how dataset loads are retried.
type RetryConfig struct {
	MaxRetries            int           `yaml:"max_retries" envconfig:"MAX_RETRIES" default:"3"`
	BaseDelay             time.Duration `yaml:"base_delay" envconfig:"BASE_DELAY" default:"1s"`
	BackoffFactor         float64       `yaml:"backoff_factor" envconfig:"BACKOFF_FACTOR" default:"2"`
	UseExponentialBackoff bool          `yaml:"use_exponential_backoff" envconfig:"USE_EXPONENTIAL_BACKOFF" default:"true"`
	MaxDelay              time.Duration `yaml:"max_delay" envconfig:"MAX_DELAY" default:"30s"`
	DelayOnFailure        bool          `yaml:"delay_on_failure" envconfig:"DELAY_ON_FAILURE" default:"false"`
}

// StoreConfig selects where retry state is persisted. DataDir is the root
// that dataset files are loaded from.
type StoreConfig struct {
	Driver  string `yaml:"driver" envconfig:"DRIVER" default:"memory"`
	Path    string `yaml:"path" envconfig:"PATH" default:"data/retry.db"`
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
}

// TelemetryConfig contains OpenTelemetry settings
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"dashcli"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. A value that still equals
// its default was not set through the environment, so the file value wins.
func mergeConfigs(fileConfig, envConfig Config) Config {
	def := Default()

	envConfig.Server.Port = pick(envConfig.Server.Port, fileConfig.Server.Port, def.Server.Port)
	envConfig.Server.ReadTimeout = pick(envConfig.Server.ReadTimeout, fileConfig.Server.ReadTimeout, def.Server.ReadTimeout)
	envConfig.Server.WriteTimeout = pick(envConfig.Server.WriteTimeout, fileConfig.Server.WriteTimeout, def.Server.WriteTimeout)
	envConfig.Server.IdleTimeout = pick(envConfig.Server.IdleTimeout, fileConfig.Server.IdleTimeout, def.Server.IdleTimeout)
	envConfig.Server.MaxHeaderBytes = pick(envConfig.Server.MaxHeaderBytes, fileConfig.Server.MaxHeaderBytes, def.Server.MaxHeaderBytes)
	envConfig.Server.ShutdownTimeout = pick(envConfig.Server.ShutdownTimeout, fileConfig.Server.ShutdownTimeout, def.Server.ShutdownTimeout)
	envConfig.Server.RequestTimeout = pick(envConfig.Server.RequestTimeout, fileConfig.Server.RequestTimeout, def.Server.RequestTimeout)

	envConfig.Security.RateLimit.RPS = pick(envConfig.Security.RateLimit.RPS, fileConfig.Security.RateLimit.RPS, def.Security.RateLimit.RPS)
	envConfig.Security.RateLimit.Burst = pick(envConfig.Security.RateLimit.Burst, fileConfig.Security.RateLimit.Burst, def.Security.RateLimit.Burst)

	envConfig.Logging.Level = pick(envConfig.Logging.Level, fileConfig.Logging.Level, def.Logging.Level)
	envConfig.Logging.Format = pick(envConfig.Logging.Format, fileConfig.Logging.Format, def.Logging.Format)
	envConfig.Logging.Output = pick(envConfig.Logging.Output, fileConfig.Logging.Output, def.Logging.Output)
	envConfig.Logging.FilePath = pick(envConfig.Logging.FilePath, fileConfig.Logging.FilePath, def.Logging.FilePath)

	envConfig.Cache.MaxSize = pick(envConfig.Cache.MaxSize, fileConfig.Cache.MaxSize, def.Cache.MaxSize)

	envConfig.Retry.MaxRetries = pick(envConfig.Retry.MaxRetries, fileConfig.Retry.MaxRetries, def.Retry.MaxRetries)
	envConfig.Retry.BaseDelay = pick(envConfig.Retry.BaseDelay, fileConfig.Retry.BaseDelay, def.Retry.BaseDelay)
	envConfig.Retry.BackoffFactor = pick(envConfig.Retry.BackoffFactor, fileConfig.Retry.BackoffFactor, def.Retry.BackoffFactor)
	envConfig.Retry.MaxDelay = pick(envConfig.Retry.MaxDelay, fileConfig.Retry.MaxDelay, def.Retry.MaxDelay)

	envConfig.Store.Driver = pick(envConfig.Store.Driver, fileConfig.Store.Driver, def.Store.Driver)
	envConfig.Store.Path = pick(envConfig.Store.Path, fileConfig.Store.Path, def.Store.Path)
	envConfig.Store.DataDir = pick(envConfig.Store.DataDir, fileConfig.Store.DataDir, def.Store.DataDir)

	envConfig.Telemetry.ServiceName = pick(envConfig.Telemetry.ServiceName, fileConfig.Telemetry.ServiceName, def.Telemetry.ServiceName)

	// Booleans cannot distinguish "unset" from false in YAML; the file may
	// only flip a default-valued flag when the environment left it alone.
	if envConfig.Retry.DelayOnFailure == def.Retry.DelayOnFailure && fileConfig.Retry.DelayOnFailure {
		envConfig.Retry.DelayOnFailure = true
	}
	if envConfig.Telemetry.TracingEnabled == def.Telemetry.TracingEnabled && fileConfig.Telemetry.TracingEnabled {
		envConfig.Telemetry.TracingEnabled = true
	}

	return envConfig
}

func pick[T comparable](envValue, fileValue, defValue T) T {
	var zero T
	if envValue != defValue || fileValue == zero {
		return envValue
	}
	return fileValue
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max size must be positive, got %d", c.Cache.MaxSize)
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max retries must not be negative, got %d", c.Retry.MaxRetries)
	}

	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}

	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("retry backoff factor must be at least 1, got %v", c.Retry.BackoffFactor)
	}

	c.Store.Driver = strings.ToLower(c.Store.Driver)
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("store path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}
	if c.Store.DataDir == "" {
		c.Store.DataDir = "data"
	}

	// Logs are always structured JSON
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/dashboard.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	// Check for config file in common locations
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/dashboard.log",
		},
		Cache: CacheConfig{
			MaxSize: 10,
		},
		Retry: RetryConfig{
			MaxRetries:            3,
			BaseDelay:             time.Second,
			BackoffFactor:         2,
			UseExponentialBackoff: true,
			MaxDelay:              30 * time.Second,
		},
		Store: StoreConfig{
			Driver:  "memory",
			Path:    "data/retry.db",
			DataDir: "data",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "dashcli",
			MetricsEnabled: true,
		},
	}
}
