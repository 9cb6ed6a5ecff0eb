package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override, e.g. GLADOS_SERVER_PORT
const EnvPrefix = "GLADOS"

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Storage StorageConfig `yaml:"storage" envconfig:"STORAGE"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Status  StatusConfig  `yaml:"status" envconfig:"STATUS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string   `yaml:"host" envconfig:"HOST"`
	Port         int      `yaml:"port" envconfig:"PORT"`
	CORSOrigins  []string `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`
	ReadTimeout  int      `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`   // seconds
	WriteTimeout int      `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"` // seconds
	// APIToken, when set, is required as a Bearer token on mutating API routes.
	APIToken string `yaml:"api_token" envconfig:"API_TOKEN"`
}

// StorageConfig contains storage configuration
type StorageConfig struct {
	Type    string        `yaml:"type" envconfig:"TYPE"` // memory, file, sqlite, mongodb
	File    FileConfig    `yaml:"file" envconfig:"FILE"`
	SQLite  SQLiteConfig  `yaml:"sqlite" envconfig:"SQLITE"`
	MongoDB MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
}

// FileConfig contains JSON snapshot storage configuration
type FileConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR"`
}

// SQLiteConfig contains SQLite-specific configuration
type SQLiteConfig struct {
	Path string `yaml:"path" envconfig:"DB_PATH"`
}

// MongoDBConfig contains MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string `yaml:"uri" envconfig:"URI"`
	Database string `yaml:"database" envconfig:"DATABASE"`
	Timeout  int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// StatusConfig controls server reachability probes
type StatusConfig struct {
	TimeoutMS   int             `yaml:"timeout_ms" envconfig:"TIMEOUT_MS"`
	Concurrency int             `yaml:"concurrency" envconfig:"CONCURRENCY"` // parallel probes for bulk status
	RateLimit   RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig limits status probes per client IP. A zero rate disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"RPS"`
	Burst             int     `yaml:"burst" envconfig:"BURST"`
}

// Timeout returns the probe timeout as a duration
func (c *StatusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// LoadEnvFile loads variables from the dotenv file named by ENV_FILE (default
// .env) into the process environment. A missing file is not an error.
func LoadEnvFile() error {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			CORSOrigins:  []string{"*"},
			ReadTimeout:  15,
			WriteTimeout: 15,
		},
		Storage: StorageConfig{
			Type: "sqlite",
			File: FileConfig{
				Dir: "data",
			},
			SQLite: SQLiteConfig{
				Path: "data/glados.db",
			},
			MongoDB: MongoDBConfig{
				URI:      "mongodb://localhost:27017",
				Database: "glados",
				Timeout:  10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Status: StatusConfig{
			TimeoutMS:   2000,
			Concurrency: 16,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 10,
				Burst:             20,
			},
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Storage.Type {
	case "memory":
	case "file":
		if c.Storage.File.Dir == "" {
			return fmt.Errorf("file dir is required when using file storage")
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required when using sqlite storage")
		}
	case "mongodb":
		if c.Storage.MongoDB.URI == "" {
			return fmt.Errorf("mongodb uri is required when using mongodb storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, file, sqlite, or mongodb)", c.Storage.Type)
	}

	if c.Status.TimeoutMS <= 0 {
		return fmt.Errorf("status timeout_ms must be positive, got %d", c.Status.TimeoutMS)
	}

	if c.Status.Concurrency < 1 {
		return fmt.Errorf("status concurrency must be at least 1, got %d", c.Status.Concurrency)
	}

	if c.Status.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("status rate limit must not be negative")
	}

	if c.Status.RateLimit.RequestsPerSecond > 0 && c.Status.RateLimit.Burst < 1 {
		return fmt.Errorf("status rate limit burst must be at least 1")
	}

	return nil
}

// Address returns the server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
