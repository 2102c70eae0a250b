package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration.
// It is constructed once during startup validation and passed to all
// components; nothing re-reads the environment after that.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Generation  GenerationConfig
	Memory      MemoryConfig
	Lifecycle   LifecycleConfig
	LogLevel    string
	Environment string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// GenerationConfig holds the external generation service configuration
type GenerationConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// MemoryConfig holds memory guardian configuration
type MemoryConfig struct {
	Enabled        bool
	WarningBytes   uint64
	CriticalBytes  uint64
	MaxBytes       uint64
	SampleInterval time.Duration
}

// LifecycleConfig holds shutdown behavior configuration
type LifecycleConfig struct {
	DrainTimeout time.Duration
}

const megabyte = 1024 * 1024

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getPort(),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
		},
		Database: loadDatabaseConfig(),
		Generation: GenerationConfig{
			APIKey:  getEnv("GENERATION_API_KEY", ""),
			BaseURL: getEnv("GENERATION_BASE_URL", ""),
			Model:   getEnv("GENERATION_MODEL", "gpt-4o-mini"),
			Timeout: getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),
		},
		Memory: MemoryConfig{
			Enabled:        getEnvAsBool("MEMORY_MONITOR_ENABLED", true),
			WarningBytes:   uint64(getEnvAsInt("MEMORY_WARNING_MB", 300)) * megabyte,
			CriticalBytes:  uint64(getEnvAsInt("MEMORY_CRITICAL_MB", 400)) * megabyte,
			MaxBytes:       uint64(getEnvAsInt("MEMORY_MAX_MB", 450)) * megabyte,
			SampleInterval: getEnvAsDuration("MEMORY_SAMPLE_INTERVAL", 30*time.Second),
		},
		Lifecycle: LifecycleConfig{
			DrainTimeout: getEnvAsDuration("DRAIN_TIMEOUT", 10*time.Second),
		},
	}

	if missing := cfg.MissingKeys(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// MissingKeys returns the environment keys whose absence makes startup fatal.
// An empty slice means all required configuration is present.
func (c *Config) MissingKeys() []string {
	var missing []string
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		missing = append(missing, "DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" && c.Database.Host != "" {
		if c.Database.User == "" {
			missing = append(missing, "DB_USER")
		}
		if c.Database.Database == "" {
			missing = append(missing, "DB_NAME")
		}
	}
	if c.Generation.APIKey == "" {
		missing = append(missing, "GENERATION_API_KEY")
	}
	return missing
}

// Validate checks configuration consistency beyond required-key presence
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	if c.Memory.Enabled {
		if c.Memory.WarningBytes >= c.Memory.CriticalBytes || c.Memory.CriticalBytes >= c.Memory.MaxBytes {
			return fmt.Errorf("memory thresholds must be ascending: warning < critical < max")
		}
		if c.Memory.SampleInterval <= 0 {
			return fmt.Errorf("memory sample interval must be positive")
		}
	}
	if c.Lifecycle.DrainTimeout <= 0 {
		return fmt.Errorf("drain timeout must be positive")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", ""),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", ""),
		Password:        getEnv("DB_PASSWORD", ""),
		Database:        getEnv("DB_NAME", ""),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
