// Package config provides configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Backend kinds
const (
	RelationalBackend = "relational"
	ColumnarBackend   = "columnar"
)

// ErrNoBackend means neither a relational nor a columnar connection is
// configured. The process must not start without one.
var ErrNoBackend = errors.New("no analytics backend configured: set CLICKHOUSE_URL or DATABASE_URL")

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Storage settings
	DatabaseURL                    string `mapstructure:"databaseurl"`
	ClickHouseURL                  string `mapstructure:"clickhouseurl"`
	DatabaseMaxOpenConns           int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns           int    `mapstructure:"dbmaxidleconns"`
	DatabaseConnMaxLifetimeSeconds int    `mapstructure:"dbconnmaxlifetimeseconds"`

	// Query settings
	QueryTimeoutSeconds int `mapstructure:"querytimeoutseconds"`
	QueryParallelism    int `mapstructure:"queryparallelism"`

	// APIKey guards the analytics routes. Empty leaves them open outside
	// production.
	APIKey string `mapstructure:"apikey"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("appname", "pulse")
	v.SetDefault("appport", "3000")
	v.SetDefault("environment", Development)
	v.SetDefault("loglevel", string(LogLevelDebug))
	v.SetDefault("logsdir", "")
	v.SetDefault("logsmaxsizeinmb", 20)
	v.SetDefault("logsmaxbackups", 10)
	v.SetDefault("logsmaxageindays", 30)
	v.SetDefault("databaseurl", "")
	v.SetDefault("clickhouseurl", "")
	v.SetDefault("dbmaxopenconns", 0)
	v.SetDefault("dbmaxidleconns", 0)
	v.SetDefault("dbconnmaxlifetimeseconds", 300)
	v.SetDefault("querytimeoutseconds", 30)
	v.SetDefault("queryparallelism", 4)
	v.SetDefault("apikey", "")

	v.BindEnv("appname", "PULSE_APP_NAME")
	v.BindEnv("appport", "PULSE_APP_PORT")
	v.BindEnv("environment", "PULSE_ENV")
	v.BindEnv("loglevel", "PULSE_LOG_LEVEL")
	v.BindEnv("logsdir", "PULSE_LOGS_DIR")
	v.BindEnv("logsmaxsizeinmb", "PULSE_LOGS_MAX_SIZE_IN_MB")
	v.BindEnv("logsmaxbackups", "PULSE_LOGS_MAX_BACKUPS")
	v.BindEnv("logsmaxageindays", "PULSE_LOGS_MAX_AGE_IN_DAYS")
	v.BindEnv("databaseurl", "DATABASE_URL")
	v.BindEnv("clickhouseurl", "CLICKHOUSE_URL")
	v.BindEnv("dbmaxopenconns", "PULSE_DB_MAX_OPEN_CONNS")
	v.BindEnv("dbmaxidleconns", "PULSE_DB_MAX_IDLE_CONNS")
	v.BindEnv("dbconnmaxlifetimeseconds", "PULSE_DB_CONN_MAX_LIFETIME_SECONDS")
	v.BindEnv("querytimeoutseconds", "PULSE_QUERY_TIMEOUT_SECONDS")
	v.BindEnv("queryparallelism", "PULSE_QUERY_PARALLELISM")
	v.BindEnv("apikey", "PULSE_API_KEY")

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.QueryParallelism < 1 {
		return fmt.Errorf("query parallelism must be at least 1, got %d", c.QueryParallelism)
	}
	if c.QueryTimeoutSeconds < 0 {
		return fmt.Errorf("query timeout cannot be negative, got %d", c.QueryTimeoutSeconds)
	}
	if c.Environment == Production && c.APIKey == "" {
		return fmt.Errorf("PULSE_API_KEY is required in production")
	}

	return nil
}

// Backend resolves which store serves analytics reads. The columnar store
// wins when both are configured.
func (c *Config) Backend() (string, error) {
	switch {
	case c.ClickHouseURL != "":
		return ColumnarBackend, nil
	case c.DatabaseURL != "":
		return RelationalBackend, nil
	default:
		return "", ErrNoBackend
	}
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 2
// - Development/Production: 10 (attribution and revenue fan out several reads per request)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 2
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1
// - Development/Production: 5 (keep half the pool warm for reuse)
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// ConnMaxLifetime is how long a pooled connection may be reused.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DatabaseConnMaxLifetimeSeconds) * time.Second
}

// QueryTimeout bounds a single analytics request. Zero disables the bound.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}
