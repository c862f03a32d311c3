// Package config provides configuration management for snowcortex.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/snowcortex/pkg/cortex"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Cortex    CortexConfig    `mapstructure:"cortex"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
	Generate  GenerateConfig  `mapstructure:"generate"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CortexConfig configures the Cortex model call
type CortexConfig struct {
	Model       string   `mapstructure:"model"`
	Function    string   `mapstructure:"function"`
	Temperature float64  `mapstructure:"temperature"`
	TopP        float64  `mapstructure:"top_p"`
	MaxTokens   int      `mapstructure:"max_tokens"`
	Stop        []string `mapstructure:"stop"`
}

// SnowflakeConfig holds non-secret connection settings. Anything left empty
// falls back to the SNOWFLAKE_* environment variables. Passwords are read
// from the environment only.
type SnowflakeConfig struct {
	Account       string `mapstructure:"account"`
	Username      string `mapstructure:"username"`
	Database      string `mapstructure:"database"`
	Schema        string `mapstructure:"schema"`
	Warehouse     string `mapstructure:"warehouse"`
	Role          string `mapstructure:"role"`
	Authenticator string `mapstructure:"authenticator"`
}

// GenerateConfig configures batch generation
type GenerateConfig struct {
	MaxParallel int `mapstructure:"max_parallel"`
}

// CacheConfig configures the reply cache
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// LoggingConfig configures logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName(".snowcortex")
		v.SetConfigType("yaml")

		// Current directory
		v.AddConfigPath(".")

		// Home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "snowcortex"))
			v.AddConfigPath(home)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay, we'll use defaults
	}

	// Override with environment variables, e.g. SNOWCORTEX_CORTEX_MODEL
	v.SetEnvPrefix("SNOWCORTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Cortex defaults
	v.SetDefault("cortex.model", cortex.DefaultModel)
	v.SetDefault("cortex.function", cortex.DefaultFunction)
	v.SetDefault("cortex.temperature", 0.0)
	v.SetDefault("cortex.top_p", 1.0)
	v.SetDefault("cortex.max_tokens", 2048)
	v.SetDefault("cortex.stop", []string{})

	// Snowflake keys are registered so environment overrides bind on Unmarshal
	for _, key := range []string{"account", "username", "database", "schema", "warehouse", "role", "authenticator"} {
		v.SetDefault("snowflake."+key, "")
	}

	// Generate defaults
	v.SetDefault("generate.max_parallel", 1)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("cache.ttl", 24*time.Hour)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".snowcortex", "cache.db")
	}
	return filepath.Join(dir, "snowcortex", "cache.db")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate Cortex config
	if strings.TrimSpace(c.Cortex.Model) == "" {
		return fmt.Errorf("cortex.model is required")
	}
	if err := cortex.ValidateFunction(c.Cortex.Function); err != nil {
		return fmt.Errorf("cortex.function: %w", err)
	}
	if c.Cortex.Temperature < 0 || c.Cortex.Temperature > 1.0 {
		return fmt.Errorf("cortex.temperature must be between 0 and 1.0")
	}
	if c.Cortex.TopP < 0 || c.Cortex.TopP > 1.0 {
		return fmt.Errorf("cortex.top_p must be between 0 and 1.0")
	}
	if c.Cortex.MaxTokens <= 0 {
		return fmt.Errorf("cortex.max_tokens must be positive")
	}

	// Validate generate config
	if c.Generate.MaxParallel <= 0 {
		return fmt.Errorf("generate.max_parallel must be positive")
	}

	// Validate cache config
	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required when the cache is enabled")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: console, json")
	}

	return nil
}

// ConnectionSettings converts the snowflake section into explicit adapter settings
func (c *Config) ConnectionSettings() cortex.ConnectionSettings {
	return cortex.ConnectionSettings{
		Account:       c.Snowflake.Account,
		Username:      c.Snowflake.Username,
		Database:      c.Snowflake.Database,
		Schema:        c.Snowflake.Schema,
		Warehouse:     c.Snowflake.Warehouse,
		Role:          c.Snowflake.Role,
		Authenticator: c.Snowflake.Authenticator,
	}
}

// ChatOptions returns the adapter options described by the configuration
func (c *Config) ChatOptions() []cortex.Option {
	return []cortex.Option{
		cortex.WithConnectionSettings(c.ConnectionSettings()),
		cortex.WithModel(c.Cortex.Model),
		cortex.WithCortexFunction(c.Cortex.Function),
		cortex.WithTemperature(c.Cortex.Temperature),
		cortex.WithTopP(c.Cortex.TopP),
		cortex.WithMaxTokens(c.Cortex.MaxTokens),
		cortex.WithMaxParallel(c.Generate.MaxParallel),
	}
}

// GetLogLevel returns the zerolog level based on config
func (c *Config) GetLogLevel() zerolog.Level {
	switch c.Logging.Level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// IsJSONFormat returns true if logging format is JSON
func (c *Config) IsJSONFormat() bool {
	return c.Logging.Format == "json"
}
