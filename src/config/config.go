package config

import (
	"fmt"
	"os"
	"strings"

	"dashboard-observer/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets and endpoints from the YAML file.
const (
	EnvAPIToken  = "DASHBOARD_API_TOKEN"
	EnvJWTSecret = "DASHBOARD_JWT_SECRET"
	EnvBaseURL   = "DASHBOARD_BACKEND_URL"
	EnvRedisURL  = "DASHBOARD_REDIS_URL"
	EnvAMQPURL   = "DASHBOARD_AMQP_URL"
	EnvDBConn    = "DASHBOARD_DB_CONNECTION"
)

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

// Parse builds a Config from raw YAML, applying defaults, .env and
// environment overrides, then validates it.
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// A missing .env is normal outside development.
	_ = godotenv.Load()
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DataRetentionDays == 0 {
		c.Storage.DataRetentionDays = 30
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "dashboard-observer/1.0"
	}
	if c.Analytics.DefaultTimeframe == "" {
		c.Analytics.DefaultTimeframe = string(models.TimeframeMonth)
	}
	if c.Analytics.RefreshIntervalSeconds == 0 {
		c.Analytics.RefreshIntervalSeconds = 300
	}
	if c.Analytics.SupersedePolicy == "" {
		c.Analytics.SupersedePolicy = "generation"
	}
	if c.Analytics.MaxChartPoints == 0 {
		c.Analytics.MaxChartPoints = 50
	}
	if c.Realtime.PollIntervalSeconds == 0 {
		c.Realtime.PollIntervalSeconds = 30
	}
	if c.Realtime.HistorySize == 0 {
		c.Realtime.HistorySize = 120
	}
	if c.Realtime.MaxMemoryMB == 0 {
		c.Realtime.MaxMemoryMB = 256
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "dashboard"
	}
	if c.Messaging.Exchange == "" {
		c.Messaging.Exchange = "dashboard.events"
	}
	if c.Backend.JWTTTLSeconds == 0 {
		c.Backend.JWTTTLSeconds = 300
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Backend.APIToken, EnvAPIToken)
	override(&c.Backend.JWTSecret, EnvJWTSecret)
	override(&c.Backend.BaseURL, EnvBaseURL)
	override(&c.Cache.RedisURL, EnvRedisURL)
	override(&c.Messaging.AMQPURL, EnvAMQPURL)
	override(&c.Storage.DBConnectionString, EnvDBConn)
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	case "none":
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.DataRetentionDays < 0 {
		return fmt.Errorf("data retention days cannot be negative")
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Backend
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base url cannot be empty")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base url must start with http:// or https://: %s", c.Backend.BaseURL)
	}

	// Analytics
	if _, err := models.ParseTimeframe(c.Analytics.DefaultTimeframe); err != nil {
		return fmt.Errorf("invalid default timeframe: %w", err)
	}
	if c.Analytics.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("refresh interval must be greater than 0")
	}
	if c.Analytics.SupersedePolicy != "generation" && c.Analytics.SupersedePolicy != "last_write" {
		return fmt.Errorf("supersede policy must be 'generation' or 'last_write', got '%s'", c.Analytics.SupersedePolicy)
	}
	if c.Analytics.MaxChartPoints < 2 {
		return fmt.Errorf("max chart points must be at least 2")
	}

	// Realtime
	if c.Realtime.PollIntervalSeconds <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.Realtime.HistorySize <= 0 {
		return fmt.Errorf("realtime history size must be greater than 0")
	}
	if c.Realtime.MaxMemoryMB < 0 {
		return fmt.Errorf("realtime max memory cannot be negative")
	}

	// Cache / messaging
	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("redis url cannot be empty when cache is enabled")
	}
	if c.Cache.RefreshRateLimit < 0 {
		return fmt.Errorf("refresh rate limit cannot be negative")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache ttl must be greater than 0")
	}
	if c.Messaging.Enabled && c.Messaging.AMQPURL == "" {
		return fmt.Errorf("amqp url cannot be empty when messaging is enabled")
	}

	return nil
}

// -----------------------------------------------------------------------------

// DefaultTimeframe returns the validated default timeframe.
func (c *Config) DefaultTimeframe() models.MTimeframe {
	tf, err := models.ParseTimeframe(c.Analytics.DefaultTimeframe)
	if err != nil {
		return models.TimeframeMonth
	}
	return tf
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
