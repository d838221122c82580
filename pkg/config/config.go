package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lumapix/photark/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Access-control configuration
	Access AccessConfig

	// Search configuration
	Search SearchConfig

	// Reference-data configuration
	RefData RefDataConfig

	// Rate-limit configuration
	RateLimit RateLimitConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrateOnStart runs pending schema migrations during boot.
	MigrateOnStart bool
}

// RedisConfig holds the optional shared-cache backend. Redis is enabled when
// Addr is non-empty; the service runs fine without it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AccessConfig tunes the effective-access resolver cache
type AccessConfig struct {
	CacheTTL  time.Duration
	CacheSize int
}

// SearchConfig tunes the photo search service
type SearchConfig struct {
	// MaxPageSize caps a single search result page.
	MaxPageSize int
}

// RefDataConfig tunes the reference-data caches and warmer
type RefDataConfig struct {
	CacheTTL  time.Duration
	CacheSize int

	// WarmSchedule is a cron spec; empty disables the warmer.
	WarmSchedule string
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled bool

	// Distributed switches to Redis-backed counters shared across replicas.
	// Requires a Redis address.
	Distributed bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection

	// Fraction of root traces to sample, 0.0 to 1.0
	OTelSampleRatio float64
	// How often accumulated metrics are pushed to the collector
	OTelMetricInterval time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Access:        loadAccessConfig(),
		Search:        loadSearchConfig(),
		RefData:       loadRefDataConfig(),
		RateLimit:     loadRateLimitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PHOTARK_HOST", "0.0.0.0"),
		Port:            getEnv("PHOTARK_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PHOTARK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PHOTARK_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PHOTARK_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PHOTARK_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("PHOTARK_MAX_BODY_BYTES", 1<<20),
		HealthPort:      getEnv("PHOTARK_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("PHOTARK_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("PHOTARK_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("PHOTARK_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("PHOTARK_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		MigrateOnStart:  getEnvBool("PHOTARK_MIGRATE_ON_START", true),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("PHOTARK_REDIS_ADDR", ""),
		Password: getEnv("PHOTARK_REDIS_PASSWORD", ""),
		DB:       getEnvInt("PHOTARK_REDIS_DB", 0),
	}
}

// loadAccessConfig loads resolver cache settings from environment
func loadAccessConfig() AccessConfig {
	return AccessConfig{
		CacheTTL:  getEnvDuration("PHOTARK_ACCESS_CACHE_TTL", 15*time.Minute),
		CacheSize: getEnvInt("PHOTARK_ACCESS_CACHE_SIZE", 4096),
	}
}

// loadSearchConfig loads search settings from environment
func loadSearchConfig() SearchConfig {
	return SearchConfig{
		MaxPageSize: getEnvInt("PHOTARK_SEARCH_MAX_PAGE_SIZE", 100),
	}
}

// loadRefDataConfig loads reference-data cache settings from environment
func loadRefDataConfig() RefDataConfig {
	return RefDataConfig{
		CacheTTL:     getEnvDuration("PHOTARK_REFDATA_CACHE_TTL", 10*time.Minute),
		CacheSize:    getEnvInt("PHOTARK_REFDATA_CACHE_SIZE", 4096),
		WarmSchedule: getEnv("PHOTARK_REFDATA_WARM_SCHEDULE", ""),
	}
}

// loadRateLimitConfig loads rate limiting settings from environment
func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:     getEnvBool("PHOTARK_RATELIMIT_ENABLED", true),
		Distributed: getEnvBool("PHOTARK_RATELIMIT_DISTRIBUTED", false),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("PHOTARK_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("PHOTARK_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PHOTARK_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PHOTARK_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PHOTARK_OTEL_SERVICE_NAME", "photark"),
		OTelServiceVersion: getEnv("PHOTARK_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PHOTARK_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("PHOTARK_OTEL_SAMPLE_RATIO", 1.0),
		OTelMetricInterval: getEnvDuration("PHOTARK_OTEL_METRIC_INTERVAL", 30*time.Second),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxOpenConns < c.Database.MaxIdleConns {
		return fmt.Errorf("postgres max connections must be >= idle connections")
	}

	if c.Search.MaxPageSize < 1 {
		return fmt.Errorf("search max page size must be positive")
	}

	if c.RateLimit.Distributed && c.Redis.Addr == "" {
		return fmt.Errorf("distributed rate limiting requires a Redis address")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
		if c.Observability.OTelMetricInterval <= 0 {
			return fmt.Errorf("OpenTelemetry metric interval must be positive")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float64 environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
