// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	PHOTARK_HOST="0.0.0.0"
//	PHOTARK_PORT="8080"
//	PHOTARK_HEALTH_PORT="9090"
//	PHOTARK_READ_TIMEOUT="15s"
//	PHOTARK_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	PHOTARK_POSTGRES_URL="postgres://localhost/photark"
//	PHOTARK_POSTGRES_MAX_CONNS="25"
//	PHOTARK_MIGRATE_ON_START="true"
//
// Search settings:
//
//	PHOTARK_SEARCH_MAX_PAGE_SIZE="100"
//
// Cache settings:
//
//	PHOTARK_REDIS_ADDR="localhost:6379"
//	PHOTARK_ACCESS_CACHE_TTL="15m"
//	PHOTARK_REFDATA_CACHE_TTL="10m"
//	PHOTARK_REFDATA_WARM_SCHEDULE="*/15 * * * *"
//
// Observability settings:
//
//	PHOTARK_LOG_LEVEL="info"  # debug, info, warn, error
//	PHOTARK_METRICS_ENABLED="true"
//	PHOTARK_OTEL_ENABLED="true"
//	PHOTARK_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/observability: Uses observability configuration
//   - pkg/refdata: Uses cache and warmer configuration
package config
