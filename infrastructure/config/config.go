package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Environment string

	// AWS configuration
	AWSRegion       string
	DimensionsTable string
	SnapshotsTable  string
	FeaturesTable   string
	LocksTable      string
	EventBusName    string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Analytics
	AnalyticsEnvironment string // selects the analytics threshold profile
	Dimensions           []string

	// Scheduling
	SnapshotCron    string
	CalibrationCron string

	// Query cache
	CategorizationCacheTTL int // seconds

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		AWSRegion:       getEnv("AWS_REGION", "us-west-2"),
		DimensionsTable: getEnv("DIMENSIONS_TABLE", "dnacore-dimensions"),
		SnapshotsTable:  getEnv("SNAPSHOTS_TABLE", "dnacore-snapshots"),
		FeaturesTable:   getEnv("FEATURES_TABLE", "dnacore-features"),
		LocksTable:      getEnv("LOCKS_TABLE", "dnacore-locks"),
		EventBusName:    getEnv("EVENT_BUS_NAME", "dnacore-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// Analytics
		AnalyticsEnvironment: getEnv("ANALYTICS_PROFILE", getEnv("ENVIRONMENT", "development")),
		Dimensions:           getEnvList("DIMENSIONS", []string{"engagement", "spending", "activity"}),

		// Scheduling
		SnapshotCron:    getEnv("SNAPSHOT_CRON", "0 3 * * *"),
		CalibrationCron: getEnv("CALIBRATION_CRON", "0 4 * * 0"),

		// Query cache
		CategorizationCacheTTL: getEnvInt("CATEGORIZATION_CACHE_TTL", 300),

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.DimensionsTable == "" {
			return fmt.Errorf("DIMENSIONS_TABLE is required")
		}
		if c.SnapshotsTable == "" {
			return fmt.Errorf("SNAPSHOTS_TABLE is required")
		}
		if c.FeaturesTable == "" {
			return fmt.Errorf("FEATURES_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}
	if len(c.Dimensions) == 0 {
		return fmt.Errorf("at least one dimension must be configured")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList gets a comma-separated environment variable with a default value
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
