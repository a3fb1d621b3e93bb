package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	KiteAPIKey      string
	KiteAPISecret   string
	KiteAccessToken string
	SnapshotPath    string
	SnapshotCron    string
	LogLevel        string
	Port            int
	DevMode         bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvAsInt("PORT", 8000),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		KiteAPIKey:      getEnv("KITE_API_KEY", ""),
		KiteAPISecret:   getEnv("KITE_API_SECRET", ""),
		KiteAccessToken: getEnv("KITE_ACCESS_TOKEN", ""),
		SnapshotPath:    getEnv("SNAPSHOT_PATH", "./data/portfolio_snapshot.json"),
		SnapshotCron:    getEnv("SNAPSHOT_CRON", ""), // empty = external scheduler only
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
// The access token is deliberately optional: it is rotated daily by the
// operator through the /auth/login flow and may be absent at boot.
func (c *Config) Validate() error {
	if c.KiteAPIKey == "" || c.KiteAPISecret == "" {
		return fmt.Errorf("KITE_API_KEY and KITE_API_SECRET are required")
	}
	if c.SnapshotPath == "" {
		return fmt.Errorf("SNAPSHOT_PATH is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
