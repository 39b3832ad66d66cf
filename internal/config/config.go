package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	PriceFeed PriceFeedConfig
	Snapshot  SnapshotConfig
	FernetKey string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// PriceFeedConfig holds CoinGecko-specific configuration
type PriceFeedConfig struct {
	Currency string
	APIKey   string
}

// SnapshotConfig holds the snapshot job's schedule and retention policy
type SnapshotConfig struct {
	Schedule      string
	RetentionDays int
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/crypto_tracker.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		PriceFeed: PriceFeedConfig{
			Currency: getEnv("PRICE_FEED_CURRENCY", "aud"),
			APIKey:   getEnv("COINGECKO_API_KEY", ""),
		},
		Snapshot: SnapshotConfig{
			Schedule:      getEnv("SNAPSHOT_SCHEDULE", "0 0 * * *"),
			RetentionDays: getEnvInt("SNAPSHOT_RETENTION_DAYS", 365),
		},
		FernetKey: getEnv("FERNET_KEY", ""),
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
