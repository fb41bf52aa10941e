// Package config provides configuration management for the EDI gateway.
// It loads connection settings from environment variables and .env files,
// and the acknowledgment profile from an optional YAML settings file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	SFTP  SFTPConfig
	Data  DataConfig
	Debug bool
}

// SFTPConfig represents the trading partner SFTP endpoint.
type SFTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	HomeDir  string
}

// DataConfig represents the local data layout.
type DataConfig struct {
	Root   string
	DBPath string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	port, err := parseIntEnv("SFTP_PORT", 22)
	if err != nil {
		return nil, fmt.Errorf("invalid SFTP_PORT: %w", err)
	}

	config := &Config{
		SFTP: SFTPConfig{
			Host:     os.Getenv("SFTP_HOST"),
			Port:     port,
			User:     os.Getenv("SFTP_USER"),
			Password: os.Getenv("SFTP_PASSWORD"),
			HomeDir:  getEnvOrDefault("SFTP_HOME_DIR", "/"),
		},
		Data: DataConfig{
			Root:   getEnvOrDefault("EDI_DATA_ROOT", "./data"),
			DBPath: os.Getenv("EDI_DB_PATH"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "sftp":
			switch path[1] {
			case "host":
				value = c.SFTP.Host
			case "user":
				value = c.SFTP.User
			case "password":
				value = c.SFTP.Password
			case "homeDir":
				value = c.SFTP.HomeDir
			}
		case "data":
			switch path[1] {
			case "root":
				value = c.Data.Root
			case "dbPath":
				value = c.Data.DBPath
			}
		}

		if value == "" {
			missing = append(missing, joinPath(path))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

// joinPath joins a path slice into a dot-separated string.
func joinPath(path []string) string {
	result := ""
	for i, p := range path {
		if i > 0 {
			result += "."
		}
		result += p
	}
	return result
}
