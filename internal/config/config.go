// Package config provides configuration for the run driver service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort int
	RPCPort  int

	// Database
	DatabaseURL string

	// Sandbox
	SandboxRoot     string
	SandboxReadOnly bool
	PolicyFile      string

	// Provider
	Mode            string
	ProviderURL     string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	// Run driver
	PollInterval    time.Duration
	PollMaxAttempts int
	MaxIterations   int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		RPCPort:         getEnvInt("RPC_PORT", 8081),
		DatabaseURL:     getEnv("DATABASE_URL", "file:assistant.db?cache=shared&mode=rwc"),
		SandboxRoot:     getEnv("SANDBOX_ROOT", "tmp/assistant-changes"),
		SandboxReadOnly: getEnvBool("SANDBOX_READ_ONLY", false),
		PolicyFile:      getEnv("POLICY_FILE", ""),
		Mode:            getEnv("GOGO_MODE", ""),
		ProviderURL:     getEnv("PROVIDER_URL", "https://api.openai.com"),
		ProviderAPIKey:  getEnv("PROVIDER_API_KEY", getEnv("OPENAI_API_KEY", "")),
		ProviderTimeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", 30000)) * time.Millisecond,
		PollInterval:    time.Duration(getEnvInt("POLL_INTERVAL_MS", 300)) * time.Millisecond,
		PollMaxAttempts: getEnvInt("POLL_MAX_ATTEMPTS", 100),
		MaxIterations:   getEnvInt("MAX_ITERATIONS", 20),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
