// ABOUTME: Centralized configuration for the turn-orchestration core
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the turn core
type Config struct {
	// Charm settings
	CharmHost   string
	CharmDBName string
	AutoSync    bool

	// OpenAI settings
	OpenAIKey  string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// Turn settings
	CreditPerTurn  int64
	HistoryWindow  int
	DefaultUser    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		CharmHost:     getEnv("CHARM_HOST", "cloud.charm.sh"),
		CharmDBName:   getEnv("CHARM_DB", "compass"),
		AutoSync:      getEnvBool("CHARM_AUTO_SYNC", true),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		ChatModel:     getEnv("COMPASS_OPENAI_MODEL", "gpt-4o-mini"),
		Timeout:       getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		MaxRetries:    getEnvInt("OPENAI_MAX_RETRIES", 3),
		RetryDelay:    getEnvDuration("OPENAI_RETRY_DELAY", 2*time.Second),
		CreditPerTurn: int64(getEnvInt("COMPASS_CREDIT_PER_TURN", 1)),
		HistoryWindow: getEnvInt("COMPASS_HISTORY_WINDOW", 40),
		DefaultUser:   getEnv("COMPASS_USER_CODE", "local"),
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("OPENAI_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.CreditPerTurn < 0 {
		return fmt.Errorf("COMPASS_CREDIT_PER_TURN must be non-negative, got %d", c.CreditPerTurn)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("COMPASS_HISTORY_WINDOW must be non-negative, got %d", c.HistoryWindow)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
