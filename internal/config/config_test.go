// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies environment variable parsing and validation
package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment to test defaults
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CharmHost != "cloud.charm.sh" {
		t.Errorf("CharmHost = %s, want cloud.charm.sh", cfg.CharmHost)
	}
	if cfg.CharmDBName != "compass" {
		t.Errorf("CharmDBName = %s, want compass", cfg.CharmDBName)
	}
	if !cfg.AutoSync {
		t.Error("AutoSync = false, want true")
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("ChatModel = %s, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.RetryDelay)
	}
	if cfg.CreditPerTurn != 1 {
		t.Errorf("CreditPerTurn = %d, want 1", cfg.CreditPerTurn)
	}
	if cfg.HistoryWindow != 40 {
		t.Errorf("HistoryWindow = %d, want 40", cfg.HistoryWindow)
	}
	if cfg.DefaultUser != "local" {
		t.Errorf("DefaultUser = %s, want local", cfg.DefaultUser)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("CHARM_HOST", "custom.charm.sh")
	os.Setenv("CHARM_DB", "test_db")
	os.Setenv("CHARM_AUTO_SYNC", "false")
	os.Setenv("OPENAI_API_KEY", "test-key")
	os.Setenv("COMPASS_OPENAI_MODEL", "gpt-4")
	os.Setenv("OPENAI_TIMEOUT", "60s")
	os.Setenv("OPENAI_MAX_RETRIES", "5")
	os.Setenv("OPENAI_RETRY_DELAY", "3s")
	os.Setenv("COMPASS_CREDIT_PER_TURN", "2")
	os.Setenv("COMPASS_HISTORY_WINDOW", "20")
	os.Setenv("COMPASS_USER_CODE", "alex")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CharmHost != "custom.charm.sh" {
		t.Errorf("CharmHost = %s, want custom.charm.sh", cfg.CharmHost)
	}
	if cfg.CharmDBName != "test_db" {
		t.Errorf("CharmDBName = %s, want test_db", cfg.CharmDBName)
	}
	if cfg.AutoSync {
		t.Error("AutoSync = true, want false")
	}
	if cfg.OpenAIKey != "test-key" {
		t.Errorf("OpenAIKey = %s, want test-key", cfg.OpenAIKey)
	}
	if cfg.ChatModel != "gpt-4" {
		t.Errorf("ChatModel = %s, want gpt-4", cfg.ChatModel)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Timeout)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.RetryDelay != 3*time.Second {
		t.Errorf("RetryDelay = %v, want 3s", cfg.RetryDelay)
	}
	if cfg.CreditPerTurn != 2 {
		t.Errorf("CreditPerTurn = %d, want 2", cfg.CreditPerTurn)
	}
	if cfg.HistoryWindow != 20 {
		t.Errorf("HistoryWindow = %d, want 20", cfg.HistoryWindow)
	}
	if cfg.DefaultUser != "alex" {
		t.Errorf("DefaultUser = %s, want alex", cfg.DefaultUser)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"retries too high", "OPENAI_MAX_RETRIES", "11"},
		{"negative retries", "OPENAI_MAX_RETRIES", "-1"},
		{"negative credit", "COMPASS_CREDIT_PER_TURN", "-5"},
		{"negative history window", "COMPASS_HISTORY_WINDOW", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tt.key, tt.value)
			defer os.Clearenv()

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail validation", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_MalformedValuesFallBackToDefaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("OPENAI_TIMEOUT", "not-a-duration")
	os.Setenv("COMPASS_CREDIT_PER_TURN", "not-a-number")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want default 30s", cfg.Timeout)
	}
	if cfg.CreditPerTurn != 1 {
		t.Errorf("CreditPerTurn = %d, want default 1", cfg.CreditPerTurn)
	}
}
