package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfigYAML = `
app:
  name: fundsight
  environment: development
  log_level: debug
database:
  host: localhost
  port: 5432
  name: fundsight_test
  user: fundsight
  password: secret
  ssl_mode: disable
  max_connections: 10
  max_idle_connections: 5
scoring:
  benchmark_index: NIFTY50
  risk_free_rate: 0.065
  max_concurrent_funds: 4
  funds_per_second: 10
backtest:
  start_date: "2020-01-01"
  end_date: "2023-12-31"
  initial_amount: 100000
  rebalance_frequency: quarterly
  rebalance_threshold: 0
  risk_free_rate: 0.065
providers:
  nav_feed:
    enabled: false
    base_url: https://api.example.com/v1
    timeout_seconds: 30
    retry_attempts: 3
    rate_limit: 10
    cache_ttl_seconds: 3600
    cache_max_size: 1000
metrics:
  enabled: true
  port: 9090
  path: /metrics
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfigFile(t, validConfigYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "fundsight" {
		t.Errorf("app name %q", cfg.App.Name)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("database port %d", cfg.Database.Port)
	}
	if cfg.Scoring.BenchmarkIndex != "NIFTY50" {
		t.Errorf("benchmark index %q", cfg.Scoring.BenchmarkIndex)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "supersecret")

	content := strings.Replace(validConfigYAML, "password: secret", "password: ${TEST_DB_PASSWORD}", 1)
	path := writeConfigFile(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Password != "supersecret" {
		t.Errorf("password %q, want expanded env var", cfg.Database.Password)
	}
}

func TestLoadWithDefaultsNoFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Environment != "development" {
		t.Errorf("environment %q", cfg.App.Environment)
	}
	if cfg.Scoring.MaxConcurrentFunds != 8 {
		t.Errorf("max_concurrent_funds %d", cfg.Scoring.MaxConcurrentFunds)
	}
	if !cfg.Metrics.Enabled {
		t.Error("metrics should default to enabled")
	}
}

func TestValidateRejectsBadEnvironment(t *testing.T) {
	path := writeConfigFile(t, strings.Replace(validConfigYAML, "environment: development", "environment: testing", 1))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for bad environment")
	}
}

func TestValidateRejectsBadRebalanceFrequency(t *testing.T) {
	path := writeConfigFile(t, strings.Replace(validConfigYAML, "rebalance_frequency: quarterly", "rebalance_frequency: hourly", 1))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for bad rebalance frequency")
	}
}

func TestValidateRejectsInvertedDateRange(t *testing.T) {
	content := strings.Replace(validConfigYAML, `start_date: "2020-01-01"`, `start_date: "2024-01-01"`, 1)
	path := writeConfigFile(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for inverted date range")
	}
}

func TestValidateRejectsThresholdModeWithoutThreshold(t *testing.T) {
	content := strings.Replace(validConfigYAML, "rebalance_frequency: quarterly", "rebalance_frequency: threshold", 1)
	path := writeConfigFile(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for threshold mode without a threshold")
	}
}

func TestValidateProductionRequiresSSL(t *testing.T) {
	content := strings.Replace(validConfigYAML, "environment: development", "environment: production", 1)
	path := writeConfigFile(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for disabled SSL in production")
	}
}

func TestValidateEnabledFeedRequiresAPIKey(t *testing.T) {
	content := strings.Replace(validConfigYAML, "enabled: false", "enabled: true", 1)
	path := writeConfigFile(t, content)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for enabled feed without API key")
	}
}
