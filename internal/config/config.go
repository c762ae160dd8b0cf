// Package config provides configuration management for the FundSight application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Scoring   ScoringConfig   `mapstructure:"scoring" validate:"required"`
	Backtest  BacktestConfig  `mapstructure:"backtest" validate:"required"`
	Providers ProvidersConfig `mapstructure:"providers" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ScoringConfig represents scoring engine configuration
type ScoringConfig struct {
	BenchmarkIndex     string  `mapstructure:"benchmark_index" validate:"required"`
	RiskFreeRate       float64 `mapstructure:"risk_free_rate" validate:"gte=0,lte=1"`
	MaxConcurrentFunds int     `mapstructure:"max_concurrent_funds" validate:"required,gt=0"`
	FundsPerSecond     float64 `mapstructure:"funds_per_second" validate:"gt=0"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	StartDate          string  `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string  `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	InitialAmount      float64 `mapstructure:"initial_amount" validate:"required,gt=0"`
	RebalanceFrequency string  `mapstructure:"rebalance_frequency" validate:"required,rebalance"`
	RebalanceThreshold float64 `mapstructure:"rebalance_threshold" validate:"gte=0,lte=100"`
	RiskFreeRate       float64 `mapstructure:"risk_free_rate" validate:"gte=0,lte=1"`
	DefaultRiskProfile string  `mapstructure:"default_risk_profile" validate:"omitempty,riskprofile"`
}

// ProvidersConfig represents external data provider configuration
type ProvidersConfig struct {
	NavFeed NavFeedConfig `mapstructure:"nav_feed" validate:"required"`
}

// NavFeedConfig represents the upstream fund-data API configuration
type NavFeedConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	BaseURL         string  `mapstructure:"base_url" validate:"required,url"`
	APIKey          string  `mapstructure:"api_key"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts   int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimit       float64 `mapstructure:"rate_limit" validate:"gt=0"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int     `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// NavFeedTimeout returns the nav feed request timeout as a duration
func (c *Config) NavFeedTimeout() time.Duration {
	return time.Duration(c.Providers.NavFeed.TimeoutSeconds) * time.Second
}

// NavCacheTTL returns the nav cache TTL as a duration
func (c *Config) NavCacheTTL() time.Duration {
	return time.Duration(c.Providers.NavFeed.CacheTTLSeconds) * time.Second
}

// BacktestWindow parses the configured backtest date range
func (c *Config) BacktestWindow() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01-02", c.Backtest.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest start_date: %w", err)
	}
	end, err = time.Parse("2006-01-02", c.Backtest.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest end_date: %w", err)
	}
	return start, end, nil
}
