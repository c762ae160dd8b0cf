package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fundsight/fundsight/internal/backtest"
	"github.com/fundsight/fundsight/internal/config"
	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/logger"
	"github.com/fundsight/fundsight/internal/metrics"
	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/repository"
)

var (
	configPath string

	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "fundsight",
	Short: "Mutual fund scoring and portfolio backtesting",
	Long: `fundsight scores mutual funds against their category peers and
backtests portfolio allocations over historical NAV data.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "Path to config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired dependencies every subcommand needs.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	db    *database.DB
	repos *repository.Repositories

	// nav and catalog point at the NAV feed when it is enabled, the
	// database otherwise.
	nav     provider.NavProvider
	catalog provider.FundCatalog
	index   provider.BenchmarkProvider
	cache   *provider.CachedNavProvider
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Clear()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) backtestEngine() (*backtest.Engine, error) {
	return backtest.NewEngine(backtest.Config{
		BenchmarkIndex: a.cfg.Scoring.BenchmarkIndex,
		RiskFreeRate:   a.cfg.Backtest.RiskFreeRate,
	}, a.nav, a.index, a.repos.Portfolio, a.log)
}

// buildApp loads config, connects the database, and picks the NAV data
// source. The NAV feed, when enabled, is wrapped in the TTL cache with the
// database catalog still serving signals and portfolios.
func buildApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return nil, fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	metrics.InitRegistry()

	db, err := database.Initialize(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     appLog,
		db:      db,
		repos:   repos,
		nav:     repos.Nav,
		catalog: repos.Fund,
		index:   repos.Index,
	}

	feed := cfg.Providers.NavFeed
	if feed.Enabled {
		httpCfg := provider.DefaultHTTPClientConfig()
		httpCfg.Timeout = cfg.NavFeedTimeout()
		httpCfg.MaxRetries = feed.RetryAttempts
		httpCfg.RateLimit = feed.RateLimit

		client := provider.NewHTTPNavClient(
			provider.NewRateLimitedHTTPClient(httpCfg, nil),
			feed.BaseURL, feed.APIKey, true, nil,
		)
		cached := provider.NewCachedNavProvider(client, client, cfg.NavCacheTTL(), feed.CacheMaxSize)

		a.nav = cached
		a.catalog = client
		a.index = cached
		a.cache = cached

		appLog.WithField("base_url", feed.BaseURL).Info("Using NAV feed data source")
	}

	return a, nil
}
