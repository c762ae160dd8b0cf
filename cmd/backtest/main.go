// Package main provides the entry point for the one-shot backtesting CLI.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fundsight/fundsight/internal/backtest"
	"github.com/fundsight/fundsight/internal/config"
	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/logger"
	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/repository"
)

func main() {
	var (
		configPath    = flag.String("config", "config/config.yaml", "Path to config file")
		portfolioName = flag.String("portfolio", "", "Stored portfolio name to test")
		riskProfile   = flag.String("risk-profile", "", "Risk profile when no portfolio is given")
		allocations   = flag.String("allocations", "", "Path to a JSON file with allocation targets")
		startDate     = flag.String("start-date", "", "Override start date (YYYY-MM-DD)")
		endDate       = flag.String("end-date", "", "Override end date (YYYY-MM-DD)")
		initialAmount = flag.Float64("amount", 0, "Override initial amount")
		rebalance     = flag.String("rebalance", "", "Override rebalance frequency")
		threshold     = flag.Float64("threshold", 0, "Drift threshold in percent for threshold rebalancing")
		output        = flag.String("output", "./output/backtest_result.json", "Output path for the result")
	)
	flag.Parse()

	appLog := logger.NewLogger("info", "")
	ctx := context.Background()

	cfg := loadConfig(*configPath, appLog)
	appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.Fatalf("Failed to build repositories: %v", err)
	}

	engine, err := backtest.NewEngine(backtest.Config{
		BenchmarkIndex: cfg.Scoring.BenchmarkIndex,
		RiskFreeRate:   cfg.Backtest.RiskFreeRate,
	}, repos.Nav, repos.Index, repos.Portfolio, appLog)
	if err != nil {
		appLog.Fatalf("Failed to build backtest engine: %v", err)
	}

	req := buildRequest(cfg, *portfolioName, *riskProfile, *allocations,
		*startDate, *endDate, *initialAmount, *rebalance, *threshold, appLog)

	appLog.WithFields(logrus.Fields{
		"portfolio": req.PortfolioName,
		"start":     req.StartDate.Format("2006-01-02"),
		"end":       req.EndDate.Format("2006-01-02"),
	}).Info("Starting backtest")

	runStart := time.Now()
	result, err := engine.Run(ctx, req)
	if err != nil {
		appLog.Fatalf("Backtest failed: %v", err)
	}

	if err := repos.Result.SaveResult(ctx, result); err != nil {
		appLog.WithError(err).Warn("Failed to persist backtest result")
	}
	writeResult(*output, result, appLog)

	logger.NewRunLogger(appLog).LogBacktestRun(result.PortfolioName,
		result.TotalReturn, result.MaxDrawdown, result.RebalanceCount, time.Since(runStart))
}

func loadConfig(path string, appLog *logrus.Logger) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		appLog.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			appLog.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			appLog.Fatalf("Failed to load secrets: %v", err)
		}
	}
	if err := config.Validate(cfg); err != nil {
		appLog.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

func buildRequest(cfg *config.Config, portfolioName, riskProfile, allocationsPath,
	startDate, endDate string, initialAmount float64, rebalance string,
	threshold float64, appLog *logrus.Logger) backtest.Request {

	start, end, err := cfg.BacktestWindow()
	if err != nil && startDate == "" {
		appLog.Fatalf("No backtest window configured: %v", err)
	}
	if startDate != "" {
		if start, err = time.Parse("2006-01-02", startDate); err != nil {
			appLog.Fatalf("Invalid start date: %v", err)
		}
	}
	if endDate != "" {
		if end, err = time.Parse("2006-01-02", endDate); err != nil {
			appLog.Fatalf("Invalid end date: %v", err)
		}
	}

	amount := cfg.Backtest.InitialAmount
	if initialAmount > 0 {
		amount = initialAmount
	}
	frequency := cfg.Backtest.RebalanceFrequency
	if rebalance != "" {
		frequency = rebalance
	}
	driftThreshold := cfg.Backtest.RebalanceThreshold
	if threshold > 0 {
		driftThreshold = threshold
	}
	if riskProfile == "" {
		riskProfile = cfg.Backtest.DefaultRiskProfile
	}

	req := backtest.Request{
		PortfolioName:      portfolioName,
		RiskProfile:        riskProfile,
		StartDate:          start,
		EndDate:            end,
		InitialAmount:      amount,
		RebalanceFrequency: frequency,
		RebalanceThreshold: driftThreshold,
	}

	if allocationsPath != "" {
		data, err := os.ReadFile(allocationsPath)
		if err != nil {
			appLog.Fatalf("Failed to read allocations file: %v", err)
		}
		var targets []models.AllocationTarget
		if err := json.Unmarshal(data, &targets); err != nil {
			appLog.Fatalf("Failed to parse allocations file: %v", err)
		}
		req.Allocations = targets
	}

	return req
}

func writeResult(path string, result *models.BacktestResult, appLog *logrus.Logger) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		appLog.WithError(err).Warn("Failed to create output directory")
		return
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		appLog.WithError(err).Warn("Failed to encode result")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		appLog.WithError(err).Warn("Failed to write result file")
		return
	}
	appLog.WithField("path", path).Info("Result written")
}
