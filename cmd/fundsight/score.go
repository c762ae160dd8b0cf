package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundsight/fundsight/internal/health"
	"github.com/fundsight/fundsight/internal/scoring"
	"github.com/fundsight/fundsight/internal/service"
)

var (
	scoreCategory string
	scoreDateFlag string
	scoreAll      bool
)

func init() {
	scoreCmd.Flags().StringVar(&scoreCategory, "category", "", "Fund category to score")
	scoreCmd.Flags().StringVar(&scoreDateFlag, "date", "", "Score date (YYYY-MM-DD), defaults to today")
	scoreCmd.Flags().BoolVar(&scoreAll, "all", false, "Score every known category")
	rootCmd.AddCommand(scoreCmd)
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score funds against their category peers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scoreCategory == "" && !scoreAll {
			return fmt.Errorf("either --category or --all is required")
		}

		scoreDate := time.Now().UTC().Truncate(24 * time.Hour)
		if scoreDateFlag != "" {
			parsed, err := time.Parse("2006-01-02", scoreDateFlag)
			if err != nil {
				return fmt.Errorf("invalid score date: %w", err)
			}
			scoreDate = parsed
		}

		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()

		healthServer := startHealthServer(cmd, a)
		defer healthServer.Shutdown()

		engine, err := scoring.NewEngine(scoring.Config{
			BenchmarkIndex: a.cfg.Scoring.BenchmarkIndex,
			RiskFreeRate:   a.cfg.Scoring.RiskFreeRate,
		}, a.nav, a.index, a.repos.Signal, a.log)
		if err != nil {
			return err
		}

		scorer, err := service.NewCategoryScorer(a.catalog, engine, a.repos.Score, service.CategoryScorerConfig{
			MaxConcurrentFunds: a.cfg.Scoring.MaxConcurrentFunds,
			FundsPerSecond:     a.cfg.Scoring.FundsPerSecond,
		}, a.log)
		if err != nil {
			return err
		}

		categories := []string{scoreCategory}
		if scoreAll {
			categories, err = a.repos.Fund.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}
			if len(categories) == 0 {
				a.log.Warn("No categories found")
				return nil
			}
		}

		healthServer.SetReady(true)

		exitErr := error(nil)
		for _, category := range categories {
			report, err := scorer.ScoreCategory(ctx, category, scoreDate)
			if err != nil {
				a.log.WithError(err).WithField("category", category).Error("Category scoring failed")
				exitErr = err
				continue
			}
			printRunSummary(report)
		}
		return exitErr
	},
}

func startHealthServer(cmd *cobra.Command, a *app) *health.Server {
	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	server := health.NewServer(health.Config{
		ServiceName: a.cfg.App.Name,
		Version:     version,
		Commit:      commit,
		Port:        fmt.Sprintf("%d", a.cfg.Metrics.Port),
		MetricsPath: metricsPath,
		Logger:      a.log,
	})
	server.RegisterChecker("database", a.db)
	if err := server.Start(cmd.Context()); err != nil {
		a.log.WithError(err).Warn("Failed to start health server")
	}
	return server
}

func printRunSummary(report *service.CategoryRunReport) {
	summary := struct {
		Category  string   `json:"category"`
		ScoreDate string   `json:"score_date"`
		Scored    int      `json:"scored"`
		Failed    []string `json:"failed,omitempty"`
		ElapsedMs int64    `json:"elapsed_ms"`
	}{
		Category:  report.Category,
		ScoreDate: report.ScoreDate.Format("2006-01-02"),
		Scored:    len(report.Scored),
		ElapsedMs: report.Elapsed.Milliseconds(),
	}
	for fundID, err := range report.Failed {
		summary.Failed = append(summary.Failed, fmt.Sprintf("%s: %v", fundID, err))
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Fprintln(os.Stdout, string(out))
}
