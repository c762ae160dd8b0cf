package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundsight/fundsight/internal/backtest"
	"github.com/fundsight/fundsight/internal/metrics"
	"github.com/fundsight/fundsight/internal/models"
)

var (
	btPortfolio   string
	btRiskProfile string
	btAllocations string
	btStart       string
	btEnd         string
	btAmount      float64
	btRebalance   string
	btThreshold   float64
	btSave        bool
)

func init() {
	backtestCmd.Flags().StringVar(&btPortfolio, "portfolio", "", "Stored portfolio name")
	backtestCmd.Flags().StringVar(&btRiskProfile, "risk-profile", "", "Risk profile (conservative, balanced, growth, aggressive)")
	backtestCmd.Flags().StringVar(&btAllocations, "allocations", "", "Path to a JSON file with allocation targets")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "Start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "End date (YYYY-MM-DD)")
	backtestCmd.Flags().Float64Var(&btAmount, "amount", 0, "Initial investment amount")
	backtestCmd.Flags().StringVar(&btRebalance, "rebalance", "", "Rebalance frequency (none, monthly, quarterly, annually, threshold)")
	backtestCmd.Flags().Float64Var(&btThreshold, "threshold", 0, "Drift threshold in percent for threshold rebalancing")
	backtestCmd.Flags().BoolVar(&btSave, "save", false, "Persist the result to the database")
	rootCmd.AddCommand(backtestCmd)
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a portfolio allocation over historical NAVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		engine, err := a.backtestEngine()
		if err != nil {
			return err
		}

		req, err := backtestRequest(a)
		if err != nil {
			return err
		}

		runStart := time.Now()
		result, err := engine.Run(cmd.Context(), req)
		if err != nil {
			metrics.RecordBacktestRun("historical", "failure", time.Since(runStart).Seconds())
			return err
		}
		metrics.RecordBacktestRun("historical", "success", time.Since(runStart).Seconds())
		metrics.RecordRebalanceCount(result.RebalanceFrequency, result.RebalanceCount)

		if btSave {
			if err := a.repos.Result.SaveResult(cmd.Context(), result); err != nil {
				a.log.WithError(err).Warn("Failed to persist backtest result")
			}
		}

		return printJSON(result)
	},
}

// backtestRequest merges command flags over the configured defaults.
func backtestRequest(a *app) (backtest.Request, error) {
	start, end, err := a.cfg.BacktestWindow()
	if btStart != "" {
		if start, err = time.Parse("2006-01-02", btStart); err != nil {
			return backtest.Request{}, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if btEnd != "" {
		if end, err = time.Parse("2006-01-02", btEnd); err != nil {
			return backtest.Request{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	if start.IsZero() || end.IsZero() {
		return backtest.Request{}, fmt.Errorf("a backtest window is required: set --start/--end or backtest.start_date/end_date")
	}

	amount := a.cfg.Backtest.InitialAmount
	if btAmount > 0 {
		amount = btAmount
	}
	frequency := a.cfg.Backtest.RebalanceFrequency
	if btRebalance != "" {
		frequency = btRebalance
	}
	threshold := a.cfg.Backtest.RebalanceThreshold
	if btThreshold > 0 {
		threshold = btThreshold
	}
	riskProfile := btRiskProfile
	if riskProfile == "" && btPortfolio == "" && btAllocations == "" {
		riskProfile = a.cfg.Backtest.DefaultRiskProfile
	}

	req := backtest.Request{
		PortfolioName:      btPortfolio,
		RiskProfile:        riskProfile,
		StartDate:          start,
		EndDate:            end,
		InitialAmount:      amount,
		RebalanceFrequency: frequency,
		RebalanceThreshold: threshold,
	}

	if btAllocations != "" {
		targets, err := readAllocations(btAllocations)
		if err != nil {
			return backtest.Request{}, err
		}
		req.Allocations = targets
	}
	return req, nil
}

func readAllocations(path string) ([]models.AllocationTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allocations file: %w", err)
	}
	var targets []models.AllocationTarget
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("failed to parse allocations file: %w", err)
	}
	return targets, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
