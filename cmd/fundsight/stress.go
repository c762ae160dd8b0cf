package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fundsight/fundsight/internal/backtest"
	"github.com/fundsight/fundsight/internal/metrics"
)

var (
	stressRiskProfile string
	stressAllocations string
	stressAmount      float64
	stressScenario    string
	stressAsOf        string

	customShock    float64
	customDuration int
	customRecovery int
)

func init() {
	stressCmd.Flags().StringVar(&stressRiskProfile, "risk-profile", "", "Risk profile to stress")
	stressCmd.Flags().StringVar(&stressAllocations, "allocations", "", "Path to a JSON file with allocation targets")
	stressCmd.Flags().Float64Var(&stressAmount, "amount", 100000, "Initial investment amount")
	stressCmd.Flags().StringVar(&stressScenario, "scenario", "moderate", "Built-in scenario: mild, moderate, severe")
	stressCmd.Flags().StringVar(&stressAsOf, "as-of", "", "Anchor date (YYYY-MM-DD), defaults to today")
	stressCmd.Flags().Float64Var(&customShock, "shock", 0, "Custom shock depth in percent (overrides --scenario)")
	stressCmd.Flags().IntVar(&customDuration, "shock-days", 0, "Custom shock duration in days")
	stressCmd.Flags().IntVar(&customRecovery, "recovery-days", 0, "Custom recovery period in days")
	rootCmd.AddCommand(stressCmd)
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Stress test an allocation under a synthetic market shock",
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

		req := backtest.StressRequest{
			RiskProfile:   stressRiskProfile,
			InitialAmount: stressAmount,
			Scenario:      stressScenario,
		}

		if stressAllocations != "" {
			targets, err := readAllocations(stressAllocations)
			if err != nil {
				return err
			}
			req.Allocations = targets
		}
		if req.RiskProfile == "" && len(req.Allocations) == 0 {
			req.RiskProfile = a.cfg.Backtest.DefaultRiskProfile
		}
		if stressAsOf != "" {
			asOf, err := time.Parse("2006-01-02", stressAsOf)
			if err != nil {
				return fmt.Errorf("invalid as-of date: %w", err)
			}
			req.AsOf = asOf
		}
		if customShock > 0 {
			req.Custom = &backtest.StressScenario{
				ShockPercent:   customShock,
				ShockDuration:  customDuration,
				RecoveryPeriod: customRecovery,
			}
		}

		runStart := time.Now()
		result, err := engine.RunStress(cmd.Context(), req)
		if err != nil {
			metrics.RecordBacktestRun("stress", "failure", time.Since(runStart).Seconds())
			return err
		}
		metrics.RecordBacktestRun("stress", "success", time.Since(runStart).Seconds())
		return printJSON(result)
	},
}
