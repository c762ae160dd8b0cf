package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/service"
)

var (
	sweepThresholds []float64
	sweepSave       bool
)

func init() {
	sweepCmd.Flags().Float64SliceVar(&sweepThresholds, "thresholds", []float64{2, 5, 10}, "Drift thresholds in percent to compare")
	sweepCmd.Flags().BoolVar(&sweepSave, "save", false, "Persist each run's result to the database")
	sweepCmd.Flags().StringVar(&btPortfolio, "portfolio", "", "Stored portfolio name")
	sweepCmd.Flags().StringVar(&btRiskProfile, "risk-profile", "", "Risk profile when no portfolio is given")
	sweepCmd.Flags().StringVar(&btAllocations, "allocations", "", "Path to a JSON file with allocation targets")
	sweepCmd.Flags().StringVar(&btStart, "start", "", "Start date (YYYY-MM-DD)")
	sweepCmd.Flags().StringVar(&btEnd, "end", "", "End date (YYYY-MM-DD)")
	sweepCmd.Flags().Float64Var(&btAmount, "amount", 0, "Initial investment amount")
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Compare rebalance drift thresholds on one backtest window",
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

		var sink provider.ResultSink
		if sweepSave {
			sink = a.repos.Result
		}
		svc, err := service.NewSweepService(engine, sink, 0, a.log)
		if err != nil {
			return err
		}

		base, err := backtestRequest(a)
		if err != nil {
			return err
		}

		outcomes, err := svc.Run(cmd.Context(), service.SweepRequest{
			Base:       base,
			Thresholds: sweepThresholds,
		})
		if err != nil {
			return err
		}

		type row struct {
			Threshold   float64 `json:"threshold"`
			FinalAmount float64 `json:"final_amount,omitempty"`
			TotalReturn float64 `json:"total_return,omitempty"`
			Rebalances  int     `json:"rebalances,omitempty"`
			Error       string  `json:"error,omitempty"`
		}
		rows := make([]row, 0, len(outcomes))
		for _, o := range outcomes {
			r := row{Threshold: o.Threshold}
			if o.Err != nil {
				r.Error = o.Err.Error()
			} else {
				r.FinalAmount = o.Result.FinalAmount
				r.TotalReturn = o.Result.TotalReturn
				r.Rebalances = o.Result.RebalanceCount
			}
			rows = append(rows, r)
		}
		if err := printJSON(rows); err != nil {
			return err
		}

		if best, ok := service.Best(outcomes); ok {
			fmt.Printf("best threshold: %.2f%% (final amount %.2f)\n",
				best.Threshold, best.Result.FinalAmount)
		}
		return nil
	},
}
