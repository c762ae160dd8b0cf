// Package metrics defines backtesting-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundsight",
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by mode and status",
	}, []string{"mode", "status"})
)

// Backtest histograms
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fundsight",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
	BacktestRebalanceCount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fundsight",
		Name:      "backtest_rebalance_count",
		Help:      "Number of rebalances executed per run by frequency",
		Buckets:   []float64{0, 1, 2, 4, 8, 12, 24, 52, 120},
	}, []string{"frequency"})
)

// RecordBacktestRun records a backtest run event.
// mode should be one of: "historical", "stress", "sweep"
// status should be one of: "success", "failure"
func RecordBacktestRun(mode, status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(mode, status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// RecordRebalanceCount records the rebalances executed during a run.
func RecordRebalanceCount(frequency string, count int) {
	BacktestRebalanceCount.WithLabelValues(frequency).Observe(float64(count))
}
