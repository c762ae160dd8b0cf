// Package metrics defines scoring-specific metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Scoring counter vectors
var (
	FundsScoredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fundsight",
		Name:      "funds_scored_total",
		Help:      "Total number of funds scored by category and status",
	}, []string{"category", "status"})
)

// Scoring histograms
var (
	ScoringDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fundsight",
		Name:      "scoring_duration_seconds",
		Help:      "Duration of single-fund scoring runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	FundTotalScore = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fundsight",
		Name:      "fund_total_score",
		Help:      "Total scores assigned to funds by category",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	}, []string{"category"})
)

// RecordFundScored records a fund scoring event.
// status should be one of: "success", "insufficient_data", "failure"
func RecordFundScored(category, status string, durationSeconds float64) {
	FundsScoredTotal.WithLabelValues(category, status).Inc()
	ScoringDuration.Observe(durationSeconds)
}

// RecordFundTotalScore records the total score assigned to a fund.
func RecordFundTotalScore(category string, score float64) {
	FundTotalScore.WithLabelValues(category).Observe(score)
}
