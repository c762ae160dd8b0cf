// Package logger provides analytics run logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RunLogger provides dedicated logging for scoring and backtest runs.
type RunLogger struct {
	*logrus.Entry
}

// NewRunLogger creates a new run logger.
func NewRunLogger(baseLogger *logrus.Logger) *RunLogger {
	return &RunLogger{
		Entry: baseLogger.WithField("component", "run"),
	}
}

// LogScoringRunStart logs the start of a category scoring run.
func (rl *RunLogger) LogScoringRunStart(category string, fundCount int, scoreDate time.Time) {
	rl.WithFields(logrus.Fields{
		"category":   category,
		"fund_count": fundCount,
		"score_date": scoreDate.Format("2006-01-02"),
	}).Info("Scoring run started")
}

// LogFundScored logs one fund's scoring outcome.
func (rl *RunLogger) LogFundScored(fundID, category string, totalScore float64, quartile int, recommendation string) {
	rl.WithFields(logrus.Fields{
		"fund_id":        fundID,
		"category":       category,
		"total_score":    totalScore,
		"quartile":       quartile,
		"recommendation": recommendation,
	}).Info("Fund scored")
}

// LogScoringRunComplete logs the end of a category scoring run.
func (rl *RunLogger) LogScoringRunComplete(category string, scored, failed int, elapsed time.Duration) {
	rl.WithFields(logrus.Fields{
		"category":   category,
		"scored":     scored,
		"failed":     failed,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("Scoring run complete")
}

// LogBacktestRun logs a completed backtest run.
func (rl *RunLogger) LogBacktestRun(portfolioName string, totalReturn, maxDrawdown float64, rebalances int, elapsed time.Duration) {
	rl.WithFields(logrus.Fields{
		"portfolio":    portfolioName,
		"total_return": totalReturn,
		"max_drawdown": maxDrawdown,
		"rebalances":   rebalances,
		"elapsed_ms":   elapsed.Milliseconds(),
	}).Info("Backtest run complete")
}
