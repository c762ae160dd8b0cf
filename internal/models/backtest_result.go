package models

import (
	"time"

	"github.com/google/uuid"
)

// TrajectoryPoint is a sampled portfolio (or benchmark) value on a date.
type TrajectoryPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// BacktestResult is the immutable output of one backtest run. It is not
// mutated after construction.
type BacktestResult struct {
	ID                  uuid.UUID         `db:"id" json:"id"`
	PortfolioID         *uuid.UUID        `db:"portfolio_id" json:"portfolio_id,omitempty"`
	PortfolioName       string            `db:"portfolio_name" json:"portfolio_name"`
	StartDate           time.Time         `db:"start_date" json:"start_date"`
	EndDate             time.Time         `db:"end_date" json:"end_date"`
	InitialAmount       float64           `db:"initial_amount" json:"initial_amount"`
	FinalAmount         float64           `db:"final_amount" json:"final_amount"`
	TotalReturn         float64           `db:"total_return" json:"total_return"`
	AnnualizedReturn    float64           `db:"annualized_return" json:"annualized_return"`
	MaxDrawdown         float64           `db:"max_drawdown" json:"max_drawdown"`
	Volatility          float64           `db:"volatility" json:"volatility"`
	SharpeRatio         float64           `db:"sharpe_ratio" json:"sharpe_ratio"`
	RebalanceFrequency  string            `db:"rebalance_frequency" json:"rebalance_frequency"`
	RebalanceCount      int               `db:"rebalance_count" json:"rebalance_count"`
	BenchmarkName       string            `db:"benchmark_name" json:"benchmark_name,omitempty"`
	BenchmarkReturn     *float64          `db:"benchmark_return" json:"benchmark_return,omitempty"`
	Trajectory          []TrajectoryPoint `db:"-" json:"trajectory"`
	BenchmarkTrajectory []TrajectoryPoint `db:"-" json:"benchmark_trajectory,omitempty"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
}

// ExcessReturn returns the portfolio return minus the benchmark return, or
// false when no benchmark comparison is available.
func (r *BacktestResult) ExcessReturn() (float64, bool) {
	if r.BenchmarkReturn == nil {
		return 0, false
	}
	return r.TotalReturn - *r.BenchmarkReturn, true
}
