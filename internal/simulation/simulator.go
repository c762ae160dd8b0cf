// Package simulation time-steps a set of fund holdings across a date range,
// applying rebalancing rules and accumulating a value trajectory.
package simulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/timeseries"
)

// RebalancePolicy selects how and when holdings are reset to target weights.
type RebalancePolicy struct {
	// Frequency is one of the models.Rebalance* constants.
	Frequency string
	// Threshold is the weight deviation, in percentage points, that triggers
	// a rebalance when Frequency is threshold mode.
	Threshold float64
}

// Config holds the parameters of one simulation run.
type Config struct {
	InitialAmount float64
	StartDate     time.Time
	EndDate       time.Time
	Policy        RebalancePolicy
	// RiskFreeRate is the annual risk-free rate as a decimal fraction, used
	// for the trajectory Sharpe ratio.
	RiskFreeRate float64
}

// Validate checks run parameters before any data is fetched.
func (c Config) Validate() error {
	if !c.StartDate.Before(c.EndDate) {
		return models.ErrInvalidDateRange
	}
	if c.InitialAmount <= 0 {
		return fmt.Errorf("initial amount must be positive")
	}
	if c.Policy.Frequency != "" && !models.ValidRebalanceFrequency(c.Policy.Frequency) {
		return fmt.Errorf("unsupported rebalance frequency %q", c.Policy.Frequency)
	}
	if c.Policy.Frequency == models.RebalanceThreshold && c.Policy.Threshold <= 0 {
		return fmt.Errorf("threshold rebalancing requires a positive threshold")
	}
	return nil
}

// Result is the completed trajectory and its derived metrics.
type Result struct {
	Trajectory       []models.TrajectoryPoint
	FinalValue       float64
	TotalReturn      float64
	AnnualizedReturn float64
	Volatility       float64
	SharpeRatio      float64
	MaxDrawdown      float64
	RebalanceCount   int
}

// Simulator runs portfolio simulations against a NAV provider.
type Simulator struct {
	nav    provider.NavProvider
	logger *logrus.Logger
}

// NewSimulator creates a portfolio simulator.
func NewSimulator(nav provider.NavProvider, logger *logrus.Logger) (*Simulator, error) {
	if nav == nil {
		return nil, fmt.Errorf("nav provider is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{nav: nav, logger: logger}, nil
}

// run phases; holdings move Initialized -> Stepping -> (Rebalancing ->
// Stepping)* -> Completed, strictly sequential along the time axis.
type runPhase int

const (
	phaseInitialized runPhase = iota
	phaseStepping
	phaseRebalancing
	phaseCompleted
)

// run is the mutable state of one in-progress simulation. It is exclusively
// owned by a single Run call and discarded at completion.
type run struct {
	phase         runPhase
	weights       map[string]float64 // normalized target fractions
	units         map[string]float64 // current holdings
	series        map[string]models.NavSeries
	highWaterMark float64
	maxDrawdown   float64
	trajectory    []models.TrajectoryPoint
	rebalances    int
}

// Run simulates the allocation set over the configured date range. All NAV
// data is resolved up front; the time-stepping itself never suspends.
func (s *Simulator) Run(ctx context.Context, allocations []models.AllocationTarget, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		return nil, fmt.Errorf("at least one allocation is required")
	}

	state, err := s.initialize(ctx, allocations, cfg)
	if err != nil {
		return nil, err
	}

	dates := s.evaluationDates(cfg)
	schedule := rebalanceDates(cfg.StartDate, cfg.EndDate, cfg.Policy.Frequency)
	consumed := make([]bool, len(schedule))

	state.phase = phaseStepping
	for _, date := range dates {
		value := state.portfolioValue(date)
		if value <= 0 {
			continue
		}
		state.record(date, value)

		switch cfg.Policy.Frequency {
		case models.RebalanceThreshold:
			if state.weightsDeviate(date, value, cfg.Policy.Threshold) {
				state.rebalance(date, value, s.logger)
			}
		case models.RebalanceMonthly, models.RebalanceQuarterly, models.RebalanceAnnually:
			if i := nextPendingRebalance(date, schedule, consumed); i >= 0 {
				consumed[i] = true
				state.rebalance(date, value, s.logger)
			}
		}
	}
	state.phase = phaseCompleted

	return s.finalize(state, cfg), nil
}

// initialize resolves start-date NAVs and converts the initial amount into
// unit holdings. Any fund without a resolvable NAV at start is fatal.
func (s *Simulator) initialize(ctx context.Context, allocations []models.AllocationTarget, cfg Config) (*run, error) {
	weightSum := 0.0
	for _, a := range allocations {
		if a.TargetWeight < 0 {
			return nil, fmt.Errorf("allocation for %s has negative weight", a.FundID)
		}
		weightSum += a.TargetWeight
	}
	if weightSum <= 0 {
		return nil, fmt.Errorf("allocation weights sum to zero")
	}

	state := &run{
		phase:   phaseInitialized,
		weights: make(map[string]float64, len(allocations)),
		units:   make(map[string]float64, len(allocations)),
		series:  make(map[string]models.NavSeries, len(allocations)),
	}

	// Fetch slightly before the start date so the latest-before lookup has
	// something to land on when the start is a non-trading day.
	fetchStart := cfg.StartDate.AddDate(0, 0, -7)
	for _, a := range allocations {
		series, err := s.nav.GetNavSeries(ctx, a.FundID, fetchStart, cfg.EndDate)
		if err != nil {
			return nil, fmt.Errorf("failed to load NAV series for %s: %w", a.FundID, err)
		}
		state.series[a.FundID] = series

		nav, ok := timeseries.NavOn(series, cfg.StartDate)
		if !ok {
			return nil, fmt.Errorf("fund %s: %w", a.FundID, models.ErrNoInitialNav)
		}

		weight := a.TargetWeight / weightSum
		state.weights[a.FundID] = weight
		state.units[a.FundID] = cfg.InitialAmount * weight / nav.Value
	}

	return state, nil
}

func (s *Simulator) evaluationDates(cfg Config) []time.Time {
	if cfg.Policy.Frequency == models.RebalanceThreshold {
		return dailyDates(cfg.StartDate, cfg.EndDate)
	}
	schedule := rebalanceDates(cfg.StartDate, cfg.EndDate, cfg.Policy.Frequency)
	return keyDates(cfg.StartDate, cfg.EndDate, schedule)
}

func (s *Simulator) finalize(state *run, cfg Config) *Result {
	result := &Result{
		Trajectory:     state.trajectory,
		MaxDrawdown:    state.maxDrawdown,
		RebalanceCount: state.rebalances,
	}
	if len(state.trajectory) == 0 {
		return result
	}

	final := state.trajectory[len(state.trajectory)-1].Value
	result.FinalValue = final
	result.TotalReturn = (final/cfg.InitialAmount - 1) * 100

	days := cfg.EndDate.Sub(cfg.StartDate).Hours() / 24
	years := days / timeseries.CalendarDaysPerYear
	if years > 0 {
		result.AnnualizedReturn = (math.Pow(final/cfg.InitialAmount, 1/years) - 1) * 100
	}

	values := make([]float64, len(state.trajectory))
	for i, p := range state.trajectory {
		values[i] = p.Value
	}
	returns := timeseries.ReturnsFromValues(values)
	result.Volatility = timeseries.Volatility(returns)
	result.SharpeRatio = timeseries.SharpeRatio(result.AnnualizedReturn/100, result.Volatility, cfg.RiskFreeRate)

	return result
}

// portfolioValue sums units times the resolvable NAV at the date. Funds
// whose series cannot resolve a NAV are skipped, not zero-filled.
func (r *run) portfolioValue(date time.Time) float64 {
	total := 0.0
	for fundID, units := range r.units {
		nav, ok := timeseries.NavOn(r.series[fundID], date)
		if !ok {
			continue
		}
		total += units * nav.Value
	}
	return total
}

func (r *run) record(date time.Time, value float64) {
	if value > r.highWaterMark {
		r.highWaterMark = value
	}
	if r.highWaterMark > 0 {
		dd := (r.highWaterMark - value) / r.highWaterMark
		if dd > r.maxDrawdown {
			r.maxDrawdown = dd
		}
	}
	r.trajectory = append(r.trajectory, models.TrajectoryPoint{Date: date, Value: value})
}

// weightsDeviate reports whether any fund's current weight has drifted from
// its target by more than the threshold, in percentage points.
func (r *run) weightsDeviate(date time.Time, portfolioValue float64, threshold float64) bool {
	for fundID, units := range r.units {
		nav, ok := timeseries.NavOn(r.series[fundID], date)
		if !ok {
			continue
		}
		currentWeight := units * nav.Value / portfolioValue * 100
		targetWeight := r.weights[fundID] * 100
		if math.Abs(currentWeight-targetWeight) > threshold {
			return true
		}
	}
	return false
}

// rebalance resets every fund's units to its target share of the current
// portfolio value. A fund with no resolvable NAV at the date keeps its
// units unchanged for this rebalance only.
func (r *run) rebalance(date time.Time, portfolioValue float64, logger *logrus.Logger) {
	r.phase = phaseRebalancing
	for fundID, weight := range r.weights {
		nav, ok := timeseries.NavOn(r.series[fundID], date)
		if !ok {
			logger.WithFields(logrus.Fields{
				"fund_id": fundID,
				"date":    date.Format("2006-01-02"),
			}).Warn("No NAV at rebalance date, holding units unchanged")
			continue
		}
		r.units[fundID] = portfolioValue * weight / nav.Value
	}
	r.rebalances++
	r.phase = phaseStepping
}
