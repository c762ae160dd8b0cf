// Package backtest wraps the portfolio simulator with request resolution,
// benchmark comparison, and stress scenarios.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/simulation"
	"github.com/fundsight/fundsight/internal/timeseries"
)

// Config holds backtest engine settings.
type Config struct {
	// BenchmarkIndex names the market index compared against every run.
	BenchmarkIndex string
	// RiskFreeRate is the annual risk-free rate as a decimal fraction.
	RiskFreeRate float64
}

// Request describes one backtest. Allocations may come from an explicit
// list, a stored portfolio (by ID or name), or a risk profile; the first
// populated source in that order wins.
type Request struct {
	Allocations   []models.AllocationTarget `json:"allocations" validate:"omitempty,dive"`
	PortfolioID   *uuid.UUID                `json:"portfolio_id"`
	PortfolioName string                    `json:"portfolio_name"`
	RiskProfile   string                    `json:"risk_profile"`

	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required"`
	InitialAmount float64   `json:"initial_amount" validate:"required,gt=0"`

	RebalanceFrequency string  `json:"rebalance_frequency"`
	RebalanceThreshold float64 `json:"rebalance_threshold" validate:"gte=0"`
}

// validate enforces the `validate` tags on incoming requests.
var validate = validator.New()

// Engine resolves backtest requests and runs them through the simulator.
type Engine struct {
	cfg        Config
	nav        provider.NavProvider
	benchmark  provider.BenchmarkProvider
	portfolios provider.PortfolioSource
	simulator  *simulation.Simulator
	logger     *logrus.Logger
}

// NewEngine creates a backtest engine. The portfolio source may be nil, in
// which case only explicit allocations and the built-in risk-profile table
// are available.
func NewEngine(cfg Config, nav provider.NavProvider, benchmark provider.BenchmarkProvider, portfolios provider.PortfolioSource, logger *logrus.Logger) (*Engine, error) {
	if nav == nil {
		return nil, fmt.Errorf("nav provider is required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	sim, err := simulation.NewSimulator(nav, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		nav:        nav,
		benchmark:  benchmark,
		portfolios: portfolios,
		simulator:  sim,
		logger:     logger,
	}, nil
}

// Run executes one historical backtest and returns its immutable result.
func (e *Engine) Run(ctx context.Context, req Request) (*models.BacktestResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid backtest request: %w", err)
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, models.ErrInvalidDateRange
	}

	allocations, portfolioName, err := e.resolveAllocations(ctx, req)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"portfolio": portfolioName,
		"start":     req.StartDate.Format("2006-01-02"),
		"end":       req.EndDate.Format("2006-01-02"),
		"frequency": req.RebalanceFrequency,
	}).Info("Starting backtest run")

	simResult, err := e.simulator.Run(ctx, allocations, simulation.Config{
		InitialAmount: req.InitialAmount,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		RiskFreeRate:  e.cfg.RiskFreeRate,
		Policy: simulation.RebalancePolicy{
			Frequency: req.RebalanceFrequency,
			Threshold: req.RebalanceThreshold,
		},
	})
	if err != nil {
		return nil, err
	}

	result := &models.BacktestResult{
		ID:                 uuid.New(),
		PortfolioID:        req.PortfolioID,
		PortfolioName:      portfolioName,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		InitialAmount:      req.InitialAmount,
		FinalAmount:        simResult.FinalValue,
		TotalReturn:        simResult.TotalReturn,
		AnnualizedReturn:   simResult.AnnualizedReturn,
		MaxDrawdown:        simResult.MaxDrawdown,
		Volatility:         simResult.Volatility,
		SharpeRatio:        simResult.SharpeRatio,
		RebalanceFrequency: req.RebalanceFrequency,
		RebalanceCount:     simResult.RebalanceCount,
		Trajectory:         simResult.Trajectory,
		CreatedAt:          time.Now().UTC(),
	}

	e.attachBenchmark(ctx, req, result)

	return result, nil
}

// resolveAllocations picks the allocation source for the request.
func (e *Engine) resolveAllocations(ctx context.Context, req Request) ([]models.AllocationTarget, string, error) {
	if len(req.Allocations) > 0 {
		name := req.PortfolioName
		if name == "" {
			name = "ad-hoc"
		}
		return req.Allocations, name, nil
	}

	if req.PortfolioID != nil && e.portfolios != nil {
		p, err := e.portfolios.GetPortfolio(ctx, *req.PortfolioID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve portfolio %s: %w", req.PortfolioID, err)
		}
		return p.Allocations, p.Name, nil
	}

	if req.PortfolioName != "" && e.portfolios != nil {
		p, err := e.portfolios.GetPortfolioByName(ctx, req.PortfolioName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to resolve portfolio %q: %w", req.PortfolioName, err)
		}
		return p.Allocations, p.Name, nil
	}

	if req.RiskProfile != "" {
		if e.portfolios != nil {
			allocations, err := e.portfolios.GetAllocationsForProfile(ctx, req.RiskProfile)
			if err == nil && len(allocations) > 0 {
				return allocations, req.RiskProfile, nil
			}
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return nil, "", fmt.Errorf("failed to resolve risk profile %q: %w", req.RiskProfile, err)
			}
		}
		allocations, ok := DefaultAllocations(req.RiskProfile)
		if !ok {
			return nil, "", fmt.Errorf("unknown risk profile %q", req.RiskProfile)
		}
		e.logger.WithField("risk_profile", req.RiskProfile).
			Info("No stored portfolio for profile, using built-in default allocations")
		return allocations, req.RiskProfile, nil
	}

	return nil, "", fmt.Errorf("request has no allocations, portfolio, or risk profile")
}

// attachBenchmark adds a benchmark trajectory and return over the same
// window. Missing benchmark data omits the comparison, never synthesizes it.
func (e *Engine) attachBenchmark(ctx context.Context, req Request, result *models.BacktestResult) {
	if e.benchmark == nil || e.cfg.BenchmarkIndex == "" {
		return
	}

	series, err := e.benchmark.GetIndexSeries(ctx, e.cfg.BenchmarkIndex, req.StartDate, req.EndDate)
	if err != nil {
		e.logger.WithError(err).WithField("index", e.cfg.BenchmarkIndex).
			Warn("Benchmark unavailable, omitting comparison")
		return
	}
	if len(series) == 0 {
		e.logger.WithField("index", e.cfg.BenchmarkIndex).
			Warn("Benchmark series empty for window, omitting comparison")
		return
	}

	startNav, ok := timeseries.NavOn(series, req.StartDate)
	if !ok || startNav.Value == 0 {
		return
	}

	trajectory := make([]models.TrajectoryPoint, 0, len(result.Trajectory))
	for _, p := range result.Trajectory {
		nav, ok := timeseries.NavOn(series, p.Date)
		if !ok {
			continue
		}
		trajectory = append(trajectory, models.TrajectoryPoint{
			Date:  p.Date,
			Value: req.InitialAmount * nav.Value / startNav.Value,
		})
	}
	if len(trajectory) == 0 {
		return
	}

	endValue := trajectory[len(trajectory)-1].Value
	benchReturn := (endValue/req.InitialAmount - 1) * 100

	result.BenchmarkName = e.cfg.BenchmarkIndex
	result.BenchmarkReturn = &benchReturn
	result.BenchmarkTrajectory = trajectory
}
