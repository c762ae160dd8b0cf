package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/simulation"
)

// stressHorizonDays is the fixed simulation horizon for stress tests.
const stressHorizonDays = 90

// StressScenario describes a synthetic shock-and-recovery path: a linear
// decline of ShockPercent over ShockDuration days, then a linear recovery
// over RecoveryPeriod days.
type StressScenario struct {
	Name           string  `json:"name"`
	ShockPercent   float64 `json:"shock_percent" validate:"gt=0,lte=100"`
	ShockDuration  int     `json:"shock_duration" validate:"gt=0"`
	RecoveryPeriod int     `json:"recovery_period" validate:"gte=0"`
}

// Built-in shock table. Callers may also supply fully custom parameters.
var builtinScenarios = map[string]StressScenario{
	"mild":     {Name: "mild", ShockPercent: 10, ShockDuration: 10, RecoveryPeriod: 30},
	"moderate": {Name: "moderate", ShockPercent: 20, ShockDuration: 15, RecoveryPeriod: 45},
	"severe":   {Name: "severe", ShockPercent: 35, ShockDuration: 20, RecoveryPeriod: 60},
}

// StressRequest describes a stress test over a synthetic shock applied to
// each fund's most recent NAV.
type StressRequest struct {
	Allocations   []models.AllocationTarget `json:"allocations" validate:"omitempty,dive"`
	RiskProfile   string                    `json:"risk_profile"`
	InitialAmount float64                   `json:"initial_amount" validate:"required,gt=0"`

	// Scenario names a built-in shock; Custom overrides it when non-nil.
	Scenario string          `json:"scenario"`
	Custom   *StressScenario `json:"custom,omitempty"`

	// AsOf anchors the horizon; zero means the current date.
	AsOf time.Time `json:"as_of"`
}

// RunStress simulates the allocation under a synthetic shock-and-recovery
// path over a fixed 90-day horizon, starting from each fund's latest NAV.
func (e *Engine) RunStress(ctx context.Context, req StressRequest) (*models.BacktestResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid stress request: %w", err)
	}
	scenario, err := resolveScenario(req)
	if err != nil {
		return nil, err
	}

	allocations, portfolioName, err := e.resolveAllocations(ctx, Request{
		Allocations: req.Allocations,
		RiskProfile: req.RiskProfile,
	})
	if err != nil {
		return nil, err
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		now := time.Now().UTC()
		asOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	endDate := asOf.AddDate(0, 0, stressHorizonDays)

	synthetic := make(map[string]models.NavSeries, len(allocations))
	for _, a := range allocations {
		latest, err := e.nav.GetLatestNav(ctx, a.FundID)
		if err != nil {
			return nil, fmt.Errorf("fund %s has no latest NAV: %w", a.FundID, models.ErrNoInitialNav)
		}
		synthetic[a.FundID] = shockPath(latest.Value, asOf, scenario)
	}

	e.logger.WithFields(logrus.Fields{
		"portfolio":     portfolioName,
		"scenario":      scenario.Name,
		"shock_percent": scenario.ShockPercent,
	}).Info("Starting stress test run")

	sim, err := simulation.NewSimulator(provider.NewStatic(synthetic), e.logger)
	if err != nil {
		return nil, err
	}

	simResult, err := sim.Run(ctx, allocations, simulation.Config{
		InitialAmount: req.InitialAmount,
		StartDate:     asOf,
		EndDate:       endDate,
		RiskFreeRate:  e.cfg.RiskFreeRate,
	})
	if err != nil {
		return nil, err
	}

	return &models.BacktestResult{
		ID:                 uuid.New(),
		PortfolioName:      portfolioName + " (" + scenario.Name + " stress)",
		StartDate:          asOf,
		EndDate:            endDate,
		InitialAmount:      req.InitialAmount,
		FinalAmount:        simResult.FinalValue,
		TotalReturn:        simResult.TotalReturn,
		AnnualizedReturn:   simResult.AnnualizedReturn,
		MaxDrawdown:        simResult.MaxDrawdown,
		Volatility:         simResult.Volatility,
		SharpeRatio:        simResult.SharpeRatio,
		RebalanceFrequency: models.RebalanceNone,
		Trajectory:         simResult.Trajectory,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

func resolveScenario(req StressRequest) (StressScenario, error) {
	if req.Custom != nil {
		s := *req.Custom
		if s.Name == "" {
			s.Name = "custom"
		}
		if s.ShockPercent <= 0 || s.ShockPercent > 100 || s.ShockDuration <= 0 {
			return StressScenario{}, fmt.Errorf("invalid custom stress scenario")
		}
		return s, nil
	}
	name := req.Scenario
	if name == "" {
		name = "moderate"
	}
	s, ok := builtinScenarios[name]
	if !ok {
		return StressScenario{}, fmt.Errorf("unknown stress scenario %q", name)
	}
	return s, nil
}

// shockPath builds the daily synthetic NAV path: linear decline to the
// trough, linear recovery to the pre-shock level, then flat for the rest of
// the horizon.
func shockPath(baseNav float64, start time.Time, scenario StressScenario) models.NavSeries {
	trough := baseNav * (1 - scenario.ShockPercent/100)
	series := make(models.NavSeries, 0, stressHorizonDays+1)

	for d := 0; d <= stressHorizonDays; d++ {
		var value float64
		switch {
		case d <= scenario.ShockDuration:
			progress := float64(d) / float64(scenario.ShockDuration)
			value = baseNav + (trough-baseNav)*progress
		case scenario.RecoveryPeriod > 0 && d <= scenario.ShockDuration+scenario.RecoveryPeriod:
			progress := float64(d-scenario.ShockDuration) / float64(scenario.RecoveryPeriod)
			value = trough + (baseNav-trough)*progress
		default:
			if scenario.RecoveryPeriod > 0 {
				value = baseNav
			} else {
				value = trough
			}
		}
		series = append(series, models.NavPoint{Date: start.AddDate(0, 0, d), Value: value})
	}
	return series
}
