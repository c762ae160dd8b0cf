package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
)

var testStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func weeklySeries(values ...float64) models.NavSeries {
	s := make(models.NavSeries, len(values))
	for i, v := range values {
		s[i] = models.NavPoint{Date: testStart.AddDate(0, 0, i*7), Value: v}
	}
	return s
}

func newTestEngine(t *testing.T, static *provider.Static) *Engine {
	t.Helper()
	engine, err := NewEngine(
		Config{BenchmarkIndex: "NIFTY50", RiskFreeRate: 0.065},
		static, static, static, nil,
	)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return engine
}

func TestRunWithExplicitAllocations(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"F1": weeklySeries(100, 105, 110, 121),
	})
	static.Indexes = map[string]models.NavSeries{
		"NIFTY50": weeklySeries(1000, 1010, 1020, 1100),
	}
	engine := newTestEngine(t, static)

	result, err := engine.Run(context.Background(), Request{
		Allocations:   []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
		StartDate:     testStart,
		EndDate:       testStart.AddDate(0, 0, 21),
		InitialAmount: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(result.TotalReturn-21) > 1e-6 {
		t.Fatalf("total return %v, want 21", result.TotalReturn)
	}
	if result.BenchmarkReturn == nil {
		t.Fatal("expected benchmark comparison")
	}
	if math.Abs(*result.BenchmarkReturn-10) > 1e-6 {
		t.Fatalf("benchmark return %v, want 10", *result.BenchmarkReturn)
	}
	if len(result.BenchmarkTrajectory) != len(result.Trajectory) {
		t.Fatalf("benchmark trajectory has %d points, portfolio %d",
			len(result.BenchmarkTrajectory), len(result.Trajectory))
	}
}

func TestRunOmitsBenchmarkWhenMissing(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"F1": weeklySeries(100, 110),
	})
	engine := newTestEngine(t, static)

	result, err := engine.Run(context.Background(), Request{
		Allocations:   []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
		StartDate:     testStart,
		EndDate:       testStart.AddDate(0, 0, 7),
		InitialAmount: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BenchmarkReturn != nil || len(result.BenchmarkTrajectory) != 0 {
		t.Fatal("expected benchmark comparison to be omitted, not synthesized")
	}
}

func TestRunResolvesStoredPortfolioByName(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"F1": weeklySeries(100, 110),
		"F2": weeklySeries(50, 55),
	})
	static.Portfolios = []*models.Portfolio{{
		Name: "core-equity",
		Allocations: []models.AllocationTarget{
			{FundID: "F1", TargetWeight: 60},
			{FundID: "F2", TargetWeight: 40},
		},
	}}
	engine := newTestEngine(t, static)

	result, err := engine.Run(context.Background(), Request{
		PortfolioName: "core-equity",
		StartDate:     testStart,
		EndDate:       testStart.AddDate(0, 0, 7),
		InitialAmount: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PortfolioName != "core-equity" {
		t.Fatalf("portfolio name %q", result.PortfolioName)
	}
	if math.Abs(result.TotalReturn-10) > 1e-6 {
		t.Fatalf("total return %v, want 10", result.TotalReturn)
	}
}

func TestRunRiskProfileFallsBackToDefaults(t *testing.T) {
	defaults, ok := DefaultAllocations(models.RiskProfileBalanced)
	if !ok {
		t.Fatal("expected built-in balanced allocations")
	}

	series := make(map[string]models.NavSeries, len(defaults))
	for _, a := range defaults {
		series[a.FundID] = weeklySeries(100, 102)
	}
	static := provider.NewStatic(series)
	engine := newTestEngine(t, static)

	result, err := engine.Run(context.Background(), Request{
		RiskProfile:   models.RiskProfileBalanced,
		StartDate:     testStart,
		EndDate:       testStart.AddDate(0, 0, 7),
		InitialAmount: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PortfolioName != models.RiskProfileBalanced {
		t.Fatalf("portfolio name %q", result.PortfolioName)
	}
	if math.Abs(result.TotalReturn-2) > 1e-6 {
		t.Fatalf("total return %v, want 2", result.TotalReturn)
	}
}

func TestRunInvalidDateRange(t *testing.T) {
	engine := newTestEngine(t, provider.NewStatic(nil))
	_, err := engine.Run(context.Background(), Request{
		Allocations:   []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
		StartDate:     testStart,
		EndDate:       testStart,
		InitialAmount: 1000,
	})
	if !errors.Is(err, models.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestRunStressShockAndRecovery(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"F1": weeklySeries(100, 101, 102),
	})
	engine := newTestEngine(t, static)

	result, err := engine.RunStress(context.Background(), StressRequest{
		Allocations:   []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
		InitialAmount: 1000,
		Scenario:      "moderate",
		AsOf:          testStart.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Moderate scenario shocks 20% then fully recovers within the horizon.
	if math.Abs(result.MaxDrawdown-0.20) > 0.02 {
		t.Fatalf("max drawdown %v, want about 0.20", result.MaxDrawdown)
	}
	if math.Abs(result.FinalAmount-1000) > 1 {
		t.Fatalf("final amount %v, want full recovery to 1000", result.FinalAmount)
	}
	if result.EndDate.Sub(result.StartDate) != 90*24*time.Hour {
		t.Fatal("stress horizon must be fixed at 90 days")
	}
}

func TestRunStressMissingLatestNav(t *testing.T) {
	engine := newTestEngine(t, provider.NewStatic(map[string]models.NavSeries{}))
	_, err := engine.RunStress(context.Background(), StressRequest{
		Allocations:   []models.AllocationTarget{{FundID: "GONE", TargetWeight: 100}},
		InitialAmount: 1000,
	})
	if !errors.Is(err, models.ErrNoInitialNav) {
		t.Fatalf("expected ErrNoInitialNav, got %v", err)
	}
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"F1": weeklySeries(100, 105, 110),
	})
	engine := newTestEngine(t, static)

	cases := []struct {
		name string
		req  Request
	}{
		{"zero initial amount", Request{
			Allocations: []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
			StartDate:   testStart,
			EndDate:     testStart.AddDate(0, 0, 14),
		}},
		{"negative threshold", Request{
			Allocations:        []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
			StartDate:          testStart,
			EndDate:            testStart.AddDate(0, 0, 14),
			InitialAmount:      1000,
			RebalanceThreshold: -5,
		}},
		{"missing start date", Request{
			Allocations:   []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
			EndDate:       testStart.AddDate(0, 0, 14),
			InitialAmount: 1000,
		}},
		{"allocation without fund id", Request{
			Allocations:   []models.AllocationTarget{{TargetWeight: 100}},
			StartDate:     testStart,
			EndDate:       testStart.AddDate(0, 0, 14),
			InitialAmount: 1000,
		}},
	}
	for _, tc := range cases {
		if _, err := engine.Run(context.Background(), tc.req); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}

	if _, err := engine.RunStress(context.Background(), StressRequest{
		Allocations: []models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
	}); err == nil {
		t.Error("stress without initial amount: expected validation error")
	}
}

func TestResolveScenario(t *testing.T) {
	if _, err := resolveScenario(StressRequest{Scenario: "apocalypse"}); err == nil {
		t.Fatal("expected error for unknown scenario")
	}
	s, err := resolveScenario(StressRequest{})
	if err != nil || s.Name != "moderate" {
		t.Fatalf("expected moderate default, got %v %v", s.Name, err)
	}
	custom := &StressScenario{ShockPercent: 12, ShockDuration: 5, RecoveryPeriod: 10}
	s, err = resolveScenario(StressRequest{Custom: custom})
	if err != nil || s.ShockPercent != 12 || s.Name != "custom" {
		t.Fatalf("unexpected custom scenario %v %v", s, err)
	}
}
