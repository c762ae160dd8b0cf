package simulation

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/fundsight/fundsight/internal/models"
)

type fakeNavProvider struct {
	series map[string]models.NavSeries
}

func (f *fakeNavProvider) GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error) {
	s, ok := f.series[fundID]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := make(models.NavSeries, 0, len(s))
	for _, p := range s {
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeNavProvider) GetLatestNav(ctx context.Context, fundID string) (models.NavPoint, error) {
	s, ok := f.series[fundID]
	if !ok || len(s) == 0 {
		return models.NavPoint{}, models.ErrNotFound
	}
	return s[len(s)-1], nil
}

var testStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

func weeklySeries(values ...float64) models.NavSeries {
	s := make(models.NavSeries, len(values))
	for i, v := range values {
		s[i] = models.NavPoint{Date: testStart.AddDate(0, 0, i*7), Value: v}
	}
	return s
}

func newTestSimulator(t *testing.T, nav *fakeNavProvider) *Simulator {
	t.Helper()
	sim, err := NewSimulator(nav, nil)
	if err != nil {
		t.Fatalf("failed to build simulator: %v", err)
	}
	return sim
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestRunSingleFundNoRebalancing(t *testing.T) {
	nav := &fakeNavProvider{series: map[string]models.NavSeries{
		"F1": weeklySeries(100, 110, 99, 121),
	}}
	sim := newTestSimulator(t, nav)

	result, err := sim.Run(context.Background(),
		[]models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
		Config{
			InitialAmount: 1000,
			StartDate:     testStart,
			EndDate:       testStart.AddDate(0, 0, 21),
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{1000, 1100, 990, 1210}
	if len(result.Trajectory) != len(want) {
		t.Fatalf("expected %d trajectory points, got %d", len(want), len(result.Trajectory))
	}
	for i, w := range want {
		if !almostEqual(result.Trajectory[i].Value, w) {
			t.Fatalf("trajectory[%d] = %v, want %v", i, result.Trajectory[i].Value, w)
		}
	}
	if !almostEqual(result.TotalReturn, 21) {
		t.Fatalf("total return %v, want 21", result.TotalReturn)
	}
	if !almostEqual(result.MaxDrawdown, 11.0/110.0) {
		t.Fatalf("max drawdown %v, want %v", result.MaxDrawdown, 11.0/110.0)
	}
}

func TestRunTrajectoryProportionalToNav(t *testing.T) {
	series := weeklySeries(42, 44.1, 40.2, 47.9, 51.3)
	nav := &fakeNavProvider{series: map[string]models.NavSeries{"F1": series}}
	sim := newTestSimulator(t, nav)

	initial := 2500.0
	result, err := sim.Run(context.Background(),
		[]models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
		Config{
			InitialAmount: initial,
			StartDate:     testStart,
			EndDate:       testStart.AddDate(0, 0, 28),
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	startNav := series[0].Value
	for i, p := range result.Trajectory {
		expected := initial * series[i].Value / startNav
		if !almostEqual(p.Value, expected) {
			t.Fatalf("trajectory[%d] = %v, want %v", i, p.Value, expected)
		}
	}
}

func TestRunQuarterlyRebalanceResetsWeights(t *testing.T) {
	// One flat fund and one fund up 20% over the quarter.
	end := testStart.AddDate(0, 3, 0)
	flat := models.NavSeries{
		{Date: testStart, Value: 100},
		{Date: end, Value: 100},
	}
	grower := models.NavSeries{
		{Date: testStart, Value: 100},
		{Date: end, Value: 120},
	}
	nav := &fakeNavProvider{series: map[string]models.NavSeries{
		"FLAT": flat, "GROW": grower,
	}}
	sim := newTestSimulator(t, nav)

	result, err := sim.Run(context.Background(),
		[]models.AllocationTarget{
			{FundID: "FLAT", TargetWeight: 50},
			{FundID: "GROW", TargetWeight: 50},
		},
		Config{
			InitialAmount: 1000,
			StartDate:     testStart,
			EndDate:       end,
			Policy:        RebalancePolicy{Frequency: models.RebalanceQuarterly},
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RebalanceCount != 1 {
		t.Fatalf("expected one rebalance, got %d", result.RebalanceCount)
	}

	// Portfolio ends at 1100; after the rebalance each fund holds exactly
	// half of it again.
	if !almostEqual(result.FinalValue, 1100) {
		t.Fatalf("final value %v, want 1100", result.FinalValue)
	}
}

func TestRunThresholdRebalance(t *testing.T) {
	end := testStart.AddDate(0, 0, 30)
	flat := models.NavSeries{}
	grow := models.NavSeries{}
	for i := 0; i <= 30; i++ {
		d := testStart.AddDate(0, 0, i)
		flat = append(flat, models.NavPoint{Date: d, Value: 100})
		grow = append(grow, models.NavPoint{Date: d, Value: 100 * math.Pow(1.01, float64(i))})
	}
	nav := &fakeNavProvider{series: map[string]models.NavSeries{
		"FLAT": flat, "GROW": grow,
	}}
	sim := newTestSimulator(t, nav)

	result, err := sim.Run(context.Background(),
		[]models.AllocationTarget{
			{FundID: "FLAT", TargetWeight: 50},
			{FundID: "GROW", TargetWeight: 50},
		},
		Config{
			InitialAmount: 1000,
			StartDate:     testStart,
			EndDate:       end,
			Policy:        RebalancePolicy{Frequency: models.RebalanceThreshold, Threshold: 3},
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RebalanceCount == 0 {
		t.Fatal("expected threshold rebalances for steadily drifting weights")
	}
	// Daily evaluation walks every calendar day.
	if len(result.Trajectory) != 31 {
		t.Fatalf("expected 31 daily samples, got %d", len(result.Trajectory))
	}
}

func TestRunNoInitialNav(t *testing.T) {
	nav := &fakeNavProvider{series: map[string]models.NavSeries{
		"F1": weeklySeries(100, 101),
		"F2": {},
	}}
	sim := newTestSimulator(t, nav)

	_, err := sim.Run(context.Background(),
		[]models.AllocationTarget{
			{FundID: "F1", TargetWeight: 50},
			{FundID: "F2", TargetWeight: 50},
		},
		Config{
			InitialAmount: 1000,
			StartDate:     testStart,
			EndDate:       testStart.AddDate(0, 0, 7),
		})
	if !errors.Is(err, models.ErrNoInitialNav) {
		t.Fatalf("expected ErrNoInitialNav, got %v", err)
	}
}

func TestRunInvalidDateRange(t *testing.T) {
	sim := newTestSimulator(t, &fakeNavProvider{})
	_, err := sim.Run(context.Background(),
		[]models.AllocationTarget{{FundID: "F1", TargetWeight: 100}},
		Config{
			InitialAmount: 1000,
			StartDate:     testStart,
			EndDate:       testStart,
		})
	if !errors.Is(err, models.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestRunWeightsNormalized(t *testing.T) {
	nav := &fakeNavProvider{series: map[string]models.NavSeries{
		"F1": weeklySeries(100, 110),
		"F2": weeklySeries(200, 220),
	}}
	sim := newTestSimulator(t, nav)

	// Weights sum to 60, not 100; the simulator normalizes.
	result, err := sim.Run(context.Background(),
		[]models.AllocationTarget{
			{FundID: "F1", TargetWeight: 30},
			{FundID: "F2", TargetWeight: 30},
		},
		Config{
			InitialAmount: 1000,
			StartDate:     testStart,
			EndDate:       testStart.AddDate(0, 0, 7),
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(result.Trajectory[0].Value, 1000) {
		t.Fatalf("initial value %v, want fully invested 1000", result.Trajectory[0].Value)
	}
	if !almostEqual(result.FinalValue, 1100) {
		t.Fatalf("final value %v, want 1100", result.FinalValue)
	}
}
