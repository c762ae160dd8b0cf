package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fundsight/fundsight/internal/backtest"
	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
)

var sweepStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// divergingSeries grows one leg faster than the other so threshold
// rebalancing has drift to react to.
func divergingSeries(days int, dailyGrowth float64) models.NavSeries {
	series := make(models.NavSeries, days)
	value := 100.0
	for i := 0; i < days; i++ {
		series[i] = models.NavPoint{Date: sweepStart.AddDate(0, 0, i), Value: value}
		value *= 1 + dailyGrowth
	}
	return series
}

type capturedResults struct {
	mu      sync.Mutex
	results []*models.BacktestResult
}

func (c *capturedResults) SaveResult(ctx context.Context, result *models.BacktestResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
	return nil
}

func newSweepFixture(t *testing.T, static *provider.Static, sink provider.ResultSink) *SweepService {
	t.Helper()

	engine, err := backtest.NewEngine(
		backtest.Config{BenchmarkIndex: "NIFTY50", RiskFreeRate: 0.065},
		static, static, static, nil,
	)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	svc, err := NewSweepService(engine, sink, 2, nil)
	if err != nil {
		t.Fatalf("failed to build sweep service: %v", err)
	}
	return svc
}

func sweepBase() backtest.Request {
	return backtest.Request{
		Allocations: []models.AllocationTarget{
			{FundID: "FAST", TargetWeight: 50},
			{FundID: "SLOW", TargetWeight: 50},
		},
		StartDate:     sweepStart,
		EndDate:       sweepStart.AddDate(0, 0, 180),
		InitialAmount: 100000,
	}
}

func TestSweepOrdersOutcomesByThreshold(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"FAST": divergingSeries(200, 0.0015),
		"SLOW": divergingSeries(200, 0.0001),
	})
	sink := &capturedResults{}
	svc := newSweepFixture(t, static, sink)

	outcomes, err := svc.Run(context.Background(), SweepRequest{
		Base:       sweepBase(),
		Thresholds: []float64{10, 2, 5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if !sort.SliceIsSorted(outcomes, func(i, j int) bool {
		return outcomes[i].Threshold < outcomes[j].Threshold
	}) {
		t.Fatalf("outcomes not sorted by threshold: %v", outcomes)
	}

	for _, o := range outcomes {
		if o.Err != nil {
			t.Fatalf("threshold %v failed: %v", o.Threshold, o.Err)
		}
		if o.Result.RebalanceFrequency != models.RebalanceThreshold {
			t.Errorf("threshold %v ran with frequency %q", o.Threshold, o.Result.RebalanceFrequency)
		}
	}

	// A tighter drift band can never rebalance fewer times than a looser one
	// on the same window.
	if outcomes[0].Result.RebalanceCount < outcomes[2].Result.RebalanceCount {
		t.Errorf("threshold %v rebalanced %d times, threshold %v rebalanced %d",
			outcomes[0].Threshold, outcomes[0].Result.RebalanceCount,
			outcomes[2].Threshold, outcomes[2].Result.RebalanceCount)
	}

	if len(sink.results) != 3 {
		t.Fatalf("persisted %d results, want 3", len(sink.results))
	}
}

func TestSweepRequiresThresholds(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"FAST": divergingSeries(200, 0.0010),
		"SLOW": divergingSeries(200, 0.0002),
	})
	svc := newSweepFixture(t, static, nil)

	if _, err := svc.Run(context.Background(), SweepRequest{Base: sweepBase()}); err == nil {
		t.Fatal("expected error for empty threshold list")
	}
}

func TestSweepIsolatesFailures(t *testing.T) {
	// No NAV data at all: every run fails, the sweep itself does not.
	static := provider.NewStatic(nil)
	svc := newSweepFixture(t, static, nil)

	outcomes, err := svc.Run(context.Background(), SweepRequest{
		Base:       sweepBase(),
		Thresholds: []float64{2, 5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, o := range outcomes {
		if o.Err == nil {
			t.Fatalf("expected failure for threshold %v", o.Threshold)
		}
	}
	if _, ok := Best(outcomes); ok {
		t.Fatal("Best should report no winner when every run failed")
	}
}

// tripwireNav serves one NAV fetch normally, then cancels the sweep context
// so every later fetch fails the way a cancelled upstream call would.
type tripwireNav struct {
	*provider.Static
	cancel context.CancelFunc
	once   sync.Once
}

func (n *tripwireNav) GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer n.once.Do(n.cancel)
	return n.Static.GetNavSeries(ctx, fundID, start, end)
}

func TestSweepCancelledMidRunKeepsCompleted(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"FAST": divergingSeries(120, 0.0010),
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nav := &tripwireNav{Static: static, cancel: cancel}

	engine, err := backtest.NewEngine(
		backtest.Config{BenchmarkIndex: "NIFTY50", RiskFreeRate: 0.065},
		nav, static, static, nil,
	)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	// One run at a time so the first threshold finishes before the
	// cancellation reaches the rest.
	svc, err := NewSweepService(engine, nil, 1, nil)
	if err != nil {
		t.Fatalf("failed to build sweep service: %v", err)
	}

	outcomes, err := svc.Run(ctx, SweepRequest{
		Base: backtest.Request{
			Allocations:   []models.AllocationTarget{{FundID: "FAST", TargetWeight: 100}},
			StartDate:     sweepStart,
			EndDate:       sweepStart.AddDate(0, 0, 90),
			InitialAmount: 100000,
		},
		Thresholds: []float64{2, 5, 10},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if outcomes[0].Err != nil || outcomes[0].Result == nil {
		t.Fatalf("first run should have completed before cancellation: %v", outcomes[0].Err)
	}
	for _, o := range outcomes[1:] {
		if o.Err == nil {
			t.Fatalf("threshold %v ran after cancellation without error", o.Threshold)
		}
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("threshold %v failed with %v, want context.Canceled", o.Threshold, o.Err)
		}
	}

	best, ok := Best(outcomes)
	if !ok || best.Threshold != 2 {
		t.Fatalf("expected the completed run to win, got %v (ok=%v)", best.Threshold, ok)
	}
}

func TestBestPicksHighestFinalAmount(t *testing.T) {
	outcomes := []SweepOutcome{
		{Threshold: 2, Result: &models.BacktestResult{FinalAmount: 105000}},
		{Threshold: 5, Err: context.DeadlineExceeded},
		{Threshold: 10, Result: &models.BacktestResult{FinalAmount: 112000}},
	}

	best, ok := Best(outcomes)
	if !ok {
		t.Fatal("expected a winning outcome")
	}
	if best.Threshold != 10 {
		t.Fatalf("best threshold %v, want 10", best.Threshold)
	}
}
