package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/scoring"
)

var scoreDate = time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC)

// dailySeries builds n daily NAV points ending at scoreDate with a constant
// per-day growth rate.
func dailySeries(n int, dailyGrowth float64) models.NavSeries {
	series := make(models.NavSeries, n)
	value := 100.0
	start := scoreDate.AddDate(0, 0, -(n - 1))
	for i := 0; i < n; i++ {
		series[i] = models.NavPoint{Date: start.AddDate(0, 0, i), Value: value}
		value *= 1 + dailyGrowth
	}
	return series
}

type capturedScores struct {
	mu      sync.Mutex
	records []*models.ScoreRecord
}

func (c *capturedScores) SaveScore(ctx context.Context, record *models.ScoreRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
	return nil
}

func profile(fundID, category string) *models.FundProfile {
	return &models.FundProfile{
		FundID:       fundID,
		Name:         fundID,
		Category:     category,
		ExpenseRatio: 0.5,
		AumValue:     1e10,
	}
}

func newScorerFixture(t *testing.T, static *provider.Static, sink provider.ScoreSink) *CategoryScorer {
	t.Helper()

	engine, err := scoring.NewEngine(
		scoring.Config{BenchmarkIndex: "NIFTY50", RiskFreeRate: 0.065},
		static, static, static, nil,
	)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	scorer, err := NewCategoryScorer(static, engine, sink, CategoryScorerConfig{
		MaxConcurrentFunds: 2,
		FundsPerSecond:     1000,
	}, nil)
	if err != nil {
		t.Fatalf("failed to build scorer: %v", err)
	}
	return scorer
}

func TestScoreCategoryRanksWholePopulation(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"A": dailySeries(400, 0.0010),
		"B": dailySeries(400, 0.0005),
		"C": dailySeries(400, 0.0001),
	})
	static.Profiles = map[string]*models.FundProfile{
		"A": profile("A", "equity_largecap"),
		"B": profile("B", "equity_largecap"),
		"C": profile("C", "equity_largecap"),
	}

	sink := &capturedScores{}
	scorer := newScorerFixture(t, static, sink)

	report, err := scorer.ScoreCategory(context.Background(), "equity_largecap", scoreDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Scored) != 3 {
		t.Fatalf("scored %d funds, want 3 (failed: %v)", len(report.Scored), report.Failed)
	}

	seenRanks := make(map[int]string)
	for _, record := range report.Scored {
		if record.CategoryTotal != 3 {
			t.Errorf("fund %s sees population %d, want 3", record.FundID, record.CategoryTotal)
		}
		if prev, dup := seenRanks[record.CategoryRank]; dup {
			t.Errorf("rank %d assigned to both %s and %s", record.CategoryRank, prev, record.FundID)
		}
		seenRanks[record.CategoryRank] = record.FundID
		if record.Recommendation != models.RecommendationFor(record.Quartile, record.TotalScore) {
			t.Errorf("fund %s recommendation %q inconsistent with quartile %d",
				record.FundID, record.Recommendation, record.Quartile)
		}
	}

	if len(sink.records) != 3 {
		t.Fatalf("persisted %d records, want 3", len(sink.records))
	}
}

func TestScoreCategorySkipsThinHistory(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"A":    dailySeries(400, 0.0005),
		"B":    dailySeries(400, 0.0003),
		"THIN": dailySeries(30, 0.0004),
	})
	static.Profiles = map[string]*models.FundProfile{
		"A":    profile("A", "debt_liquid"),
		"B":    profile("B", "debt_liquid"),
		"THIN": profile("THIN", "debt_liquid"),
	}

	scorer := newScorerFixture(t, static, nil)

	report, err := scorer.ScoreCategory(context.Background(), "debt_liquid", scoreDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Scored) != 2 {
		t.Fatalf("scored %d funds, want 2", len(report.Scored))
	}
	if _, failed := report.Failed["THIN"]; !failed {
		t.Fatal("expected THIN to be reported as failed")
	}
	for _, record := range report.Scored {
		if record.CategoryTotal != 2 {
			t.Errorf("fund %s sees population %d, want 2 (thin fund excluded)", record.FundID, record.CategoryTotal)
		}
	}
}

func TestScoreCategoryCancelledMidRunKeepsFinished(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"A": dailySeries(400, 0.0010),
		"B": dailySeries(400, 0.0005),
		"C": dailySeries(400, 0.0001),
	})
	static.Profiles = map[string]*models.FundProfile{
		"A": profile("A", "equity_midcap"),
		"B": profile("B", "equity_midcap"),
		"C": profile("C", "equity_midcap"),
	}

	engine, err := scoring.NewEngine(
		scoring.Config{BenchmarkIndex: "NIFTY50", RiskFreeRate: 0.065},
		static, static, static, nil,
	)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}

	// One token every five seconds: the first fund dispatches immediately,
	// the second is still waiting on the limiter when the context goes.
	sink := &capturedScores{}
	scorer, err := NewCategoryScorer(static, engine, sink, CategoryScorerConfig{
		MaxConcurrentFunds: 2,
		FundsPerSecond:     0.2,
	}, nil)
	if err != nil {
		t.Fatalf("failed to build scorer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timer := time.AfterFunc(150*time.Millisecond, cancel)
	defer timer.Stop()

	report, err := scorer.ScoreCategory(ctx, "equity_midcap", scoreDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Scored) != 1 {
		t.Fatalf("scored %d funds, want the 1 dispatched before cancellation (failed: %v)",
			len(report.Scored), report.Failed)
	}
	if len(report.Failed) != 1 {
		t.Fatalf("failed %d funds, want only the one stopped at the limiter: %v",
			len(report.Failed), report.Failed)
	}
	for fundID, ferr := range report.Failed {
		if !errors.Is(ferr, context.Canceled) {
			t.Errorf("fund %s failed with %v, want context.Canceled", fundID, ferr)
		}
	}

	// The finished record is still ranked and persisted.
	record := report.Scored[0]
	if record.CategoryRank != 1 || record.CategoryTotal != 1 {
		t.Errorf("record standing %d of %d, want 1 of 1", record.CategoryRank, record.CategoryTotal)
	}
	if record.Recommendation == "" {
		t.Error("finished record has no recommendation")
	}
	if len(sink.records) != 1 {
		t.Fatalf("persisted %d records, want 1", len(sink.records))
	}
}

func TestScoreCategoryEmpty(t *testing.T) {
	scorer := newScorerFixture(t, provider.NewStatic(nil), nil)

	report, err := scorer.ScoreCategory(context.Background(), "nonexistent", scoreDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Scored) != 0 || len(report.Failed) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}

func TestScoreCategoryRerunReplaces(t *testing.T) {
	static := provider.NewStatic(map[string]models.NavSeries{
		"A": dailySeries(400, 0.0005),
		"B": dailySeries(400, 0.0003),
	})
	static.Profiles = map[string]*models.FundProfile{
		"A": profile("A", "hybrid_balanced"),
		"B": profile("B", "hybrid_balanced"),
	}

	scorer := newScorerFixture(t, static, nil)

	first, err := scorer.ScoreCategory(context.Background(), "hybrid_balanced", scoreDate)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := scorer.ScoreCategory(context.Background(), "hybrid_balanced", scoreDate)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	for _, record := range second.Scored {
		if record.CategoryTotal != 2 {
			t.Errorf("rerun inflated population to %d", record.CategoryTotal)
		}
	}
	if len(first.Scored) != len(second.Scored) {
		t.Fatalf("rerun scored %d funds, first scored %d", len(second.Scored), len(first.Scored))
	}
}
