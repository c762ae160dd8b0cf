package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/fundsight/fundsight/internal/models"
)

func day(offset int) time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func seriesFrom(values ...float64) models.NavSeries {
	s := make(models.NavSeries, len(values))
	for i, v := range values {
		s[i] = models.NavPoint{Date: day(i), Value: v}
	}
	return s
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNavOnExactMatch(t *testing.T) {
	s := seriesFrom(100, 101, 102)
	p, ok := NavOn(s, day(1))
	if !ok || p.Value != 101 {
		t.Fatalf("expected exact match 101, got %v ok=%v", p.Value, ok)
	}
}

func TestNavOnPrefersLatestBefore(t *testing.T) {
	s := models.NavSeries{
		{Date: day(0), Value: 100},
		{Date: day(5), Value: 110},
	}
	p, ok := NavOn(s, day(3))
	if !ok || p.Value != 100 {
		t.Fatalf("expected latest-before value 100, got %v", p.Value)
	}
}

func TestNavOnFallsBackToEarliestAfter(t *testing.T) {
	s := models.NavSeries{
		{Date: day(5), Value: 110},
		{Date: day(6), Value: 111},
	}
	p, ok := NavOn(s, day(1))
	if !ok || p.Value != 110 {
		t.Fatalf("expected earliest-after value 110, got %v", p.Value)
	}
}

func TestNavOnEmptySeries(t *testing.T) {
	if _, ok := NavOn(models.NavSeries{}, day(0)); ok {
		t.Fatal("expected lookup failure on empty series")
	}
}

func TestPointReturn(t *testing.T) {
	s := seriesFrom(100, 105, 110, 121)
	got, ok := PointReturn(s, day(3), 3)
	if !ok {
		t.Fatal("expected return to be available")
	}
	if !almostEqual(got, 21) {
		t.Fatalf("expected 21%%, got %v", got)
	}
}

func TestPointReturnInsufficientWindow(t *testing.T) {
	s := seriesFrom(100, 110)
	if _, ok := PointReturn(s, day(1), 90); ok {
		t.Fatal("expected unavailable return when series does not cover window")
	}
}

func TestAnnualizedReturn(t *testing.T) {
	s := models.NavSeries{
		{Date: day(0), Value: 100},
		{Date: day(730), Value: 144},
	}
	got, ok := AnnualizedReturn(s, day(730), 730)
	if !ok {
		t.Fatal("expected annualized return to be available")
	}
	// 44% over two years is about 20% annualized.
	if math.Abs(got-20) > 0.2 {
		t.Fatalf("expected roughly 20%%, got %v", got)
	}
}

func TestDailyReturnsLength(t *testing.T) {
	s := seriesFrom(100, 110, 99)
	returns := DailyReturns(s)
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if !almostEqual(returns[0], 0.10) {
		t.Fatalf("expected first return 0.10, got %v", returns[0])
	}
}

func TestConstantSeriesHasZeroVolatilityAndDrawdown(t *testing.T) {
	s := seriesFrom(100, 100, 100, 100, 100)
	if v := Volatility(DailyReturns(s)); v != 0 {
		t.Fatalf("expected zero volatility, got %v", v)
	}
	if dd := MaxDrawdown(s); dd != 0 {
		t.Fatalf("expected zero drawdown, got %v", dd)
	}
}

func TestMonotonicSeriesHasZeroDrawdown(t *testing.T) {
	s := seriesFrom(100, 100, 105, 105, 120)
	if dd := MaxDrawdown(s); dd != 0 {
		t.Fatalf("expected zero drawdown, got %v", dd)
	}
}

func TestMaxDrawdownPeakReset(t *testing.T) {
	s := seriesFrom(100, 110, 99, 121, 115)
	dd := MaxDrawdown(s)
	if !almostEqual(dd, 11.0/110.0) {
		t.Fatalf("expected drawdown %v, got %v", 11.0/110.0, dd)
	}
}

func TestSharpeRatioZeroVolatility(t *testing.T) {
	if got := SharpeRatio(10, 0, 2); got != 0 {
		t.Fatalf("expected zero sharpe for zero volatility, got %v", got)
	}
}

func TestRatiosScaleIndependent(t *testing.T) {
	base := seriesFrom(100, 102, 99, 104, 101, 108)
	scaled := make(models.NavSeries, len(base))
	for i, p := range base {
		scaled[i] = models.NavPoint{Date: p.Date, Value: p.Value * 7}
	}

	baseReturns := DailyReturns(base)
	scaledReturns := DailyReturns(scaled)

	baseSharpe := SharpeRatio(5, Volatility(baseReturns), 1)
	scaledSharpe := SharpeRatio(5, Volatility(scaledReturns), 1)
	if !almostEqual(baseSharpe, scaledSharpe) {
		t.Fatalf("sharpe not scale independent: %v vs %v", baseSharpe, scaledSharpe)
	}

	baseSortino := SortinoRatio(baseReturns, 0.02)
	scaledSortino := SortinoRatio(scaledReturns, 0.02)
	if !almostEqual(baseSortino, scaledSortino) {
		t.Fatalf("sortino not scale independent: %v vs %v", baseSortino, scaledSortino)
	}
}

func TestSortinoNoDownsideIsCapped(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.015}
	if got := SortinoRatio(returns, 0); got != maxSortino {
		t.Fatalf("expected capped sortino, got %v", got)
	}
}

func TestCaptureRatio(t *testing.T) {
	fund := []float64{0.02, -0.01, 0.03, -0.02}
	bench := []float64{0.01, -0.02, 0.02, -0.01}

	up := CaptureRatio(fund, bench, CaptureUp)
	// Fund averaged 2.5% on up days vs benchmark 1.5%.
	if !almostEqual(up, 0.025/0.015*100) {
		t.Fatalf("unexpected up capture %v", up)
	}

	down := CaptureRatio(fund, bench, CaptureDown)
	if !almostEqual(down, 0.015/0.015*100) {
		t.Fatalf("unexpected down capture %v", down)
	}
}

func TestCaptureRatioNoQualifyingDays(t *testing.T) {
	fund := []float64{0.01, 0.02}
	bench := []float64{0.01, 0.02}
	if got := CaptureRatio(fund, bench, CaptureDown); got != 0 {
		t.Fatalf("expected zero capture with no down days, got %v", got)
	}
}

func TestAlignedDailyReturns(t *testing.T) {
	fund := models.NavSeries{
		{Date: day(0), Value: 100},
		{Date: day(1), Value: 102},
		{Date: day(3), Value: 104},
	}
	bench := models.NavSeries{
		{Date: day(0), Value: 50},
		{Date: day(2), Value: 51},
		{Date: day(3), Value: 52},
	}
	fr, br := AlignedDailyReturns(fund, bench)
	if len(fr) != 1 || len(br) != 1 {
		t.Fatalf("expected single aligned return, got %d and %d", len(fr), len(br))
	}
	if !almostEqual(fr[0], 0.04) {
		t.Fatalf("expected fund return 0.04, got %v", fr[0])
	}
}
