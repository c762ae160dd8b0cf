// Package timeseries provides pure statistics over ordered NAV histories.
package timeseries

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/fundsight/fundsight/internal/models"
)

const (
	// TradingDaysPerYear is the annualization factor base for daily returns.
	TradingDaysPerYear = 252

	// CalendarDaysPerYear is used for window annualization and elapsed-years
	// arithmetic.
	CalendarDaysPerYear = 365

	// maxSortino is returned when no daily return falls below the risk-free
	// threshold, so the downside deviation is undefined in the fund's favor.
	maxSortino = 999
)

// CaptureDirection selects which benchmark days a capture ratio conditions on.
type CaptureDirection int

const (
	// CaptureUp conditions on days the benchmark return is positive.
	CaptureUp CaptureDirection = iota
	// CaptureDown conditions on days the benchmark return is negative.
	CaptureDown
)

// NavOn resolves the NAV for a target date: an exact match is preferred,
// else the latest point strictly before the date, else the earliest point
// strictly after it. Only an empty series fails the lookup.
func NavOn(series models.NavSeries, date time.Time) (models.NavPoint, bool) {
	if len(series) == 0 {
		return models.NavPoint{}, false
	}

	var before *models.NavPoint
	for i := range series {
		p := series[i]
		if p.Date.Equal(date) {
			return p, true
		}
		if p.Date.Before(date) {
			before = &series[i]
			continue
		}
		// First point after the target; use it only when nothing precedes.
		if before != nil {
			return *before, true
		}
		return p, true
	}
	return *before, true
}

// PointReturn computes the percentage return over a trailing window ending
// at asOf. The second return value is false when the series does not cover
// the window; callers must treat that as "metric unavailable", never zero.
func PointReturn(series models.NavSeries, asOf time.Time, windowDays int) (float64, bool) {
	startNav, endNav, ok := windowEndpoints(series, asOf, windowDays)
	if !ok {
		return 0, false
	}
	return (endNav/startNav - 1) * 100, true
}

// AnnualizedReturn computes the annualized percentage return over a trailing
// window ending at asOf, for windows of a year or more.
func AnnualizedReturn(series models.NavSeries, asOf time.Time, windowDays int) (float64, bool) {
	startNav, endNav, ok := windowEndpoints(series, asOf, windowDays)
	if !ok {
		return 0, false
	}
	power := float64(CalendarDaysPerYear) / float64(windowDays)
	return (math.Pow(endNav/startNav, power) - 1) * 100, true
}

func windowEndpoints(series models.NavSeries, asOf time.Time, windowDays int) (float64, float64, bool) {
	if len(series) == 0 || windowDays <= 0 {
		return 0, 0, false
	}
	windowStart := asOf.AddDate(0, 0, -windowDays)
	if series[0].Date.After(windowStart) {
		// History does not reach back far enough to cover the window.
		return 0, 0, false
	}
	startPoint, ok := NavOn(series, windowStart)
	if !ok {
		return 0, 0, false
	}
	endPoint, ok := NavOn(series, asOf)
	if !ok {
		return 0, 0, false
	}
	if startPoint.Value == 0 {
		return 0, 0, false
	}
	return startPoint.Value, endPoint.Value, true
}

// DailyReturns computes chronological ratio-minus-one returns between
// consecutive NAV points. The result has length len(series)-1.
func DailyReturns(series models.NavSeries) []float64 {
	if len(series) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, series[i].Value/prev-1)
	}
	return returns
}

// AlignedDailyReturns computes daily returns for two series restricted to
// their common dates, so benchmark-relative statistics compare like with
// like. Both results have the same length.
func AlignedDailyReturns(fund, benchmark models.NavSeries) ([]float64, []float64) {
	benchByDate := make(map[time.Time]float64, len(benchmark))
	for _, p := range benchmark {
		benchByDate[dateKey(p.Date)] = p.Value
	}

	var fundVals, benchVals []float64
	for _, p := range fund {
		if v, ok := benchByDate[dateKey(p.Date)]; ok {
			fundVals = append(fundVals, p.Value)
			benchVals = append(benchVals, v)
		}
	}

	fundReturns := ReturnsFromValues(fundVals)
	benchReturns := ReturnsFromValues(benchVals)
	return fundReturns, benchReturns
}

// ReturnsFromValues computes consecutive ratio-minus-one returns over a raw
// value sequence, such as a simulated portfolio trajectory.
func ReturnsFromValues(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, values[i]/values[i-1]-1)
	}
	return returns
}

func dateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Volatility annualizes the sample standard deviation of daily returns.
// Fewer than two observations yield zero.
func Volatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	sd := stat.StdDev(dailyReturns, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown scans the series chronologically and returns the largest
// peak-to-trough fractional decline. Series shorter than two points yield
// zero.
func MaxDrawdown(series models.NavSeries) float64 {
	if len(series) < 2 {
		return 0
	}
	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}
	return MaxDrawdownValues(values)
}

// MaxDrawdownValues is MaxDrawdown over a raw value sequence, used for
// simulated portfolio trajectories.
func MaxDrawdownValues(values []float64) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			continue
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// SharpeRatio computes excess annualized return per unit of volatility.
// Zero volatility yields zero rather than a fault.
func SharpeRatio(annualizedReturn, volatility, riskFreeRate float64) float64 {
	if volatility == 0 {
		return 0
	}
	return (annualizedReturn - riskFreeRate) / volatility
}

// SortinoRatio is like Sharpe but penalizes only downside deviation, i.e.
// deviation of returns below the daily risk-free threshold. When no return
// falls below the threshold the ratio is capped at its maximal favorable
// value instead of dividing by zero.
func SortinoRatio(dailyReturns []float64, riskFreeRate float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	dailyRf := riskFreeRate / TradingDaysPerYear

	variance := 0.0
	count := 0
	for _, r := range dailyReturns {
		if r < dailyRf {
			diff := r - dailyRf
			variance += diff * diff
			count++
		}
	}
	if count == 0 {
		return maxSortino
	}
	downsideDev := math.Sqrt(variance/float64(count)) * math.Sqrt(TradingDaysPerYear)
	if downsideDev == 0 {
		return maxSortino
	}

	annualized := stat.Mean(dailyReturns, nil) * TradingDaysPerYear
	return (annualized - riskFreeRate) / downsideDev
}

// CaptureRatio computes the fund's average return over days the benchmark
// moved in the given direction, divided by the benchmark's average return
// over the same days, times 100. Zero when no qualifying days exist. Input
// sequences must already be date-aligned.
func CaptureRatio(fundReturns, benchmarkReturns []float64, direction CaptureDirection) float64 {
	n := len(fundReturns)
	if len(benchmarkReturns) < n {
		n = len(benchmarkReturns)
	}

	fundSum := 0.0
	benchSum := 0.0
	count := 0
	for i := 0; i < n; i++ {
		b := benchmarkReturns[i]
		if direction == CaptureUp && b <= 0 {
			continue
		}
		if direction == CaptureDown && b >= 0 {
			continue
		}
		fundSum += fundReturns[i]
		benchSum += b
		count++
	}
	if count == 0 || benchSum == 0 {
		return 0
	}
	return (fundSum / float64(count)) / (benchSum / float64(count)) * 100
}
