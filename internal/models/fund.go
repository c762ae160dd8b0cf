package models

import (
	"time"
)

// NavPoint is a single (date, net asset value) observation for a fund.
type NavPoint struct {
	Date  time.Time `db:"nav_date" json:"date" validate:"required"`
	Value float64   `db:"nav_value" json:"value" validate:"required,gt=0"`
}

// NavSeries is an ordered NAV history for one fund. Dates are strictly
// increasing and values are positive; the series is immutable once fetched
// for a computation.
type NavSeries []NavPoint

// Len returns the number of observations in the series.
func (s NavSeries) Len() int {
	return len(s)
}

// First returns the earliest observation, or false for an empty series.
func (s NavSeries) First() (NavPoint, bool) {
	if len(s) == 0 {
		return NavPoint{}, false
	}
	return s[0], true
}

// Last returns the most recent observation, or false for an empty series.
func (s NavSeries) Last() (NavPoint, bool) {
	if len(s) == 0 {
		return NavPoint{}, false
	}
	return s[len(s)-1], true
}

// Window returns the sub-series with dates in [start, end], preserving order.
func (s NavSeries) Window(start, end time.Time) NavSeries {
	out := make(NavSeries, 0, len(s))
	for _, p := range s {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Validate checks the series invariants: strictly increasing dates and
// positive values.
func (s NavSeries) Validate() error {
	for i, p := range s {
		if p.Value <= 0 {
			return ErrInvalidNavValue
		}
		if i > 0 && !s[i-1].Date.Before(p.Date) {
			return ErrUnorderedSeries
		}
	}
	return nil
}

// FundProfile is read-only reference data for a fund supplied by the
// external catalog.
type FundProfile struct {
	FundID        string    `db:"fund_id" json:"fund_id" validate:"required"`
	Name          string    `db:"name" json:"name"`
	Category      string    `db:"category" json:"category" validate:"required"`
	Subcategory   string    `db:"subcategory" json:"subcategory"`
	ExpenseRatio  float64   `db:"expense_ratio" json:"expense_ratio" validate:"gte=0"`
	AumValue      float64   `db:"aum_value" json:"aum_value" validate:"gte=0"`
	InceptionDate time.Time `db:"inception_date" json:"inception_date"`
}

// FundSignals carries externally computed qualitative signals consumed by
// the scoring engine. The core never computes these itself.
type FundSignals struct {
	FundID           string  `json:"fund_id"`
	SectorSimilarity float64 `json:"sector_similarity"`
	ForwardOutlook   float64 `json:"forward_outlook"`
}

// MetricSet holds the derived per-fund statistics used for scoring. Nil
// fields mean the metric could not be computed from the available history;
// callers must treat nil as unavailable, never as zero.
type MetricSet struct {
	Return3M  *float64 `json:"return_3m"`
	Return6M  *float64 `json:"return_6m"`
	Return1Y  *float64 `json:"return_1y"`
	Return3Y  *float64 `json:"return_3y"`
	Return5Y  *float64 `json:"return_5y"`

	Volatility1Y *float64 `json:"volatility_1y"`
	Volatility3Y *float64 `json:"volatility_3y"`
	Sharpe1Y     *float64 `json:"sharpe_1y"`
	Sharpe3Y     *float64 `json:"sharpe_3y"`
	Sortino1Y    *float64 `json:"sortino_1y"`
	Sortino3Y    *float64 `json:"sortino_3y"`

	MaxDrawdown *float64 `json:"max_drawdown"`

	UpCapture1Y   *float64 `json:"up_capture_1y"`
	DownCapture1Y *float64 `json:"down_capture_1y"`
	UpCapture3Y   *float64 `json:"up_capture_3y"`
	DownCapture3Y *float64 `json:"down_capture_3y"`
}

// NetCapture1Y returns up-capture minus down-capture over one year, the
// quantity the scoring engine ranks. Nil when either side is unavailable.
func (m *MetricSet) NetCapture1Y() *float64 {
	return netCapture(m.UpCapture1Y, m.DownCapture1Y)
}

// NetCapture3Y returns up-capture minus down-capture over three years.
func (m *MetricSet) NetCapture3Y() *float64 {
	return netCapture(m.UpCapture3Y, m.DownCapture3Y)
}

func netCapture(up, down *float64) *float64 {
	if up == nil || down == nil {
		return nil
	}
	v := *up - *down
	return &v
}
