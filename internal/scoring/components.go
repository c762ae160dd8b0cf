package scoring

// Point budgets per scored sub-metric. Historical returns total 40, risk
// grade totals 30, other metrics total 30, so a fully scored fund is capped
// at 100 by construction.
const (
	pointsReturn3M = 5
	pointsReturn6M = 10
	pointsReturn1Y = 10
	pointsReturn3Y = 8
	pointsReturn5Y = 7

	pointsVolatility1Y = 5
	pointsVolatility3Y = 5
	pointsCapture1Y    = 8
	pointsCapture3Y    = 8
	pointsMaxDrawdown  = 4

	pointsSectorSimilarity = 10
	pointsForwardOutlook   = 10
	pointsAumSize          = 5
	pointsExpenseRatio     = 5
)

// Trailing-window lengths in calendar days.
const (
	windowDays3M = 91
	windowDays6M = 182
	windowDays1Y = 365
	windowDays3Y = 1095
	windowDays5Y = 1825
)

// minNavPoints is the minimum NAV history for a fund to be scored at all.
const minNavPoints = 60

// subMetric pairs a fund value with its peer population, polarity, and point
// budget for one percentile-scored component line.
type subMetric struct {
	value     *float64
	peers     []float64
	polarity  Polarity
	maxPoints float64
}

// score awards the percentile-band points for the sub-metric, or the default
// band when the fund's own value is unavailable.
func (m subMetric) score() float64 {
	if m.value == nil {
		return DefaultScore(m.maxPoints)
	}
	return ScoreMetric(*m.value, m.peers, m.polarity, m.maxPoints)
}
