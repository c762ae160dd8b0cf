package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/timeseries"
)

// Config holds scoring engine settings.
type Config struct {
	// BenchmarkIndex names the market index used for capture ratios.
	BenchmarkIndex string
	// RiskFreeRate is the annual risk-free rate as a decimal fraction.
	RiskFreeRate float64
}

// Engine scores funds against their peer group. All data access goes
// through the injected providers; the engine holds no storage of its own
// beyond the per-run ranking board.
type Engine struct {
	cfg       Config
	nav       provider.NavProvider
	benchmark provider.BenchmarkProvider
	signals   provider.SignalProvider
	logger    *logrus.Logger
	board     *scoreboard
}

// NewEngine creates a scoring engine. The signal provider may be nil, in
// which case the qualitative sub-metrics fall back to the default band.
func NewEngine(cfg Config, nav provider.NavProvider, benchmark provider.BenchmarkProvider, signals provider.SignalProvider, logger *logrus.Logger) (*Engine, error) {
	if nav == nil {
		return nil, fmt.Errorf("nav provider is required")
	}
	if benchmark == nil {
		return nil, fmt.Errorf("benchmark provider is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Engine{
		cfg:       cfg,
		nav:       nav,
		benchmark: benchmark,
		signals:   signals,
		logger:    logger,
		board:     newScoreboard(),
	}, nil
}

// ResetCategory clears the ranking board for a category and score date,
// used when a category-wide pass starts over.
func (e *Engine) ResetCategory(category string, scoreDate time.Time) {
	e.board.reset(category, scoreDate)
}

// Standing returns a scored fund's current rank, population size, and
// quartile on the category board. Category-wide passes use it to finalize
// ranks once every fund has been scored.
func (e *Engine) Standing(category string, scoreDate time.Time, fundID string) (rank, total, quartile int, ok bool) {
	return e.board.standing(category, scoreDate, fundID)
}

// ScoreFund computes one fund's score record against its peer group as of
// scoreDate. Missing fund history is fatal to this fund's score; missing
// peer, benchmark, or signal data degrades individual sub-scores to the
// documented default band instead of failing the run.
func (e *Engine) ScoreFund(ctx context.Context, fund *models.FundProfile, scoreDate time.Time, peers []*models.FundProfile) (*models.ScoreRecord, error) {
	if fund == nil {
		return nil, fmt.Errorf("fund profile is required")
	}

	series, err := e.nav.GetNavSeries(ctx, fund.FundID, time.Time{}, scoreDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load NAV series for %s: %w", fund.FundID, err)
	}
	if len(series) < minNavPoints {
		return nil, fmt.Errorf("fund %s has %d NAV points, need %d: %w",
			fund.FundID, len(series), minNavPoints, models.ErrInsufficientData)
	}

	benchSeries := e.benchmarkSeries(ctx, scoreDate)
	metrics := e.computeMetrics(series, benchSeries, scoreDate)

	peerMetrics := e.collectPeerMetrics(ctx, fund.FundID, scoreDate, peers, benchSeries)

	fundSignals := e.fundSignals(ctx, fund.FundID)

	returnsScore := sumScores(
		subMetric{metrics.Return3M, peerMetrics.return3M, HigherIsBetter, pointsReturn3M},
		subMetric{metrics.Return6M, peerMetrics.return6M, HigherIsBetter, pointsReturn6M},
		subMetric{metrics.Return1Y, peerMetrics.return1Y, HigherIsBetter, pointsReturn1Y},
		subMetric{metrics.Return3Y, peerMetrics.return3Y, HigherIsBetter, pointsReturn3Y},
		subMetric{metrics.Return5Y, peerMetrics.return5Y, HigherIsBetter, pointsReturn5Y},
	)

	riskScore := sumScores(
		subMetric{metrics.Volatility1Y, peerMetrics.volatility1Y, LowerIsBetter, pointsVolatility1Y},
		subMetric{metrics.Volatility3Y, peerMetrics.volatility3Y, LowerIsBetter, pointsVolatility3Y},
		subMetric{metrics.NetCapture1Y(), peerMetrics.netCapture1Y, HigherIsBetter, pointsCapture1Y},
		subMetric{metrics.NetCapture3Y(), peerMetrics.netCapture3Y, HigherIsBetter, pointsCapture3Y},
		subMetric{metrics.MaxDrawdown, peerMetrics.maxDrawdown, LowerIsBetter, pointsMaxDrawdown},
	)

	aum := fund.AumValue
	expense := fund.ExpenseRatio
	otherScore := sumScores(
		subMetric{fundSignals.sectorSimilarity, peerMetrics.sectorSimilarity, HigherIsBetter, pointsSectorSimilarity},
		subMetric{fundSignals.forwardOutlook, peerMetrics.forwardOutlook, HigherIsBetter, pointsForwardOutlook},
		subMetric{&aum, peerMetrics.aumValue, HigherIsBetter, pointsAumSize},
		subMetric{&expense, peerMetrics.expenseRatio, LowerIsBetter, pointsExpenseRatio},
	)

	totalScore := returnsScore + riskScore + otherScore
	rank, total, quartile := e.board.rank(fund.Category, scoreDate, fund.FundID, totalScore)

	record := &models.ScoreRecord{
		ID:        uuid.New(),
		FundID:    fund.FundID,
		Category:  fund.Category,
		ScoreDate: scoreDate,
		Components: models.ComponentScores{
			HistoricalReturns: returnsScore,
			RiskGrade:         riskScore,
			OtherMetrics:      otherScore,
		},
		TotalScore:     totalScore,
		Quartile:       quartile,
		CategoryRank:   rank,
		CategoryTotal:  total,
		Recommendation: models.RecommendationFor(quartile, totalScore),
		Metrics:        metrics,
		CreatedAt:      time.Now().UTC(),
	}

	e.logger.WithFields(logrus.Fields{
		"fund_id":     fund.FundID,
		"category":    fund.Category,
		"total_score": totalScore,
		"quartile":    quartile,
	}).Debug("Fund scored")

	return record, nil
}

// benchmarkSeries fetches the benchmark window needed for capture ratios.
// Missing benchmark data degrades capture sub-scores, never fails the run.
func (e *Engine) benchmarkSeries(ctx context.Context, scoreDate time.Time) models.NavSeries {
	start := scoreDate.AddDate(-3, 0, -7)
	series, err := e.benchmark.GetIndexSeries(ctx, e.cfg.BenchmarkIndex, start, scoreDate)
	if err != nil {
		e.logger.WithError(err).WithField("index", e.cfg.BenchmarkIndex).
			Warn("Benchmark unavailable, capture sub-scores will use defaults")
		return nil
	}
	if len(series) == 0 {
		e.logger.WithField("index", e.cfg.BenchmarkIndex).
			Warn("Benchmark series empty for window")
		return nil
	}
	return series
}

// computeMetrics derives the full MetricSet for one fund as of scoreDate.
// Nil fields mean the history does not cover that metric's window.
func (e *Engine) computeMetrics(series, benchmark models.NavSeries, asOf time.Time) *models.MetricSet {
	m := &models.MetricSet{}

	m.Return3M = optional(timeseries.PointReturn(series, asOf, windowDays3M))
	m.Return6M = optional(timeseries.PointReturn(series, asOf, windowDays6M))
	m.Return1Y = optional(timeseries.AnnualizedReturn(series, asOf, windowDays1Y))
	m.Return3Y = optional(timeseries.AnnualizedReturn(series, asOf, windowDays3Y))
	m.Return5Y = optional(timeseries.AnnualizedReturn(series, asOf, windowDays5Y))

	dd := timeseries.MaxDrawdown(series)
	m.MaxDrawdown = &dd

	if window := trailingWindow(series, asOf, windowDays1Y); window != nil {
		daily := timeseries.DailyReturns(window)
		vol := timeseries.Volatility(daily)
		m.Volatility1Y = &vol
		if m.Return1Y != nil {
			sharpe := timeseries.SharpeRatio(*m.Return1Y/100, vol, e.cfg.RiskFreeRate)
			m.Sharpe1Y = &sharpe
		}
		sortino := timeseries.SortinoRatio(daily, e.cfg.RiskFreeRate)
		m.Sortino1Y = &sortino

		if benchmark != nil {
			fundR, benchR := timeseries.AlignedDailyReturns(window, benchmark)
			up := timeseries.CaptureRatio(fundR, benchR, timeseries.CaptureUp)
			down := timeseries.CaptureRatio(fundR, benchR, timeseries.CaptureDown)
			m.UpCapture1Y = &up
			m.DownCapture1Y = &down
		}
	}

	if window := trailingWindow(series, asOf, windowDays3Y); window != nil {
		daily := timeseries.DailyReturns(window)
		vol := timeseries.Volatility(daily)
		m.Volatility3Y = &vol
		if m.Return3Y != nil {
			sharpe := timeseries.SharpeRatio(*m.Return3Y/100, vol, e.cfg.RiskFreeRate)
			m.Sharpe3Y = &sharpe
		}
		sortino := timeseries.SortinoRatio(daily, e.cfg.RiskFreeRate)
		m.Sortino3Y = &sortino

		if benchmark != nil {
			fundR, benchR := timeseries.AlignedDailyReturns(window, benchmark)
			up := timeseries.CaptureRatio(fundR, benchR, timeseries.CaptureUp)
			down := timeseries.CaptureRatio(fundR, benchR, timeseries.CaptureDown)
			m.UpCapture3Y = &up
			m.DownCapture3Y = &down
		}
	}

	return m
}

// peerPopulation holds collected peer values per scored sub-metric. A peer
// missing data for one sub-metric is simply absent from that sub-metric's
// population.
type peerPopulation struct {
	return3M, return6M, return1Y, return3Y, return5Y []float64
	volatility1Y, volatility3Y                       []float64
	netCapture1Y, netCapture3Y                       []float64
	maxDrawdown                                      []float64
	sectorSimilarity, forwardOutlook                 []float64
	aumValue, expenseRatio                           []float64
}

func (e *Engine) collectPeerMetrics(ctx context.Context, subjectID string, scoreDate time.Time, peers []*models.FundProfile, benchSeries models.NavSeries) *peerPopulation {
	pop := &peerPopulation{}

	for _, peer := range peers {
		if peer == nil || peer.FundID == subjectID {
			continue
		}

		pop.aumValue = append(pop.aumValue, peer.AumValue)
		pop.expenseRatio = append(pop.expenseRatio, peer.ExpenseRatio)

		signals := e.fundSignals(ctx, peer.FundID)
		if signals.sectorSimilarity != nil {
			pop.sectorSimilarity = append(pop.sectorSimilarity, *signals.sectorSimilarity)
		}
		if signals.forwardOutlook != nil {
			pop.forwardOutlook = append(pop.forwardOutlook, *signals.forwardOutlook)
		}

		series, err := e.nav.GetNavSeries(ctx, peer.FundID, time.Time{}, scoreDate)
		if err != nil || len(series) < minNavPoints {
			// Peer data gap: exclude this peer from the NAV-derived
			// populations without failing the run.
			e.logger.WithField("peer_id", peer.FundID).Debug("Peer excluded from percentile population")
			continue
		}

		metrics := e.computeMetrics(series, benchSeries, scoreDate)
		appendIfPresent(&pop.return3M, metrics.Return3M)
		appendIfPresent(&pop.return6M, metrics.Return6M)
		appendIfPresent(&pop.return1Y, metrics.Return1Y)
		appendIfPresent(&pop.return3Y, metrics.Return3Y)
		appendIfPresent(&pop.return5Y, metrics.Return5Y)
		appendIfPresent(&pop.volatility1Y, metrics.Volatility1Y)
		appendIfPresent(&pop.volatility3Y, metrics.Volatility3Y)
		appendIfPresent(&pop.netCapture1Y, metrics.NetCapture1Y())
		appendIfPresent(&pop.netCapture3Y, metrics.NetCapture3Y())
		appendIfPresent(&pop.maxDrawdown, metrics.MaxDrawdown)
	}

	return pop
}

type signalValues struct {
	sectorSimilarity *float64
	forwardOutlook   *float64
}

func (e *Engine) fundSignals(ctx context.Context, fundID string) signalValues {
	if e.signals == nil {
		return signalValues{}
	}
	s, err := e.signals.GetFundSignals(ctx, fundID)
	if err != nil || s == nil {
		return signalValues{}
	}
	return signalValues{
		sectorSimilarity: &s.SectorSimilarity,
		forwardOutlook:   &s.ForwardOutlook,
	}
}

// trailingWindow returns the sub-series covering the trailing window, or nil
// when the history does not reach back far enough.
func trailingWindow(series models.NavSeries, asOf time.Time, windowDays int) models.NavSeries {
	if len(series) == 0 {
		return nil
	}
	start := asOf.AddDate(0, 0, -windowDays)
	if series[0].Date.After(start) {
		return nil
	}
	window := series.Window(start, asOf)
	if len(window) < 2 {
		return nil
	}
	return window
}

func sumScores(metrics ...subMetric) float64 {
	total := 0.0
	for _, m := range metrics {
		total += m.score()
	}
	return total
}

func optional(value float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &value
}

func appendIfPresent(dst *[]float64, value *float64) {
	if value != nil {
		*dst = append(*dst, *value)
	}
}
