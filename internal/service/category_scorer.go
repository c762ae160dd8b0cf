// Package service coordinates category-wide scoring runs and backtest
// sweeps on top of the core engines.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/fundsight/fundsight/internal/logger"
	"github.com/fundsight/fundsight/internal/metrics"
	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
	"github.com/fundsight/fundsight/internal/scoring"
)

// CategoryScorer scores every fund in a category against its peers and
// persists the finished records.
type CategoryScorer struct {
	catalog       provider.FundCatalog
	engine        *scoring.Engine
	sink          provider.ScoreSink
	limiter       *rate.Limiter
	maxConcurrent int
	logger        *logrus.Logger
	runLogger     *logger.RunLogger
}

// CategoryScorerConfig holds scoring run settings.
type CategoryScorerConfig struct {
	// MaxConcurrentFunds bounds how many funds are scored in parallel.
	MaxConcurrentFunds int
	// FundsPerSecond rate-limits fund scoring to protect the providers
	// behind the engine.
	FundsPerSecond float64
}

// CategoryRunReport summarizes one category scoring run. A run that is
// cancelled mid-way still reports the records completed so far.
type CategoryRunReport struct {
	Category  string
	ScoreDate time.Time
	Scored    []*models.ScoreRecord
	Failed    map[string]error
	Elapsed   time.Duration
}

// NewCategoryScorer creates a category scorer. sink may be nil to skip
// persistence.
func NewCategoryScorer(catalog provider.FundCatalog, engine *scoring.Engine, sink provider.ScoreSink, cfg CategoryScorerConfig, log *logrus.Logger) (*CategoryScorer, error) {
	if catalog == nil {
		return nil, fmt.Errorf("fund catalog is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("scoring engine is required")
	}
	if cfg.MaxConcurrentFunds <= 0 {
		cfg.MaxConcurrentFunds = 8
	}
	if cfg.FundsPerSecond <= 0 {
		cfg.FundsPerSecond = 20
	}
	if log == nil {
		log = logrus.New()
	}

	return &CategoryScorer{
		catalog:       catalog,
		engine:        engine,
		sink:          sink,
		limiter:       rate.NewLimiter(rate.Limit(cfg.FundsPerSecond), 1),
		maxConcurrent: cfg.MaxConcurrentFunds,
		logger:        log,
		runLogger:     logger.NewRunLogger(log),
	}, nil
}

// ScoreCategory scores all funds in the category as of scoreDate. Funds
// without enough history are reported as failed without aborting the run;
// cancellation stops dispatching and returns the records finished so far.
func (s *CategoryScorer) ScoreCategory(ctx context.Context, category string, scoreDate time.Time) (*CategoryRunReport, error) {
	startTime := time.Now()

	funds, err := s.catalog.GetFundsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds for category %s: %w", category, err)
	}

	report := &CategoryRunReport{
		Category:  category,
		ScoreDate: scoreDate,
		Failed:    make(map[string]error),
	}
	metrics.UpdateCategoryUniverseSize(category, float64(len(funds)))
	if len(funds) == 0 {
		return report, nil
	}

	s.engine.ResetCategory(category, scoreDate)
	s.runLogger.LogScoringRunStart(category, len(funds), scoreDate)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, s.maxConcurrent)
	)

	for _, fund := range funds {
		if err := s.limiter.Wait(ctx); err != nil {
			mu.Lock()
			report.Failed[fund.FundID] = err
			mu.Unlock()
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(fund *models.FundProfile) {
			defer wg.Done()
			defer func() { <-sem }()

			scoreStart := time.Now()
			record, err := s.engine.ScoreFund(ctx, fund, scoreDate, funds)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[fund.FundID] = err
				metrics.RecordFundScored(category, scoreStatus(err), time.Since(scoreStart).Seconds())
				s.logger.WithError(err).WithField("fund_id", fund.FundID).Warn("Fund scoring failed")
				return
			}
			report.Scored = append(report.Scored, record)
			metrics.RecordFundScored(category, "success", time.Since(scoreStart).Seconds())
		}(fund)
	}
	wg.Wait()

	s.finalize(ctx, report)

	report.Elapsed = time.Since(startTime)
	s.runLogger.LogScoringRunComplete(category, len(report.Scored), len(report.Failed), report.Elapsed)

	return report, nil
}

// finalize re-reads each record's rank now that the whole category is on
// the board, then persists the records one at a time.
func (s *CategoryScorer) finalize(ctx context.Context, report *CategoryRunReport) {
	for _, record := range report.Scored {
		rank, total, quartile, ok := s.engine.Standing(record.Category, record.ScoreDate, record.FundID)
		if ok {
			record.CategoryRank = rank
			record.CategoryTotal = total
			record.Quartile = quartile
			record.Recommendation = models.RecommendationFor(quartile, record.TotalScore)
		}

		metrics.RecordFundTotalScore(record.Category, record.TotalScore)
		s.runLogger.LogFundScored(record.FundID, record.Category, record.TotalScore, record.Quartile, record.Recommendation)

		if s.sink != nil {
			if err := s.sink.SaveScore(ctx, record); err != nil {
				report.Failed[record.FundID] = fmt.Errorf("failed to persist score: %w", err)
				s.logger.WithError(err).WithField("fund_id", record.FundID).Error("Failed to persist score")
			}
		}
	}
}

func scoreStatus(err error) string {
	if errors.Is(err, models.ErrInsufficientData) {
		return "insufficient_data"
	}
	return "failure"
}
