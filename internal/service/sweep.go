package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fundsight/fundsight/internal/backtest"
	"github.com/fundsight/fundsight/internal/metrics"
	"github.com/fundsight/fundsight/internal/models"
	"github.com/fundsight/fundsight/internal/provider"
)

// SweepService runs the same backtest across a set of rebalance thresholds
// so the thresholds can be compared on one window.
type SweepService struct {
	engine        *backtest.Engine
	sink          provider.ResultSink
	maxConcurrent int
	logger        *logrus.Logger
}

// SweepRequest is a base backtest request plus the thresholds to try. The
// base request's rebalance settings are overridden per run.
type SweepRequest struct {
	Base       backtest.Request
	Thresholds []float64
}

// SweepOutcome pairs one threshold with its run result or error.
type SweepOutcome struct {
	Threshold float64
	Result    *models.BacktestResult
	Err       error
}

// NewSweepService creates a sweep service. sink may be nil to skip
// persistence.
func NewSweepService(engine *backtest.Engine, sink provider.ResultSink, maxConcurrent int, log *logrus.Logger) (*SweepService, error) {
	if engine == nil {
		return nil, fmt.Errorf("backtest engine is required")
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if log == nil {
		log = logrus.New()
	}

	return &SweepService{
		engine:        engine,
		sink:          sink,
		maxConcurrent: maxConcurrent,
		logger:        log,
	}, nil
}

// Run executes one backtest per threshold and returns the outcomes ordered
// by threshold ascending. Individual run failures do not abort the sweep.
func (s *SweepService) Run(ctx context.Context, req SweepRequest) ([]SweepOutcome, error) {
	if len(req.Thresholds) == 0 {
		return nil, fmt.Errorf("at least one threshold is required")
	}

	outcomes := make([]SweepOutcome, len(req.Thresholds))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.maxConcurrent)

	for i, threshold := range req.Thresholds {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, threshold float64) {
			defer wg.Done()
			defer func() { <-sem }()

			runReq := req.Base
			runReq.RebalanceFrequency = models.RebalanceThreshold
			runReq.RebalanceThreshold = threshold

			runStart := time.Now()
			result, err := s.engine.Run(ctx, runReq)
			outcomes[i] = SweepOutcome{Threshold: threshold, Result: result, Err: err}

			status := "success"
			if err != nil {
				status = "failure"
				s.logger.WithError(err).WithField("threshold", threshold).Warn("Sweep run failed")
			}
			metrics.RecordBacktestRun("sweep", status, time.Since(runStart).Seconds())

			if err == nil && s.sink != nil {
				if saveErr := s.sink.SaveResult(ctx, result); saveErr != nil {
					s.logger.WithError(saveErr).WithField("threshold", threshold).Error("Failed to persist sweep result")
				}
			}
		}(i, threshold)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Threshold < outcomes[j].Threshold })
	return outcomes, nil
}

// Best returns the successful outcome with the highest final amount, or
// false when every run failed.
func Best(outcomes []SweepOutcome) (SweepOutcome, bool) {
	best := SweepOutcome{}
	found := false
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			continue
		}
		if !found || o.Result.FinalAmount > best.Result.FinalAmount {
			best = o
			found = true
		}
	}
	return best, found
}
