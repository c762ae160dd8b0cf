// Package provider defines the external data interfaces the analytics core
// consumes. The engines are storage-agnostic: anything satisfying these
// interfaces (Postgres repositories, HTTP feeds, in-memory fixtures) can
// back a scoring or backtest run.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fundsight/fundsight/internal/models"
)

// NavProvider supplies NAV histories for funds. A zero start or end time
// means the range is unbounded on that side.
type NavProvider interface {
	// GetNavSeries retrieves the ordered NAV history for a fund within the
	// given date range.
	GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error)

	// GetLatestNav retrieves the most recent NAV observation for a fund.
	GetLatestNav(ctx context.Context, fundID string) (models.NavPoint, error)
}

// FundCatalog supplies read-only fund reference data.
type FundCatalog interface {
	GetFundProfile(ctx context.Context, fundID string) (*models.FundProfile, error)
	GetFundsByCategory(ctx context.Context, category string) ([]*models.FundProfile, error)
}

// BenchmarkProvider supplies market index histories. An empty series means
// no benchmark data exists for the window; it must never be treated as
// zero-value data.
type BenchmarkProvider interface {
	GetIndexSeries(ctx context.Context, indexName string, start, end time.Time) (models.NavSeries, error)
}

// SignalProvider supplies externally computed qualitative signals
// (sector similarity, forward outlook). The core consumes these as opaque
// ranked values and never computes them.
type SignalProvider interface {
	GetFundSignals(ctx context.Context, fundID string) (*models.FundSignals, error)
}

// PortfolioSource resolves portfolio definitions and risk-profile defaults.
type PortfolioSource interface {
	GetPortfolio(ctx context.Context, id uuid.UUID) (*models.Portfolio, error)
	GetPortfolioByName(ctx context.Context, name string) (*models.Portfolio, error)

	// GetAllocationsForProfile resolves a risk-profile label to allocations.
	// Implementations fall back to a built-in default table when no concrete
	// portfolio exists for the profile.
	GetAllocationsForProfile(ctx context.Context, riskProfile string) ([]models.AllocationTarget, error)
}

// ScoreSink accepts score records for persistence. Writes for the same
// (fund, score date) replace the previous record.
type ScoreSink interface {
	SaveScore(ctx context.Context, record *models.ScoreRecord) error
}

// ResultSink accepts backtest results for persistence.
type ResultSink interface {
	SaveResult(ctx context.Context, result *models.BacktestResult) error
}

// ProviderError represents errors from provider operations
type ProviderError struct {
	Source  string // Provider name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e ProviderError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeAuthenticationFailed = "authentication_failed"
)

// Error constructors
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrInvalidData       = errors.New("invalid data format")
)

// NewProviderError creates a new provider error
func NewProviderError(source, code, message string, err error) ProviderError {
	return ProviderError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
