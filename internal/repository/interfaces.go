package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fundsight/fundsight/internal/models"
)

// NavRepository defines the interface for NAV history data access. Its read
// side satisfies provider.NavProvider.
type NavRepository interface {
	InsertBatch(ctx context.Context, fundID string, series models.NavSeries) error
	GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error)
	GetLatestNav(ctx context.Context, fundID string) (models.NavPoint, error)
	DeleteBefore(ctx context.Context, fundID string, cutoff time.Time) (int64, error)
}

// FundRepository defines the interface for fund profile data access. Its
// read side satisfies provider.FundCatalog.
type FundRepository interface {
	Upsert(ctx context.Context, profile *models.FundProfile) error
	GetFundProfile(ctx context.Context, fundID string) (*models.FundProfile, error)
	GetFundsByCategory(ctx context.Context, category string) ([]*models.FundProfile, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// IndexRepository defines the interface for benchmark index levels. Its
// read side satisfies provider.BenchmarkProvider.
type IndexRepository interface {
	InsertBatch(ctx context.Context, indexName string, series models.NavSeries) error
	GetIndexSeries(ctx context.Context, indexName string, start, end time.Time) (models.NavSeries, error)
}

// SignalRepository defines the interface for externally computed fund
// signals. Its read side satisfies provider.SignalProvider.
type SignalRepository interface {
	Upsert(ctx context.Context, signals *models.FundSignals) error
	GetFundSignals(ctx context.Context, fundID string) (*models.FundSignals, error)
}

// PortfolioRepository defines the interface for stored model portfolios.
// Its read side satisfies provider.PortfolioSource.
type PortfolioRepository interface {
	Create(ctx context.Context, portfolio *models.Portfolio) error
	GetPortfolio(ctx context.Context, id uuid.UUID) (*models.Portfolio, error)
	GetPortfolioByName(ctx context.Context, name string) (*models.Portfolio, error)
	GetAllocationsForProfile(ctx context.Context, riskProfile string) ([]models.AllocationTarget, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ScoreRepository defines the interface for score record persistence. It
// satisfies provider.ScoreSink; a second save for the same fund and score
// date replaces the earlier record.
type ScoreRepository interface {
	SaveScore(ctx context.Context, record *models.ScoreRecord) error
	GetByFund(ctx context.Context, fundID string, limit int) ([]*models.ScoreRecord, error)
	GetByCategoryAndDate(ctx context.Context, category string, scoreDate time.Time) ([]*models.ScoreRecord, error)
}

// ResultRepository defines the interface for backtest result persistence.
// It satisfies provider.ResultSink.
type ResultRepository interface {
	SaveResult(ctx context.Context, result *models.BacktestResult) error
	GetByPortfolioName(ctx context.Context, name string, limit int) ([]*models.BacktestResult, error)
	GetLatest(ctx context.Context, limit int) ([]*models.BacktestResult, error)
}
