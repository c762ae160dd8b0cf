package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/models"
)

const errScanResult = "failed to scan backtest result: %w"

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *database.DB
}

// NewPostgresResultRepository creates a new backtest result repository
func NewPostgresResultRepository(db *database.DB) ResultRepository {
	return &PostgresResultRepository{db: db}
}

// SaveResult inserts a backtest result
func (r *PostgresResultRepository) SaveResult(ctx context.Context, result *models.BacktestResult) error {
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	trajectory, err := json.Marshal(result.Trajectory)
	if err != nil {
		return fmt.Errorf("failed to marshal trajectory: %w", err)
	}
	benchmarkTrajectory, err := json.Marshal(result.BenchmarkTrajectory)
	if err != nil {
		return fmt.Errorf("failed to marshal benchmark trajectory: %w", err)
	}

	query := `
		INSERT INTO backtest_results (
			id, portfolio_id, portfolio_name, start_date, end_date,
			initial_amount, final_amount, total_return, annualized_return,
			max_drawdown, volatility, sharpe_ratio,
			rebalance_frequency, rebalance_count,
			benchmark_name, benchmark_return, trajectory, benchmark_trajectory,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		result.ID, result.PortfolioID, result.PortfolioName, result.StartDate, result.EndDate,
		result.InitialAmount, result.FinalAmount, result.TotalReturn, result.AnnualizedReturn,
		result.MaxDrawdown, result.Volatility, result.SharpeRatio,
		result.RebalanceFrequency, result.RebalanceCount,
		result.BenchmarkName, result.BenchmarkReturn, trajectory, benchmarkTrajectory,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest result: %w", err)
	}
	return nil
}

// GetByPortfolioName retrieves recent backtest results for a portfolio
func (r *PostgresResultRepository) GetByPortfolioName(ctx context.Context, name string, limit int) ([]*models.BacktestResult, error) {
	query := resultSelect + ` WHERE portfolio_name = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryResults(ctx, query, name, limit)
}

// GetLatest retrieves the most recent backtest results
func (r *PostgresResultRepository) GetLatest(ctx context.Context, limit int) ([]*models.BacktestResult, error) {
	query := resultSelect + ` ORDER BY created_at DESC LIMIT $1`
	return r.queryResults(ctx, query, limit)
}

const resultSelect = `
	SELECT id, portfolio_id, portfolio_name, start_date, end_date,
		initial_amount, final_amount, total_return, annualized_return,
		max_drawdown, volatility, sharpe_ratio,
		rebalance_frequency, rebalance_count,
		benchmark_name, benchmark_return, trajectory, benchmark_trajectory,
		created_at
	FROM backtest_results
`

func (r *PostgresResultRepository) queryResults(ctx context.Context, query string, args ...interface{}) ([]*models.BacktestResult, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()

	var results []*models.BacktestResult
	for rows.Next() {
		result := &models.BacktestResult{}
		var trajectory, benchmarkTrajectory []byte
		if err := rows.Scan(
			&result.ID, &result.PortfolioID, &result.PortfolioName, &result.StartDate, &result.EndDate,
			&result.InitialAmount, &result.FinalAmount, &result.TotalReturn, &result.AnnualizedReturn,
			&result.MaxDrawdown, &result.Volatility, &result.SharpeRatio,
			&result.RebalanceFrequency, &result.RebalanceCount,
			&result.BenchmarkName, &result.BenchmarkReturn, &trajectory, &benchmarkTrajectory,
			&result.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf(errScanResult, err)
		}
		if len(trajectory) > 0 {
			if err := json.Unmarshal(trajectory, &result.Trajectory); err != nil {
				return nil, fmt.Errorf("failed to unmarshal trajectory: %w", err)
			}
		}
		if len(benchmarkTrajectory) > 0 {
			if err := json.Unmarshal(benchmarkTrajectory, &result.BenchmarkTrajectory); err != nil {
				return nil, fmt.Errorf("failed to unmarshal benchmark trajectory: %w", err)
			}
		}
		results = append(results, result)
	}
	return results, rows.Err()
}
