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

const errScanScore = "failed to scan score record: %w"

// PostgresScoreRepository implements ScoreRepository for PostgreSQL
type PostgresScoreRepository struct {
	db *database.DB
}

// NewPostgresScoreRepository creates a new score record repository
func NewPostgresScoreRepository(db *database.DB) ScoreRepository {
	return &PostgresScoreRepository{db: db}
}

// SaveScore inserts a score record. A record already present for the same
// fund and score date is replaced.
func (r *PostgresScoreRepository) SaveScore(ctx context.Context, record *models.ScoreRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	metrics, err := json.Marshal(record.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO fund_scores (
			id, fund_id, category, score_date,
			historical_returns_score, risk_grade_score, other_metrics_score,
			total_score, quartile, category_rank, category_total,
			recommendation, metrics, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (fund_id, score_date) DO UPDATE SET
			id = EXCLUDED.id,
			category = EXCLUDED.category,
			historical_returns_score = EXCLUDED.historical_returns_score,
			risk_grade_score = EXCLUDED.risk_grade_score,
			other_metrics_score = EXCLUDED.other_metrics_score,
			total_score = EXCLUDED.total_score,
			quartile = EXCLUDED.quartile,
			category_rank = EXCLUDED.category_rank,
			category_total = EXCLUDED.category_total,
			recommendation = EXCLUDED.recommendation,
			metrics = EXCLUDED.metrics,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.GetPool().Exec(ctx, query,
		record.ID, record.FundID, record.Category, record.ScoreDate,
		record.Components.HistoricalReturns, record.Components.RiskGrade, record.Components.OtherMetrics,
		record.TotalScore, record.Quartile, record.CategoryRank, record.CategoryTotal,
		record.Recommendation, metrics, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save score for fund %s: %w", record.FundID, err)
	}
	return nil
}

// GetByFund retrieves the most recent score records for a fund
func (r *PostgresScoreRepository) GetByFund(ctx context.Context, fundID string, limit int) ([]*models.ScoreRecord, error) {
	query := scoreSelect + ` WHERE fund_id = $1 ORDER BY score_date DESC LIMIT $2`
	return r.queryScores(ctx, query, fundID, limit)
}

// GetByCategoryAndDate retrieves all score records for a category on a
// score date, ranked best first
func (r *PostgresScoreRepository) GetByCategoryAndDate(ctx context.Context, category string, scoreDate time.Time) ([]*models.ScoreRecord, error) {
	query := scoreSelect + ` WHERE category = $1 AND score_date = $2 ORDER BY category_rank ASC`
	return r.queryScores(ctx, query, category, scoreDate)
}

const scoreSelect = `
	SELECT id, fund_id, category, score_date,
		historical_returns_score, risk_grade_score, other_metrics_score,
		total_score, quartile, category_rank, category_total,
		recommendation, metrics, created_at
	FROM fund_scores
`

func (r *PostgresScoreRepository) queryScores(ctx context.Context, query string, args ...interface{}) ([]*models.ScoreRecord, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query score records: %w", err)
	}
	defer rows.Close()

	var records []*models.ScoreRecord
	for rows.Next() {
		record := &models.ScoreRecord{}
		var metrics []byte
		if err := rows.Scan(
			&record.ID, &record.FundID, &record.Category, &record.ScoreDate,
			&record.Components.HistoricalReturns, &record.Components.RiskGrade, &record.Components.OtherMetrics,
			&record.TotalScore, &record.Quartile, &record.CategoryRank, &record.CategoryTotal,
			&record.Recommendation, &metrics, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf(errScanScore, err)
		}
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &record.Metrics); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
