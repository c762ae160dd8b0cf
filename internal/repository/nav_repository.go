package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/models"
)

const errScanNavPoint = "failed to scan nav point: %w"

// PostgresNavRepository implements NavRepository for PostgreSQL
type PostgresNavRepository struct {
	db *database.DB
}

// NewPostgresNavRepository creates a new NAV history repository
func NewPostgresNavRepository(db *database.DB) NavRepository {
	return &PostgresNavRepository{db: db}
}

// InsertBatch inserts NAV observations for a fund, replacing any existing
// observation for the same date
func (r *PostgresNavRepository) InsertBatch(ctx context.Context, fundID string, series models.NavSeries) error {
	if len(series) == 0 {
		return nil
	}

	query := `
		INSERT INTO nav_history (fund_id, nav_date, nav_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (fund_id, nav_date) DO UPDATE SET nav_value = EXCLUDED.nav_value
	`

	batch := &pgx.Batch{}
	for _, point := range series {
		batch.Queue(query, fundID, point.Date, point.Value)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range series {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert nav batch for fund %s: %w", fundID, err)
		}
	}
	return nil
}

// GetNavSeries retrieves a fund's NAV history within the date range in
// ascending date order
func (r *PostgresNavRepository) GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error) {
	// A zero start or end time leaves the range unbounded on that side.
	if end.IsZero() {
		end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	query := `
		SELECT nav_date, nav_value
		FROM nav_history
		WHERE fund_id = $1 AND nav_date >= $2 AND nav_date <= $3
		ORDER BY nav_date ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, fundID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query nav history: %w", err)
	}
	defer rows.Close()

	var series models.NavSeries
	for rows.Next() {
		var point models.NavPoint
		if err := rows.Scan(&point.Date, &point.Value); err != nil {
			return nil, fmt.Errorf(errScanNavPoint, err)
		}
		series = append(series, point)
	}
	return series, rows.Err()
}

// GetLatestNav retrieves a fund's most recent NAV observation
func (r *PostgresNavRepository) GetLatestNav(ctx context.Context, fundID string) (models.NavPoint, error) {
	query := `
		SELECT nav_date, nav_value
		FROM nav_history
		WHERE fund_id = $1
		ORDER BY nav_date DESC
		LIMIT 1
	`

	var point models.NavPoint
	err := r.db.GetPool().QueryRow(ctx, query, fundID).Scan(&point.Date, &point.Value)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NavPoint{}, models.ErrNotFound
	}
	if err != nil {
		return models.NavPoint{}, fmt.Errorf("failed to get latest nav: %w", err)
	}
	return point, nil
}

// DeleteBefore removes NAV observations older than the cutoff date
func (r *PostgresNavRepository) DeleteBefore(ctx context.Context, fundID string, cutoff time.Time) (int64, error) {
	tag, err := r.db.GetPool().Exec(ctx,
		`DELETE FROM nav_history WHERE fund_id = $1 AND nav_date < $2`, fundID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete nav history: %w", err)
	}
	return tag.RowsAffected(), nil
}
