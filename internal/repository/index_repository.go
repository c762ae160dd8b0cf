package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/models"
)

// PostgresIndexRepository implements IndexRepository for PostgreSQL
type PostgresIndexRepository struct {
	db *database.DB
}

// NewPostgresIndexRepository creates a new benchmark index repository
func NewPostgresIndexRepository(db *database.DB) IndexRepository {
	return &PostgresIndexRepository{db: db}
}

// InsertBatch inserts index levels, replacing any existing level for the
// same date
func (r *PostgresIndexRepository) InsertBatch(ctx context.Context, indexName string, series models.NavSeries) error {
	if len(series) == 0 {
		return nil
	}

	query := `
		INSERT INTO index_levels (index_name, level_date, level_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (index_name, level_date) DO UPDATE SET level_value = EXCLUDED.level_value
	`

	batch := &pgx.Batch{}
	for _, point := range series {
		batch.Queue(query, indexName, point.Date, point.Value)
	}

	results := r.db.GetPool().SendBatch(ctx, batch)
	defer results.Close()

	for range series {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert levels for index %s: %w", indexName, err)
		}
	}
	return nil
}

// GetIndexSeries retrieves index levels within the date range in ascending
// date order. An unknown index yields an empty series, not an error.
func (r *PostgresIndexRepository) GetIndexSeries(ctx context.Context, indexName string, start, end time.Time) (models.NavSeries, error) {
	// A zero start or end time leaves the range unbounded on that side.
	if end.IsZero() {
		end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	query := `
		SELECT level_date, level_value
		FROM index_levels
		WHERE index_name = $1 AND level_date >= $2 AND level_date <= $3
		ORDER BY level_date ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, indexName, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query index levels: %w", err)
	}
	defer rows.Close()

	series := models.NavSeries{}
	for rows.Next() {
		var point models.NavPoint
		if err := rows.Scan(&point.Date, &point.Value); err != nil {
			return nil, fmt.Errorf("failed to scan index level: %w", err)
		}
		series = append(series, point)
	}
	return series, rows.Err()
}
