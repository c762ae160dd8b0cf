package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/models"
)

// PostgresSignalRepository implements SignalRepository for PostgreSQL
type PostgresSignalRepository struct {
	db *database.DB
}

// NewPostgresSignalRepository creates a new fund signal repository
func NewPostgresSignalRepository(db *database.DB) SignalRepository {
	return &PostgresSignalRepository{db: db}
}

// Upsert inserts or updates the signals for a fund
func (r *PostgresSignalRepository) Upsert(ctx context.Context, signals *models.FundSignals) error {
	query := `
		INSERT INTO fund_signals (fund_id, sector_similarity, forward_outlook)
		VALUES ($1, $2, $3)
		ON CONFLICT (fund_id) DO UPDATE SET
			sector_similarity = EXCLUDED.sector_similarity,
			forward_outlook = EXCLUDED.forward_outlook
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		signals.FundID, signals.SectorSimilarity, signals.ForwardOutlook)
	if err != nil {
		return fmt.Errorf("failed to upsert signals for fund %s: %w", signals.FundID, err)
	}
	return nil
}

// GetFundSignals retrieves the signals for a fund
func (r *PostgresSignalRepository) GetFundSignals(ctx context.Context, fundID string) (*models.FundSignals, error) {
	query := `
		SELECT fund_id, sector_similarity, forward_outlook
		FROM fund_signals WHERE fund_id = $1
	`

	signals := &models.FundSignals{}
	err := r.db.GetPool().QueryRow(ctx, query, fundID).Scan(
		&signals.FundID, &signals.SectorSimilarity, &signals.ForwardOutlook)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund signals: %w", err)
	}
	return signals, nil
}
