package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/models"
)

const errScanFund = "failed to scan fund profile: %w"

// PostgresFundRepository implements FundRepository for PostgreSQL
type PostgresFundRepository struct {
	db *database.DB
}

// NewPostgresFundRepository creates a new fund profile repository
func NewPostgresFundRepository(db *database.DB) FundRepository {
	return &PostgresFundRepository{db: db}
}

// Upsert inserts or updates a fund profile
func (r *PostgresFundRepository) Upsert(ctx context.Context, profile *models.FundProfile) error {
	query := `
		INSERT INTO funds (fund_id, name, category, subcategory, expense_ratio, aum_value, inception_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (fund_id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			subcategory = EXCLUDED.subcategory,
			expense_ratio = EXCLUDED.expense_ratio,
			aum_value = EXCLUDED.aum_value,
			inception_date = EXCLUDED.inception_date
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		profile.FundID, profile.Name, profile.Category, profile.Subcategory,
		profile.ExpenseRatio, profile.AumValue, profile.InceptionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fund %s: %w", profile.FundID, err)
	}
	return nil
}

// GetFundProfile retrieves a fund profile by fund ID
func (r *PostgresFundRepository) GetFundProfile(ctx context.Context, fundID string) (*models.FundProfile, error) {
	query := `
		SELECT fund_id, name, category, subcategory, expense_ratio, aum_value, inception_date
		FROM funds WHERE fund_id = $1
	`

	profile := &models.FundProfile{}
	err := r.db.GetPool().QueryRow(ctx, query, fundID).Scan(
		&profile.FundID, &profile.Name, &profile.Category, &profile.Subcategory,
		&profile.ExpenseRatio, &profile.AumValue, &profile.InceptionDate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund profile: %w", err)
	}
	return profile, nil
}

// GetFundsByCategory retrieves all fund profiles in a category
func (r *PostgresFundRepository) GetFundsByCategory(ctx context.Context, category string) ([]*models.FundProfile, error) {
	query := `
		SELECT fund_id, name, category, subcategory, expense_ratio, aum_value, inception_date
		FROM funds WHERE category = $1
		ORDER BY fund_id ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query funds by category: %w", err)
	}
	defer rows.Close()

	var profiles []*models.FundProfile
	for rows.Next() {
		profile := &models.FundProfile{}
		if err := rows.Scan(
			&profile.FundID, &profile.Name, &profile.Category, &profile.Subcategory,
			&profile.ExpenseRatio, &profile.AumValue, &profile.InceptionDate,
		); err != nil {
			return nil, fmt.Errorf(errScanFund, err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// ListCategories retrieves the distinct fund categories
func (r *PostgresFundRepository) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.GetPool().Query(ctx, `SELECT DISTINCT category FROM funds ORDER BY category ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}
