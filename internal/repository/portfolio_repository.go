package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fundsight/fundsight/internal/database"
	"github.com/fundsight/fundsight/internal/models"
)

// PostgresPortfolioRepository implements PortfolioRepository for PostgreSQL
type PostgresPortfolioRepository struct {
	db *database.DB
}

// NewPostgresPortfolioRepository creates a new portfolio repository
func NewPostgresPortfolioRepository(db *database.DB) PortfolioRepository {
	return &PostgresPortfolioRepository{db: db}
}

// Create inserts a portfolio and its allocations in one transaction
func (r *PostgresPortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.ID == uuid.Nil {
		portfolio.ID = uuid.New()
	}

	tx, err := r.db.GetPool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO portfolios (id, name, risk_profile) VALUES ($1, $2, $3)`,
		portfolio.ID, portfolio.Name, portfolio.RiskProfile)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	for _, a := range portfolio.Allocations {
		_, err = tx.Exec(ctx,
			`INSERT INTO portfolio_allocations (portfolio_id, fund_id, target_weight) VALUES ($1, $2, $3)`,
			portfolio.ID, a.FundID, a.TargetWeight)
		if err != nil {
			return fmt.Errorf("failed to create allocation for fund %s: %w", a.FundID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit portfolio: %w", err)
	}
	return nil
}

// GetPortfolio retrieves a portfolio and its allocations by ID
func (r *PostgresPortfolioRepository) GetPortfolio(ctx context.Context, id uuid.UUID) (*models.Portfolio, error) {
	return r.getPortfolio(ctx, `SELECT id, name, risk_profile FROM portfolios WHERE id = $1`, id)
}

// GetPortfolioByName retrieves a portfolio and its allocations by name
func (r *PostgresPortfolioRepository) GetPortfolioByName(ctx context.Context, name string) (*models.Portfolio, error) {
	return r.getPortfolio(ctx, `SELECT id, name, risk_profile FROM portfolios WHERE name = $1`, name)
}

// GetAllocationsForProfile retrieves the allocations of the portfolio
// registered for a risk profile
func (r *PostgresPortfolioRepository) GetAllocationsForProfile(ctx context.Context, riskProfile string) ([]models.AllocationTarget, error) {
	portfolio, err := r.getPortfolio(ctx,
		`SELECT id, name, risk_profile FROM portfolios WHERE risk_profile = $1 ORDER BY name ASC LIMIT 1`,
		riskProfile)
	if err != nil {
		return nil, err
	}
	return portfolio.Allocations, nil
}

// Delete removes a portfolio and its allocations
func (r *PostgresPortfolioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.GetPool().Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresPortfolioRepository) getPortfolio(ctx context.Context, query string, arg interface{}) (*models.Portfolio, error) {
	portfolio := &models.Portfolio{}
	err := r.db.GetPool().QueryRow(ctx, query, arg).Scan(
		&portfolio.ID, &portfolio.Name, &portfolio.RiskProfile)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	rows, err := r.db.GetPool().Query(ctx,
		`SELECT fund_id, target_weight FROM portfolio_allocations WHERE portfolio_id = $1 ORDER BY fund_id ASC`,
		portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.AllocationTarget
		if err := rows.Scan(&a.FundID, &a.TargetWeight); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		portfolio.Allocations = append(portfolio.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return portfolio, nil
}
