package provider

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fundsight/fundsight/internal/models"
)

// Static serves fixed in-memory data through the provider interfaces. It
// backs stress-test simulations over synthetic NAV paths and fixture-driven
// runs in tests and the CLI.
type Static struct {
	Series     map[string]models.NavSeries
	Indexes    map[string]models.NavSeries
	Profiles   map[string]*models.FundProfile
	Signals    map[string]*models.FundSignals
	Portfolios []*models.Portfolio
}

// NewStatic creates a static provider over the given NAV histories.
func NewStatic(series map[string]models.NavSeries) *Static {
	return &Static{Series: series}
}

func (s *Static) GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error) {
	series, ok := s.Series[fundID]
	if !ok {
		return nil, NewProviderError("static", ErrCodeNotFound, "no NAV history for "+fundID, models.ErrNotFound)
	}
	out := make(models.NavSeries, 0, len(series))
	for _, p := range series {
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Static) GetLatestNav(ctx context.Context, fundID string) (models.NavPoint, error) {
	series, ok := s.Series[fundID]
	if !ok || len(series) == 0 {
		return models.NavPoint{}, NewProviderError("static", ErrCodeNotFound, "no NAV history for "+fundID, models.ErrNotFound)
	}
	return series[len(series)-1], nil
}

func (s *Static) GetIndexSeries(ctx context.Context, indexName string, start, end time.Time) (models.NavSeries, error) {
	series, ok := s.Indexes[indexName]
	if !ok {
		// No data for the window is a valid, empty answer for benchmarks.
		return models.NavSeries{}, nil
	}
	out := make(models.NavSeries, 0, len(series))
	for _, p := range series {
		if p.Date.Before(start) || p.Date.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Static) GetFundProfile(ctx context.Context, fundID string) (*models.FundProfile, error) {
	p, ok := s.Profiles[fundID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return p, nil
}

func (s *Static) GetFundsByCategory(ctx context.Context, category string) ([]*models.FundProfile, error) {
	var out []*models.FundProfile
	for _, p := range s.Profiles {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Static) GetFundSignals(ctx context.Context, fundID string) (*models.FundSignals, error) {
	sig, ok := s.Signals[fundID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return sig, nil
}

func (s *Static) GetPortfolio(ctx context.Context, id uuid.UUID) (*models.Portfolio, error) {
	for _, p := range s.Portfolios {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Static) GetPortfolioByName(ctx context.Context, name string) (*models.Portfolio, error) {
	for _, p := range s.Portfolios {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *Static) GetAllocationsForProfile(ctx context.Context, riskProfile string) ([]models.AllocationTarget, error) {
	for _, p := range s.Portfolios {
		if p.RiskProfile == riskProfile {
			return p.Allocations, nil
		}
	}
	return nil, models.ErrNotFound
}
