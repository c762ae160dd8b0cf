package repository

import (
	"fmt"

	"github.com/fundsight/fundsight/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Nav       NavRepository
	Fund      FundRepository
	Index     IndexRepository
	Signal    SignalRepository
	Portfolio PortfolioRepository
	Score     ScoreRepository
	Result    ResultRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Nav:       NewPostgresNavRepository(db),
		Fund:      NewPostgresFundRepository(db),
		Index:     NewPostgresIndexRepository(db),
		Signal:    NewPostgresSignalRepository(db),
		Portfolio: NewPostgresPortfolioRepository(db),
		Score:     NewPostgresScoreRepository(db),
		Result:    NewPostgresResultRepository(db),
	}, nil
}
