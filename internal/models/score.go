package models

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation labels assigned from quartile and total score
const (
	RecommendationBuy    = "BUY"
	RecommendationHold   = "HOLD"
	RecommendationReview = "REVIEW"
	RecommendationSell   = "SELL"
)

// ComponentScores breaks the total score into its three scored components.
type ComponentScores struct {
	HistoricalReturns float64 `db:"historical_returns_score" json:"historical_returns"`
	RiskGrade         float64 `db:"risk_grade_score" json:"risk_grade"`
	OtherMetrics      float64 `db:"other_metrics_score" json:"other_metrics"`
}

// ScoreRecord is the immutable output of one scoring run for one fund on one
// date. Re-scoring the same (fund, date) replaces the previous record rather
// than mutating it in place.
type ScoreRecord struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	FundID         string          `db:"fund_id" json:"fund_id" validate:"required"`
	Category       string          `db:"category" json:"category"`
	ScoreDate      time.Time       `db:"score_date" json:"score_date" validate:"required"`
	Components     ComponentScores `db:"-" json:"component_scores"`
	TotalScore     float64         `db:"total_score" json:"total_score" validate:"gte=0,lte=100"`
	Quartile       int             `db:"quartile" json:"quartile" validate:"min=1,max=4"`
	CategoryRank   int             `db:"category_rank" json:"category_rank"`
	CategoryTotal  int             `db:"category_total" json:"category_total"`
	Recommendation string          `db:"recommendation" json:"recommendation"`
	Metrics        *MetricSet      `db:"-" json:"metrics,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// RecommendationFor maps a quartile and total score to a recommendation label.
func RecommendationFor(quartile int, totalScore float64) string {
	switch quartile {
	case 1:
		return RecommendationBuy
	case 2:
		if totalScore >= 65 {
			return RecommendationHold
		}
		return RecommendationReview
	case 3:
		if totalScore >= 50 {
			return RecommendationReview
		}
		return RecommendationSell
	default:
		return RecommendationSell
	}
}
