package models

import (
	"github.com/google/uuid"
)

// Rebalancing frequencies supported by the simulator
const (
	RebalanceNone      = "none"
	RebalanceMonthly   = "monthly"
	RebalanceQuarterly = "quarterly"
	RebalanceAnnually  = "annually"
	RebalanceThreshold = "threshold"
)

// Risk profile labels resolvable to built-in default allocations
const (
	RiskProfileConservative = "conservative"
	RiskProfileBalanced     = "balanced"
	RiskProfileGrowth       = "growth"
	RiskProfileAggressive   = "aggressive"
)

// AllocationTarget is one fund's target weight within a portfolio. Weights
// are percentages; they are expected to sum to 100 but the simulator
// normalizes against whatever sum is supplied.
type AllocationTarget struct {
	FundID       string  `db:"fund_id" json:"fund_id" validate:"required"`
	TargetWeight float64 `db:"target_weight" json:"target_weight" validate:"gte=0"`
}

// Portfolio is an externally defined set of target allocations.
type Portfolio struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	Name        string             `db:"name" json:"name" validate:"required"`
	RiskProfile string             `db:"risk_profile" json:"risk_profile"`
	Allocations []AllocationTarget `db:"-" json:"allocations" validate:"min=1,dive"`
}

// WeightSum returns the sum of target weights across all allocations.
func (p *Portfolio) WeightSum() float64 {
	total := 0.0
	for _, a := range p.Allocations {
		total += a.TargetWeight
	}
	return total
}

// ValidRebalanceFrequency reports whether freq is a supported calendar
// rebalancing frequency.
func ValidRebalanceFrequency(freq string) bool {
	switch freq {
	case RebalanceNone, RebalanceMonthly, RebalanceQuarterly, RebalanceAnnually, RebalanceThreshold:
		return true
	}
	return false
}
