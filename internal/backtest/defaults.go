package backtest

import "github.com/fundsight/fundsight/internal/models"

// Built-in default allocations per risk profile, used when no stored
// portfolio exists for the requested profile. The fund identifiers are
// archetype scheme codes that deployments seed into their catalog.
var defaultProfileAllocations = map[string][]models.AllocationTarget{
	models.RiskProfileConservative: {
		{FundID: "LIQUID-FUND-DEF", TargetWeight: 40},
		{FundID: "SHORT-DEBT-DEF", TargetWeight: 35},
		{FundID: "LARGECAP-INDEX-DEF", TargetWeight: 25},
	},
	models.RiskProfileBalanced: {
		{FundID: "SHORT-DEBT-DEF", TargetWeight: 30},
		{FundID: "LARGECAP-INDEX-DEF", TargetWeight: 40},
		{FundID: "FLEXICAP-DEF", TargetWeight: 30},
	},
	models.RiskProfileGrowth: {
		{FundID: "LARGECAP-INDEX-DEF", TargetWeight: 40},
		{FundID: "FLEXICAP-DEF", TargetWeight: 35},
		{FundID: "MIDCAP-DEF", TargetWeight: 25},
	},
	models.RiskProfileAggressive: {
		{FundID: "FLEXICAP-DEF", TargetWeight: 30},
		{FundID: "MIDCAP-DEF", TargetWeight: 40},
		{FundID: "SMALLCAP-DEF", TargetWeight: 30},
	},
}

// DefaultAllocations returns the built-in allocation table for a risk
// profile label.
func DefaultAllocations(riskProfile string) ([]models.AllocationTarget, bool) {
	allocations, ok := defaultProfileAllocations[riskProfile]
	if !ok {
		return nil, false
	}
	out := make([]models.AllocationTarget, len(allocations))
	copy(out, allocations)
	return out, true
}
