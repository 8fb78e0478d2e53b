package engine

import "github.com/javier/tender-desk/internal/models"

// WorkdaysPerMonth is the fixed working-day convention used for effort
// estimates.
const WorkdaysPerMonth = 22

// Effort-to-cost factor tables, keyed by level so the rule set is data
// rather than branching logic.
var (
	complexityCostFactors = map[Level]float64{
		LevelLow:    1.0,
		LevelMedium: 1.3,
		LevelHigh:   1.6,
	}
	riskFactors = map[Level]float64{
		LevelLow:    0.05,
		LevelMedium: 0.10,
		LevelHigh:   0.18,
	}
)

const (
	technologyCostRatio = 0.2 // of labor, scaled by complexity
	managementCostRatio = 0.3 // of labor + technology
)

type CostAnalysis struct {
	LaborCost      float64 `json:"labor_cost"`
	TechnologyCost float64 `json:"technology_cost"`
	ManagementCost float64 `json:"management_cost"`
	RiskCost       float64 `json:"risk_cost"`
	TotalCost      float64 `json:"total_cost"`
}

// ComputeCost derives the full delivery cost for a tender. Deterministic and
// side-effect free: identical inputs always produce identical output.
func ComputeCost(tender models.Tender, params AnalysisParameters) CostAnalysis {
	workDays := float64(params.ProjectDurationMonths * WorkdaysPerMonth)
	personDays := workDays * float64(params.TeamSize)

	labor := personDays * params.LaborRatePerDay
	technology := labor * complexityCostFactors[params.TechnologyComplexity] * technologyCostRatio
	management := (labor + technology) * managementCostRatio
	risk := (labor + technology + management) * riskFactors[params.RiskLevel]

	return CostAnalysis{
		LaborCost:      labor,
		TechnologyCost: technology,
		ManagementCost: management,
		RiskCost:       risk,
		TotalCost:      labor + technology + management + risk,
	}
}
