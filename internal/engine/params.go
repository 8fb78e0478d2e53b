package engine

import (
	"math"
)

// Level is a three-step scale used for technology complexity, delivery risk
// and market competition.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Maturity describes the lifecycle stage of the tender's market.
type Maturity string

const (
	MaturityEmerging  Maturity = "EMERGING"
	MaturityGrowing   Maturity = "GROWING"
	MaturityMature    Maturity = "MATURE"
	MaturityDeclining Maturity = "DECLINING"
)

type MarketConditions struct {
	EconomicGrowthRate float64  `json:"economic_growth_rate"`
	IndustryGrowthRate float64  `json:"industry_growth_rate"`
	CompetitionLevel   Level    `json:"competition_level"`
	MarketMaturity     Maturity `json:"market_maturity"`
}

type HistoricalData struct {
	SimilarProjectsROI     []float64 `json:"similar_projects_roi"` // percentages
	ClientSatisfactionRate float64   `json:"client_satisfaction_rate"`
	ProjectSuccessRate     float64   `json:"project_success_rate"`
}

// AnalysisParameters is the fully resolved, validated parameter set the
// pipeline runs on. Build it through Resolve; the zero value is not usable.
type AnalysisParameters struct {
	LaborRatePerDay       float64          `json:"labor_rate_per_day"`
	ProjectDurationMonths int              `json:"project_duration_months"`
	TeamSize              int              `json:"team_size"`
	TechnologyComplexity  Level            `json:"technology_complexity"`
	RiskLevel             Level            `json:"risk_level"`
	DiscountRate          float64          `json:"discount_rate"`
	Market                MarketConditions `json:"market_conditions"`
	Historical            HistoricalData   `json:"historical_data"`

	// Resolution metadata consumed by the predictor's confidence score.
	Completeness   float64 `json:"completeness"` // fraction of optional fields supplied
	MarketSupplied bool    `json:"market_supplied"`
}

// Overrides carries the caller-supplied subset of parameters. Every field is
// optional; nil means "use the default".
type Overrides struct {
	LaborRatePerDay       *float64             `json:"labor_rate_per_day,omitempty"`
	ProjectDurationMonths *int                 `json:"project_duration_months,omitempty"`
	TeamSize              *int                 `json:"team_size,omitempty"`
	TechnologyComplexity  *Level               `json:"technology_complexity,omitempty"`
	RiskLevel             *Level               `json:"risk_level,omitempty"`
	DiscountRate          *float64             `json:"discount_rate,omitempty"`
	Market                *MarketOverrides     `json:"market_conditions,omitempty"`
	Historical            *HistoricalOverrides `json:"historical_data,omitempty"`
}

type MarketOverrides struct {
	EconomicGrowthRate *float64  `json:"economic_growth_rate,omitempty"`
	IndustryGrowthRate *float64  `json:"industry_growth_rate,omitempty"`
	CompetitionLevel   *Level    `json:"competition_level,omitempty"`
	MarketMaturity     *Maturity `json:"market_maturity,omitempty"`
}

type HistoricalOverrides struct {
	SimilarProjectsROI     []float64 `json:"similar_projects_roi,omitempty"`
	ClientSatisfactionRate *float64  `json:"client_satisfaction_rate,omitempty"`
	ProjectSuccessRate     *float64  `json:"project_success_rate,omitempty"`
}

// Defaults applied for every field the caller leaves unset.
const (
	DefaultLaborRatePerDay       = 800.0
	DefaultProjectDurationMonths = 6
	DefaultTeamSize              = 5
	DefaultDiscountRate          = 0.08
	DefaultGrowthRate            = 0.05
)

// optionalFieldCount is the number of individually overridable fields,
// used to compute the completeness fraction.
const optionalFieldCount = 13

func validLevel(l Level) bool {
	return l == LevelLow || l == LevelMedium || l == LevelHigh
}

func validMaturity(m Maturity) bool {
	switch m {
	case MaturityEmerging, MaturityGrowing, MaturityMature, MaturityDeclining:
		return true
	}
	return false
}

// Resolve merges caller overrides with the documented defaults into a
// complete parameter set. It is a pure function: it fails with a
// *ValidationError on the first supplied value that violates its domain and
// never mutates its input.
func Resolve(overrides Overrides) (AnalysisParameters, error) {
	params := AnalysisParameters{
		LaborRatePerDay:       DefaultLaborRatePerDay,
		ProjectDurationMonths: DefaultProjectDurationMonths,
		TeamSize:              DefaultTeamSize,
		TechnologyComplexity:  LevelMedium,
		RiskLevel:             LevelMedium,
		DiscountRate:          DefaultDiscountRate,
		Market: MarketConditions{
			EconomicGrowthRate: DefaultGrowthRate,
			IndustryGrowthRate: DefaultGrowthRate,
			CompetitionLevel:   LevelMedium,
			MarketMaturity:     MaturityGrowing,
		},
	}

	supplied := 0

	if overrides.LaborRatePerDay != nil {
		if *overrides.LaborRatePerDay <= 0 || !isFinite(*overrides.LaborRatePerDay) {
			return params, invalidField("laborRatePerDay", "must be a positive amount")
		}
		params.LaborRatePerDay = *overrides.LaborRatePerDay
		supplied++
	}
	if overrides.ProjectDurationMonths != nil {
		if *overrides.ProjectDurationMonths <= 0 {
			return params, invalidField("projectDurationMonths", "must be greater than zero")
		}
		params.ProjectDurationMonths = *overrides.ProjectDurationMonths
		supplied++
	}
	if overrides.TeamSize != nil {
		if *overrides.TeamSize < 1 {
			return params, invalidField("teamSize", "must be at least 1")
		}
		params.TeamSize = *overrides.TeamSize
		supplied++
	}
	if overrides.TechnologyComplexity != nil {
		if !validLevel(*overrides.TechnologyComplexity) {
			return params, invalidField("technologyComplexity", "must be LOW, MEDIUM or HIGH")
		}
		params.TechnologyComplexity = *overrides.TechnologyComplexity
		supplied++
	}
	if overrides.RiskLevel != nil {
		if !validLevel(*overrides.RiskLevel) {
			return params, invalidField("riskLevel", "must be LOW, MEDIUM or HIGH")
		}
		params.RiskLevel = *overrides.RiskLevel
		supplied++
	}
	if overrides.DiscountRate != nil {
		if *overrides.DiscountRate < 0 || *overrides.DiscountRate > 1 || !isFinite(*overrides.DiscountRate) {
			return params, invalidField("discountRate", "must be within [0, 1]")
		}
		params.DiscountRate = *overrides.DiscountRate
		supplied++
	}

	if m := overrides.Market; m != nil {
		params.MarketSupplied = true
		if m.EconomicGrowthRate != nil {
			if !isFinite(*m.EconomicGrowthRate) {
				return params, invalidField("marketConditions.economicGrowthRate", "must be finite")
			}
			params.Market.EconomicGrowthRate = *m.EconomicGrowthRate
			supplied++
		}
		if m.IndustryGrowthRate != nil {
			if !isFinite(*m.IndustryGrowthRate) {
				return params, invalidField("marketConditions.industryGrowthRate", "must be finite")
			}
			params.Market.IndustryGrowthRate = *m.IndustryGrowthRate
			supplied++
		}
		if m.CompetitionLevel != nil {
			if !validLevel(*m.CompetitionLevel) {
				return params, invalidField("marketConditions.competitionLevel", "must be LOW, MEDIUM or HIGH")
			}
			params.Market.CompetitionLevel = *m.CompetitionLevel
			supplied++
		}
		if m.MarketMaturity != nil {
			if !validMaturity(*m.MarketMaturity) {
				return params, invalidField("marketConditions.marketMaturity", "must be EMERGING, GROWING, MATURE or DECLINING")
			}
			params.Market.MarketMaturity = *m.MarketMaturity
			supplied++
		}
	}

	if h := overrides.Historical; h != nil {
		if h.SimilarProjectsROI != nil {
			for _, roi := range h.SimilarProjectsROI {
				if !isFinite(roi) {
					return params, invalidField("historicalData.similarProjectsROI", "must contain only finite percentages")
				}
			}
			params.Historical.SimilarProjectsROI = append([]float64(nil), h.SimilarProjectsROI...)
			supplied++
		}
		if h.ClientSatisfactionRate != nil {
			if !isFinite(*h.ClientSatisfactionRate) || *h.ClientSatisfactionRate < 0 || *h.ClientSatisfactionRate > 1 {
				return params, invalidField("historicalData.clientSatisfactionRate", "must be within [0, 1]")
			}
			params.Historical.ClientSatisfactionRate = *h.ClientSatisfactionRate
			supplied++
		}
		if h.ProjectSuccessRate != nil {
			if !isFinite(*h.ProjectSuccessRate) || *h.ProjectSuccessRate < 0 || *h.ProjectSuccessRate > 1 {
				return params, invalidField("historicalData.projectSuccessRate", "must be within [0, 1]")
			}
			params.Historical.ProjectSuccessRate = *h.ProjectSuccessRate
			supplied++
		}
	}

	params.Completeness = float64(supplied) / float64(optionalFieldCount)
	return params, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
