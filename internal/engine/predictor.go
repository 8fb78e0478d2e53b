package engine

import (
	"fmt"

	"github.com/javier/tender-desk/internal/models"
)

// Impact weights layered on top of the base ROI. Each weight fires only when
// its signal is present; the damping factor keeps the combined adjustment
// bounded so no single signal dominates.
const (
	premiumTierBonus    = 0.30
	highComplexityBonus = 0.40
	industryGrowthBonus = 0.20
	historicalROIBonus  = 0.25
	satisfactionBonus   = 0.20

	industryGrowthFloor   = 0.10
	historicalROIFloor    = 40.0 // percent
	satisfactionFloor     = 0.85
	impactDamping         = 0.5
	costOverrunBudgetRate = 0.9
)

var competitionPenalties = map[Level]float64{
	LevelLow:    0,
	LevelMedium: 0.10,
	LevelHigh:   0.20,
}

// Scenario probabilities are policy constants; they always sum to 1.0.
const (
	optimisticScenarioFactor  = 1.3
	pessimisticScenarioFactor = 0.7

	optimisticProbability  = 0.20
	mostLikelyProbability  = 0.60
	pessimisticProbability = 0.20
)

// Confidence score components.
const (
	confidenceBase         = 0.50
	confidenceMarketData   = 0.10
	confidenceHistoryData  = 0.10
	confidenceCompleteness = 0.15
	confidenceLargeProject = 0.05
)

type Scenario struct {
	ROI         float64 `json:"roi"` // percent
	Probability float64 `json:"probability"`
}

type Scenarios struct {
	Optimistic  Scenario `json:"optimistic"`
	MostLikely  Scenario `json:"most_likely"`
	Pessimistic Scenario `json:"pessimistic"`
}

type ROIPrediction struct {
	BaseROI          float64   `json:"base_roi"` // percent
	AdjustmentFactor float64   `json:"adjustment_factor"`
	AdjustedROI      float64   `json:"adjusted_roi"` // percent
	ConfidenceLevel  float64   `json:"confidence_level"`
	Scenarios        Scenarios `json:"scenarios"`
	Recommendations  []string  `json:"recommendations"`
}

// predictionInput bundles everything the recommendation rules can look at.
type predictionInput struct {
	tenderBudget float64
	params       AnalysisParameters
	cost         CostAnalysis
	cashflow     CashFlowAnalysis
	adjustedROI  float64
}

// recommendationRules is an ordered table of (predicate, message) pairs. All
// matching rules fire, in insertion order; adding an advisory means adding a
// row, not editing existing ones.
var recommendationRules = []struct {
	applies func(in predictionInput) bool
	message func(in predictionInput) string
}{
	{
		applies: func(in predictionInput) bool { return in.adjustedROI > 50 },
		message: func(in predictionInput) string {
			return fmt.Sprintf("adjusted ROI of %.1f%% is strong; bidding is strongly recommended", in.adjustedROI)
		},
	},
	{
		applies: func(in predictionInput) bool { return in.adjustedROI < 0 },
		message: func(in predictionInput) string {
			return fmt.Sprintf("adjusted ROI of %.1f%% is negative; bidding is not advised at the proposed terms", in.adjustedROI)
		},
	},
	{
		applies: func(in predictionInput) bool {
			return in.tenderBudget > 0 && in.cost.TotalCost > in.tenderBudget*costOverrunBudgetRate
		},
		message: func(in predictionInput) string {
			return fmt.Sprintf("estimated cost consumes %.0f%% of the budget; overrun risk, review scope and rates", in.cost.TotalCost/in.tenderBudget*100)
		},
	},
	{
		applies: func(in predictionInput) bool { return in.params.RiskLevel == LevelHigh },
		message: func(in predictionInput) string {
			return "risk level is HIGH; prepare a risk-mitigation plan before committing"
		},
	},
	{
		applies: func(in predictionInput) bool { return in.params.Market.CompetitionLevel == LevelHigh },
		message: func(in predictionInput) string {
			return "competition is HIGH; differentiate the offer on delivery record and technical approach"
		},
	},
	{
		applies: func(in predictionInput) bool { return in.cashflow.PaybackPeriod > len(in.cashflow.Months) },
		message: func(in predictionInput) string {
			return "cash flow does not recover within the project horizon; negotiate earlier payment milestones"
		},
	},
}

// Predict layers market and historical signals on top of the base ROI and
// produces the probability-weighted scenario split, the confidence score and
// the advisory list.
func (e *Engine) Predict(tender models.Tender, params AnalysisParameters, cost CostAnalysis, roi ROIAnalysis, cashflow CashFlowAnalysis) ROIPrediction {
	tier := e.policy.TierFor(tender.Purchaser)

	positive := 0.0
	if tier.Premium {
		positive += premiumTierBonus
	}
	if params.TechnologyComplexity == LevelHigh {
		positive += highComplexityBonus
	}
	if params.Market.IndustryGrowthRate >= industryGrowthFloor {
		positive += industryGrowthBonus
	}
	if mean(params.Historical.SimilarProjectsROI) > historicalROIFloor {
		positive += historicalROIBonus
	}
	if params.Historical.ClientSatisfactionRate >= satisfactionFloor {
		positive += satisfactionBonus
	}
	negative := competitionPenalties[params.Market.CompetitionLevel]

	netImpact := positive - negative
	factor := 1 + netImpact*impactDamping
	adjusted := roi.Realistic * factor

	in := predictionInput{
		tenderBudget: tender.Budget,
		params:       params,
		cost:         cost,
		cashflow:     cashflow,
		adjustedROI:  adjusted,
	}
	var recommendations []string
	for _, rule := range recommendationRules {
		if rule.applies(in) {
			recommendations = append(recommendations, rule.message(in))
		}
	}

	return ROIPrediction{
		BaseROI:          roi.Realistic,
		AdjustmentFactor: factor,
		AdjustedROI:      adjusted,
		ConfidenceLevel:  e.confidence(tender.Budget, params),
		Scenarios: Scenarios{
			Optimistic:  Scenario{ROI: adjusted * optimisticScenarioFactor, Probability: optimisticProbability},
			MostLikely:  Scenario{ROI: adjusted, Probability: mostLikelyProbability},
			Pessimistic: Scenario{ROI: adjusted * pessimisticScenarioFactor, Probability: pessimisticProbability},
		},
		Recommendations: recommendations,
	}
}

func (e *Engine) confidence(budget float64, params AnalysisParameters) float64 {
	score := confidenceBase
	if params.MarketSupplied {
		score += confidenceMarketData
	}
	if len(params.Historical.SimilarProjectsROI) > 0 {
		score += confidenceHistoryData
	}
	score += confidenceCompleteness * params.Completeness
	if budget > e.policy.LargeProjectBudget {
		score += confidenceLargeProject
	}
	if score > 1 {
		score = 1
	}
	return score
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
