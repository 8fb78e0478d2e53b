package engine

import "github.com/javier/tender-desk/internal/models"

// complexityValueFactors reflect that harder projects build more reusable
// technology.
var complexityValueFactors = map[Level]float64{
	LevelLow:    1.0,
	LevelMedium: 1.5,
	LevelHigh:   2.0,
}

const (
	futureOpportunityRatio = 0.3  // of direct revenue
	technologyValueRatio   = 0.1  // of direct revenue
	brandValueRatio        = 0.05 // of direct revenue
)

type BenefitAnalysis struct {
	DirectRevenue       float64 `json:"direct_revenue"`
	FutureOpportunities float64 `json:"future_opportunities"`
	TechnologyValue     float64 `json:"technology_value"`
	BrandValue          float64 `json:"brand_value"`
	TotalBenefit        float64 `json:"total_benefit"`

	// Tier the purchaser resolved to, kept for traceability.
	PurchaserTier string `json:"purchaser_tier"`
}

// ComputeBenefit derives the full project value for a tender: the contract
// amount plus follow-on opportunity, technology and brand value. The
// purchaser tier comes from the policy lookup table, never from ad hoc
// string comparisons in the formulas.
func (e *Engine) ComputeBenefit(tender models.Tender, params AnalysisParameters) BenefitAnalysis {
	tier := e.policy.TierFor(tender.Purchaser)

	direct := tender.Budget
	future := direct * futureOpportunityRatio * tier.Opportunity
	technology := direct * technologyValueRatio * complexityValueFactors[params.TechnologyComplexity]
	brand := direct * brandValueRatio * tier.Brand

	return BenefitAnalysis{
		DirectRevenue:       direct,
		FutureOpportunities: future,
		TechnologyValue:     technology,
		BrandValue:          brand,
		TotalBenefit:        direct + future + technology + brand,
		PurchaserTier:       tier.ID,
	}
}
