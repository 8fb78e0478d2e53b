package engine

// Fixed upside/downside adjustments for the ROI scenarios. Each scenario is
// recomputed through the benefit/cost ratio with adjusted inputs rather than
// scaling the ROI value directly, so the relationship stays economically
// consistent.
const (
	optimisticBenefitUplift = 0.15
	optimisticCostRelief    = 0.05
	pessimisticBenefitDrop  = 0.15
	pessimisticCostOverrun  = 0.10
)

type ROIAnalysis struct {
	Optimistic  float64 `json:"optimistic"`  // percent
	Realistic   float64 `json:"realistic"`   // percent
	Pessimistic float64 `json:"pessimistic"` // percent

	// First month where cumulative cash flow turns non-negative, nil when
	// the projection never reaches zero within twice the project horizon.
	BreakEvenMonth *int `json:"break_even_month,omitempty"`
}

func roiPercent(benefit, cost float64) float64 {
	return (benefit - cost) / cost * 100
}

// ComputeROI combines the cost and benefit models into the three-way ROI
// estimate and reads the break-even point off the cash-flow projection.
func ComputeROI(cost CostAnalysis, benefit BenefitAnalysis, cashflow CashFlowAnalysis, horizonMonths int) ROIAnalysis {
	analysis := ROIAnalysis{
		Realistic:   roiPercent(benefit.TotalBenefit, cost.TotalCost),
		Optimistic:  roiPercent(benefit.TotalBenefit*(1+optimisticBenefitUplift), cost.TotalCost*(1-optimisticCostRelief)),
		Pessimistic: roiPercent(benefit.TotalBenefit*(1-pessimisticBenefitDrop), cost.TotalCost*(1+pessimisticCostOverrun)),
	}

	for _, m := range cashflow.Months {
		if m.Month > horizonMonths*2 {
			break
		}
		if m.CumulativeFlow >= 0 {
			month := m.Month
			analysis.BreakEvenMonth = &month
			break
		}
	}

	return analysis
}
