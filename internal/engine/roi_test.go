package engine

import "testing"

func fixtureROI(t *testing.T) (ROIAnalysis, CostAnalysis, BenefitAnalysis) {
	t.Helper()
	projection, cost, benefit := fixtureProjection(t)
	return ComputeROI(cost, benefit, projection, 8), cost, benefit
}

func TestComputeROI_RealisticMatchesFormula(t *testing.T) {
	roi, cost, benefit := fixtureROI(t)

	want := (benefit.TotalBenefit - cost.TotalCost) / cost.TotalCost * 100
	if !almostEqual(roi.Realistic, want, 1e-9) {
		t.Fatalf("realistic ROI = %v, want %v", roi.Realistic, want)
	}
}

func TestComputeROI_ScenarioOrdering(t *testing.T) {
	roi, _, _ := fixtureROI(t)

	if roi.Optimistic < roi.Realistic {
		t.Fatalf("optimistic %v below realistic %v", roi.Optimistic, roi.Realistic)
	}
	if roi.Realistic < roi.Pessimistic {
		t.Fatalf("realistic %v below pessimistic %v", roi.Realistic, roi.Pessimistic)
	}
}

func TestComputeROI_ScenariosRecomputedThroughRatio(t *testing.T) {
	roi, cost, benefit := fixtureROI(t)

	wantOptimistic := (benefit.TotalBenefit*1.15 - cost.TotalCost*0.95) / (cost.TotalCost * 0.95) * 100
	if !almostEqual(roi.Optimistic, wantOptimistic, 1e-9) {
		t.Fatalf("optimistic ROI = %v, want %v", roi.Optimistic, wantOptimistic)
	}
	wantPessimistic := (benefit.TotalBenefit*0.85 - cost.TotalCost*1.10) / (cost.TotalCost * 1.10) * 100
	if !almostEqual(roi.Pessimistic, wantPessimistic, 1e-9) {
		t.Fatalf("pessimistic ROI = %v, want %v", roi.Pessimistic, wantPessimistic)
	}
}

func TestComputeROI_BreakEvenAtCompletion(t *testing.T) {
	roi, _, _ := fixtureROI(t)

	if roi.BreakEvenMonth == nil {
		t.Fatal("expected a break-even month")
	}
	if *roi.BreakEvenMonth != 8 {
		t.Fatalf("break-even month = %d, want 8", *roi.BreakEvenMonth)
	}
}

func TestComputeROI_BreakEvenUndefinedWhenNeverRecovering(t *testing.T) {
	cashflow := CashFlowAnalysis{
		Months: []MonthlyFlow{
			{Month: 1, CumulativeFlow: -100},
			{Month: 2, CumulativeFlow: -250},
			{Month: 3, CumulativeFlow: -400},
		},
		PaybackPeriod: 4,
	}

	roi := ComputeROI(CostAnalysis{TotalCost: 400}, BenefitAnalysis{TotalBenefit: 100}, cashflow, 3)
	if roi.BreakEvenMonth != nil {
		t.Fatalf("expected undefined break-even, got month %d", *roi.BreakEvenMonth)
	}
}
