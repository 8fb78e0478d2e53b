package engine

import (
	"strings"
	"testing"
)

func fixturePrediction(t *testing.T) ROIPrediction {
	t.Helper()
	e := newTestEngine(t)
	tender := fixtureTender()
	params := fixtureParams(t)
	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	cashflow := e.ProjectCashFlow(tender, params, cost, benefit)
	roi := ComputeROI(cost, benefit, cashflow, params.ProjectDurationMonths)
	return e.Predict(tender, params, cost, roi, cashflow)
}

func TestPredict_AdjustmentFromComplexityAndCompetition(t *testing.T) {
	prediction := fixturePrediction(t)

	// HIGH complexity adds 0.40, MEDIUM competition subtracts 0.10, damped
	// by 0.5.
	if !almostEqual(prediction.AdjustmentFactor, 1.15, 1e-9) {
		t.Fatalf("adjustment factor = %v, want 1.15", prediction.AdjustmentFactor)
	}
	if !almostEqual(prediction.AdjustedROI, prediction.BaseROI*1.15, 1e-9) {
		t.Fatalf("adjusted ROI = %v, want base %v x 1.15", prediction.AdjustedROI, prediction.BaseROI)
	}
}

func TestPredict_AllSignalsStack(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	tender.Purchaser = "Seguros La Positiva"

	params := fixtureParams(t)
	params.Market.IndustryGrowthRate = 0.12
	params.Market.CompetitionLevel = LevelLow
	params.Historical.SimilarProjectsROI = []float64{45, 60}
	params.Historical.ClientSatisfactionRate = 0.9

	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	cashflow := e.ProjectCashFlow(tender, params, cost, benefit)
	roi := ComputeROI(cost, benefit, cashflow, params.ProjectDurationMonths)
	prediction := e.Predict(tender, params, cost, roi, cashflow)

	// 0.30 + 0.40 + 0.20 + 0.25 + 0.20 with no penalty, damped by 0.5.
	if !almostEqual(prediction.AdjustmentFactor, 1.675, 1e-9) {
		t.Fatalf("adjustment factor = %v, want 1.675", prediction.AdjustmentFactor)
	}
}

func TestPredict_ScenarioProbabilitiesSumToOne(t *testing.T) {
	prediction := fixturePrediction(t)

	s := prediction.Scenarios
	if s.Optimistic.Probability+s.MostLikely.Probability+s.Pessimistic.Probability != 1.0 {
		t.Fatalf("probabilities sum to %v, want exactly 1.0",
			s.Optimistic.Probability+s.MostLikely.Probability+s.Pessimistic.Probability)
	}
	if !almostEqual(s.Optimistic.ROI, prediction.AdjustedROI*1.3, 1e-9) {
		t.Fatalf("optimistic scenario = %v, want adjusted x 1.3", s.Optimistic.ROI)
	}
	if !almostEqual(s.Pessimistic.ROI, prediction.AdjustedROI*0.7, 1e-9) {
		t.Fatalf("pessimistic scenario = %v, want adjusted x 0.7", s.Pessimistic.ROI)
	}
}

func TestPredict_ConfidenceWithDefaultsIsBase(t *testing.T) {
	e := newTestEngine(t)
	params, err := Resolve(Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tender := fixtureTender()
	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	cashflow := e.ProjectCashFlow(tender, params, cost, benefit)
	roi := ComputeROI(cost, benefit, cashflow, params.ProjectDurationMonths)

	prediction := e.Predict(tender, params, cost, roi, cashflow)
	if !almostEqual(prediction.ConfidenceLevel, 0.5, 1e-9) {
		t.Fatalf("confidence = %v, want 0.5", prediction.ConfidenceLevel)
	}
}

func TestPredict_ConfidenceGrowsWithSupportingData(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	tender.Budget = 6_000_000

	params := fixtureParams(t)
	params.MarketSupplied = true
	params.Historical.SimilarProjectsROI = []float64{30}
	params.Completeness = 1.0

	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	cashflow := e.ProjectCashFlow(tender, params, cost, benefit)
	roi := ComputeROI(cost, benefit, cashflow, params.ProjectDurationMonths)

	prediction := e.Predict(tender, params, cost, roi, cashflow)
	if !almostEqual(prediction.ConfidenceLevel, 0.9, 1e-9) {
		t.Fatalf("confidence = %v, want 0.9", prediction.ConfidenceLevel)
	}
	if prediction.ConfidenceLevel < 0 || prediction.ConfidenceLevel > 1 {
		t.Fatalf("confidence %v outside [0, 1]", prediction.ConfidenceLevel)
	}
}

func TestPredict_RecommendationsFireInTableOrder(t *testing.T) {
	prediction := fixturePrediction(t)

	// The fixture clears the strong-recommendation bar and its cost sits
	// above 90% of the budget.
	if len(prediction.Recommendations) != 2 {
		t.Fatalf("got %d recommendations, want 2: %v", len(prediction.Recommendations), prediction.Recommendations)
	}
	if !strings.Contains(prediction.Recommendations[0], "strongly recommended") {
		t.Fatalf("first recommendation = %q, want the strong bid advisory", prediction.Recommendations[0])
	}
	if !strings.Contains(prediction.Recommendations[1], "overrun") {
		t.Fatalf("second recommendation = %q, want the overrun advisory", prediction.Recommendations[1])
	}
}

func TestPredict_NegativeROIAdvisesAgainstBidding(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	params := fixtureParams(t)
	cost := ComputeCost(tender, params)
	cashflow := CashFlowAnalysis{PaybackPeriod: 1}
	roi := ROIAnalysis{Realistic: -20}

	prediction := e.Predict(tender, params, cost, roi, cashflow)
	found := false
	for _, r := range prediction.Recommendations {
		if strings.Contains(r, "not advised") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an advisory against bidding, got %v", prediction.Recommendations)
	}
}

func TestPredict_HighRiskAndCompetitionAdvisories(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	params := fixtureParams(t)
	params.RiskLevel = LevelHigh
	params.Market.CompetitionLevel = LevelHigh

	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	cashflow := e.ProjectCashFlow(tender, params, cost, benefit)
	roi := ComputeROI(cost, benefit, cashflow, params.ProjectDurationMonths)
	prediction := e.Predict(tender, params, cost, roi, cashflow)

	var sawRisk, sawCompetition bool
	for _, r := range prediction.Recommendations {
		if strings.Contains(r, "risk-mitigation") {
			sawRisk = true
		}
		if strings.Contains(r, "differentiate") {
			sawCompetition = true
		}
	}
	if !sawRisk {
		t.Fatalf("expected a risk-mitigation advisory, got %v", prediction.Recommendations)
	}
	if !sawCompetition {
		t.Fatalf("expected a competition advisory, got %v", prediction.Recommendations)
	}
}
