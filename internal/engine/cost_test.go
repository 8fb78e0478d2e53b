package engine

import (
	"math"
	"testing"

	"github.com/javier/tender-desk/internal/models"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func fixtureParams(t *testing.T) AnalysisParameters {
	t.Helper()
	rate := 1000.0
	months := 8
	team := 6
	complexity := LevelHigh
	risk := LevelMedium
	params, err := Resolve(Overrides{
		LaborRatePerDay:       &rate,
		ProjectDurationMonths: &months,
		TeamSize:              &team,
		TechnologyComplexity:  &complexity,
		RiskLevel:             &risk,
	})
	if err != nil {
		t.Fatalf("resolving fixture params: %v", err)
	}
	return params
}

func fixtureTender() models.Tender {
	return models.Tender{
		Title:     "Core banking platform modernization",
		Purchaser: "Consorcio Andino SAC",
		Budget:    2_000_000,
	}
}

func TestComputeCost_ReferenceFixture(t *testing.T) {
	cost := ComputeCost(fixtureTender(), fixtureParams(t))

	if !almostEqual(cost.LaborCost, 1_056_000, 1e-6) {
		t.Fatalf("labor cost = %v, want 1056000", cost.LaborCost)
	}
	if !almostEqual(cost.TechnologyCost, 337_920, 1e-6) {
		t.Fatalf("technology cost = %v, want 337920", cost.TechnologyCost)
	}
	// management = (1,056,000 + 337,920) * 0.3
	if !almostEqual(cost.ManagementCost, 418_176, 1e-6) {
		t.Fatalf("management cost = %v, want 418176", cost.ManagementCost)
	}
	if !almostEqual(cost.RiskCost, 181_209.6, 1e-6) {
		t.Fatalf("risk cost = %v, want 181209.6", cost.RiskCost)
	}
	if !almostEqual(cost.TotalCost, 1_993_305.6, 1e-6) {
		t.Fatalf("total cost = %v, want 1993305.6", cost.TotalCost)
	}
}

func TestComputeCost_TotalIsExactSumOfComponents(t *testing.T) {
	cost := ComputeCost(fixtureTender(), fixtureParams(t))

	sum := cost.LaborCost + cost.TechnologyCost + cost.ManagementCost + cost.RiskCost
	if cost.TotalCost != sum {
		t.Fatalf("total cost %v != component sum %v", cost.TotalCost, sum)
	}
}

func TestComputeCost_Deterministic(t *testing.T) {
	tender := fixtureTender()
	params := fixtureParams(t)

	first := ComputeCost(tender, params)
	second := ComputeCost(tender, params)
	if first != second {
		t.Fatalf("identical inputs produced different outputs: %+v vs %+v", first, second)
	}
}

func TestComputeCost_ComplexityFactorsMonotonic(t *testing.T) {
	params := fixtureParams(t)
	tender := fixtureTender()

	var previous float64
	for _, level := range []Level{LevelLow, LevelMedium, LevelHigh} {
		params.TechnologyComplexity = level
		cost := ComputeCost(tender, params)
		if cost.TotalCost <= previous {
			t.Fatalf("total cost at %s (%v) not above %v", level, cost.TotalCost, previous)
		}
		previous = cost.TotalCost
	}
}
