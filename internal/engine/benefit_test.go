package engine

import "testing"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("loading policy: %v", err)
	}
	return NewEngine(policy, nil)
}

func TestComputeBenefit_NeutralTier(t *testing.T) {
	e := newTestEngine(t)
	benefit := e.ComputeBenefit(fixtureTender(), fixtureParams(t))

	if benefit.PurchaserTier != "default" {
		t.Fatalf("tier = %q, want default", benefit.PurchaserTier)
	}
	if benefit.DirectRevenue != 2_000_000 {
		t.Fatalf("direct revenue = %v, want 2000000", benefit.DirectRevenue)
	}
	if !almostEqual(benefit.FutureOpportunities, 600_000, 1e-6) {
		t.Fatalf("future opportunities = %v, want 600000", benefit.FutureOpportunities)
	}
	// HIGH complexity doubles the technology value ratio.
	if !almostEqual(benefit.TechnologyValue, 400_000, 1e-6) {
		t.Fatalf("technology value = %v, want 400000", benefit.TechnologyValue)
	}
	if !almostEqual(benefit.BrandValue, 100_000, 1e-6) {
		t.Fatalf("brand value = %v, want 100000", benefit.BrandValue)
	}
}

func TestComputeBenefit_FinancialTierMultipliers(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	tender.Purchaser = "Banco de la Nación"

	benefit := e.ComputeBenefit(tender, fixtureParams(t))
	if benefit.PurchaserTier != "financial" {
		t.Fatalf("tier = %q, want financial", benefit.PurchaserTier)
	}
	if !almostEqual(benefit.FutureOpportunities, 2_000_000*0.3*1.5, 1e-6) {
		t.Fatalf("future opportunities = %v, want %v", benefit.FutureOpportunities, 2_000_000*0.3*1.5)
	}
	if !almostEqual(benefit.BrandValue, 2_000_000*0.05*2.0, 1e-6) {
		t.Fatalf("brand value = %v, want %v", benefit.BrandValue, 2_000_000*0.05*2.0)
	}
}

func TestComputeBenefit_TotalIsExactSumOfComponents(t *testing.T) {
	e := newTestEngine(t)
	benefit := e.ComputeBenefit(fixtureTender(), fixtureParams(t))

	sum := benefit.DirectRevenue + benefit.FutureOpportunities + benefit.TechnologyValue + benefit.BrandValue
	if benefit.TotalBenefit != sum {
		t.Fatalf("total benefit %v != component sum %v", benefit.TotalBenefit, sum)
	}
}
