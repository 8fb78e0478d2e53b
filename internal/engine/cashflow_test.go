package engine

import "testing"

func fixtureProjection(t *testing.T) (CashFlowAnalysis, CostAnalysis, BenefitAnalysis) {
	t.Helper()
	e := newTestEngine(t)
	tender := fixtureTender()
	params := fixtureParams(t)
	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	return e.ProjectCashFlow(tender, params, cost, benefit), cost, benefit
}

func TestProjectCashFlow_FrontLoadedExpenses(t *testing.T) {
	projection, cost, _ := fixtureProjection(t)

	if len(projection.Months) != 8 {
		t.Fatalf("got %d months, want 8", len(projection.Months))
	}

	var firstHalf, total float64
	for _, m := range projection.Months {
		total += m.Expense
		if m.Month <= 4 {
			firstHalf += m.Expense
		}
	}
	if !almostEqual(total, cost.TotalCost, 1e-6) {
		t.Fatalf("spread expenses sum to %v, want %v", total, cost.TotalCost)
	}
	if !almostEqual(firstHalf, cost.TotalCost*0.6, 1e-6) {
		t.Fatalf("first-half expenses = %v, want 60%% of %v", firstHalf, cost.TotalCost)
	}
}

func TestProjectCashFlow_SingleMilestoneAtCompletion(t *testing.T) {
	projection, _, benefit := fixtureProjection(t)

	for _, m := range projection.Months[:7] {
		if m.Income != 0 {
			t.Fatalf("month %d has income %v before the completion milestone", m.Month, m.Income)
		}
	}
	final := projection.Months[7]
	if !almostEqual(final.Income, benefit.DirectRevenue, 1e-6) {
		t.Fatalf("completion income = %v, want %v", final.Income, benefit.DirectRevenue)
	}
}

func TestProjectCashFlow_CumulativeFlowIsPrefixSum(t *testing.T) {
	projection, _, _ := fixtureProjection(t)

	running := 0.0
	for _, m := range projection.Months {
		if m.NetFlow != m.Income-m.Expense {
			t.Fatalf("month %d net flow %v != income %v - expense %v", m.Month, m.NetFlow, m.Income, m.Expense)
		}
		running += m.NetFlow
		if !almostEqual(m.CumulativeFlow, running, 1e-9) {
			t.Fatalf("month %d cumulative %v, want %v", m.Month, m.CumulativeFlow, running)
		}
	}
}

func TestProjectCashFlow_PeakFundingIsMostNegativeCumulative(t *testing.T) {
	projection, _, _ := fixtureProjection(t)

	min := 0.0
	for _, m := range projection.Months {
		if m.CumulativeFlow < min {
			min = m.CumulativeFlow
		}
	}
	if projection.PeakFunding != min {
		t.Fatalf("peak funding = %v, want %v", projection.PeakFunding, min)
	}
	if projection.PeakFunding >= 0 {
		t.Fatalf("expected negative peak funding with completion-only payment, got %v", projection.PeakFunding)
	}
}

func TestProjectCashFlow_PaybackAtCompletion(t *testing.T) {
	projection, _, _ := fixtureProjection(t)

	// Benefit exceeds cost on the fixture, so the single completion payment
	// recovers the spend in the final month.
	if projection.PaybackPeriod != 8 {
		t.Fatalf("payback period = %d, want 8", projection.PaybackPeriod)
	}
}

func TestProjectCashFlow_NonRecoverySignalledPastHorizon(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	params := fixtureParams(t)
	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	benefit.DirectRevenue = cost.TotalCost * 0.5

	projection := e.ProjectCashFlow(tender, params, cost, benefit)
	if projection.PaybackPeriod != len(projection.Months)+1 {
		t.Fatalf("payback period = %d, want %d", projection.PaybackPeriod, len(projection.Months)+1)
	}
}

func TestSpreadExpenses_SingleMonthCarriesEverything(t *testing.T) {
	out := spreadExpenses(1000, 1, 0.6)
	if len(out) != 1 || out[0] != 1000 {
		t.Fatalf("got %v, want [1000]", out)
	}
}

func TestSpreadExpenses_OddDurationExtraMonthInFirstHalf(t *testing.T) {
	out := spreadExpenses(1000, 5, 0.6)

	var firstHalf float64
	for _, v := range out[:3] {
		firstHalf += v
	}
	if !almostEqual(firstHalf, 600, 1e-9) {
		t.Fatalf("first three months carry %v, want 600", firstHalf)
	}
}
