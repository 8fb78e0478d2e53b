package engine

import (
	"errors"
	"math"
	"testing"
)

func TestResolve_DefaultsWhenNothingSupplied(t *testing.T) {
	params, err := Resolve(Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if params.LaborRatePerDay != 800 {
		t.Fatalf("labor rate = %v, want 800", params.LaborRatePerDay)
	}
	if params.ProjectDurationMonths != 6 {
		t.Fatalf("duration = %d, want 6", params.ProjectDurationMonths)
	}
	if params.TeamSize != 5 {
		t.Fatalf("team size = %d, want 5", params.TeamSize)
	}
	if params.TechnologyComplexity != LevelMedium || params.RiskLevel != LevelMedium {
		t.Fatalf("complexity/risk = %s/%s, want MEDIUM/MEDIUM", params.TechnologyComplexity, params.RiskLevel)
	}
	if params.DiscountRate != 0.08 {
		t.Fatalf("discount rate = %v, want 0.08", params.DiscountRate)
	}
	if params.Market.EconomicGrowthRate != 0.05 || params.Market.IndustryGrowthRate != 0.05 {
		t.Fatalf("growth rates = %v/%v, want 0.05/0.05", params.Market.EconomicGrowthRate, params.Market.IndustryGrowthRate)
	}
	if params.Market.CompetitionLevel != LevelMedium || params.Market.MarketMaturity != MaturityGrowing {
		t.Fatalf("competition/maturity = %s/%s, want MEDIUM/GROWING", params.Market.CompetitionLevel, params.Market.MarketMaturity)
	}
	if len(params.Historical.SimilarProjectsROI) != 0 {
		t.Fatalf("historical ROI should default to empty, got %v", params.Historical.SimilarProjectsROI)
	}
	if params.Completeness != 0 {
		t.Fatalf("completeness = %v, want 0", params.Completeness)
	}
	if params.MarketSupplied {
		t.Fatal("market should not count as supplied")
	}
}

func TestResolve_RejectsOutOfRangeValues(t *testing.T) {
	negRate := -10.0
	zeroMonths := 0
	zeroTeam := 0
	badLevel := Level("EXTREME")
	badRate := 1.5
	nan := math.NaN()

	cases := []struct {
		name      string
		overrides Overrides
		field     string
	}{
		{"negative labor rate", Overrides{LaborRatePerDay: &negRate}, "laborRatePerDay"},
		{"zero duration", Overrides{ProjectDurationMonths: &zeroMonths}, "projectDurationMonths"},
		{"zero team", Overrides{TeamSize: &zeroTeam}, "teamSize"},
		{"unknown complexity", Overrides{TechnologyComplexity: &badLevel}, "technologyComplexity"},
		{"unknown risk", Overrides{RiskLevel: &badLevel}, "riskLevel"},
		{"discount rate above 1", Overrides{DiscountRate: &badRate}, "discountRate"},
		{"unknown competition", Overrides{Market: &MarketOverrides{CompetitionLevel: &badLevel}}, "marketConditions.competitionLevel"},
		{"satisfaction above 1", Overrides{Historical: &HistoricalOverrides{ClientSatisfactionRate: &badRate}}, "historicalData.clientSatisfactionRate"},
		{"NaN satisfaction", Overrides{Historical: &HistoricalOverrides{ClientSatisfactionRate: &nan}}, "historicalData.clientSatisfactionRate"},
		{"NaN success rate", Overrides{Historical: &HistoricalOverrides{ProjectSuccessRate: &nan}}, "historicalData.projectSuccessRate"},
		{"non-finite historical ROI", Overrides{Historical: &HistoricalOverrides{SimilarProjectsROI: []float64{20, nan}}}, "historicalData.similarProjectsROI"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.overrides)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if vErr.Field != tc.field {
				t.Fatalf("field = %q, want %q", vErr.Field, tc.field)
			}
		})
	}
}

func TestResolve_CompletenessCountsSuppliedFields(t *testing.T) {
	rate := 900.0
	team := 4
	satisfaction := 0.9
	params, err := Resolve(Overrides{
		LaborRatePerDay: &rate,
		TeamSize:        &team,
		Historical:      &HistoricalOverrides{ClientSatisfactionRate: &satisfaction},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := 3.0 / 13.0
	if !almostEqual(params.Completeness, want, 1e-12) {
		t.Fatalf("completeness = %v, want %v", params.Completeness, want)
	}
}

func TestResolve_DoesNotAliasHistoricalSlice(t *testing.T) {
	history := []float64{30, 50}
	params, err := Resolve(Overrides{Historical: &HistoricalOverrides{SimilarProjectsROI: history}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history[0] = -999
	if params.Historical.SimilarProjectsROI[0] != 30 {
		t.Fatal("resolved parameters share backing storage with the caller's slice")
	}
}
