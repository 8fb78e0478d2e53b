package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/javier/tender-desk/internal/models"
)

func TestAnalyze_AssemblesFullReport(t *testing.T) {
	e := newTestEngine(t)
	e.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	tender := fixtureTender()
	tender.ID = uuid.New()

	rate := 1000.0
	months := 8
	team := 6
	complexity := LevelHigh
	report, err := e.Analyze(tender, Overrides{
		LaborRatePerDay:       &rate,
		ProjectDurationMonths: &months,
		TeamSize:              &team,
		TechnologyComplexity:  &complexity,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TenderID != tender.ID {
		t.Fatalf("report tender id = %s, want %s", report.TenderID, tender.ID)
	}
	if report.ID == uuid.Nil {
		t.Fatal("report should get its own identifier")
	}
	if !almostEqual(report.Cost.TotalCost, 1_993_305.6, 1e-6) {
		t.Fatalf("total cost = %v, want 1993305.6", report.Cost.TotalCost)
	}
	if len(report.CashFlow.Months) != 8 {
		t.Fatalf("cash flow has %d months, want 8", len(report.CashFlow.Months))
	}
	if report.Prediction.BaseROI != report.ROI.Realistic {
		t.Fatalf("prediction base %v != realistic ROI %v", report.Prediction.BaseROI, report.ROI.Realistic)
	}
	if !report.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("created at = %v", report.CreatedAt)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestAnalyze_RejectsNonPositiveBudget(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	tender.Budget = 0

	_, err := e.Analyze(tender, Overrides{})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if vErr.Field != "tender.budget" {
		t.Fatalf("field = %q, want tender.budget", vErr.Field)
	}
}

func TestAnalyze_WarnsOnNonRecoveringCashFlow(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	// Tiny budget against default staffing: revenue never catches the spend.
	tender.Budget = 1_000

	report, err := e.Analyze(tender, Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Warnings) != 1 || report.Warnings[0] != WarnNoRecovery {
		t.Fatalf("warnings = %v, want [%q]", report.Warnings, WarnNoRecovery)
	}
	if report.ROI.BreakEvenMonth != nil {
		t.Fatalf("expected undefined break-even, got %d", *report.ROI.BreakEvenMonth)
	}
}

func TestAnalyze_ReanalysisProducesNewReport(t *testing.T) {
	e := newTestEngine(t)
	tender := fixtureTender()
	tender.ID = uuid.New()

	first, err := e.Analyze(tender, Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Analyze(tender, Overrides{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("re-analysis must mint a new report, not reuse the old identifier")
	}
	if first.Cost != second.Cost {
		t.Fatalf("same inputs produced different cost analyses: %+v vs %+v", first.Cost, second.Cost)
	}
}

func TestAnalyzeBatch_IsolatesFailures(t *testing.T) {
	e := newTestEngine(t)

	good1 := fixtureTender()
	good1.ID = uuid.New()
	bad := fixtureTender()
	bad.ID = uuid.New()
	bad.Budget = -5
	good2 := fixtureTender()
	good2.ID = uuid.New()

	result := e.AnalyzeBatch([]models.Tender{good1, bad, good2}, Overrides{})

	if result.Summary.Success != 2 || result.Summary.Failure != 1 {
		t.Fatalf("summary = %+v, want 2 successes and 1 failure", result.Summary)
	}
	if len(result.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(result.Items))
	}
	if result.Items[0].Report == nil || result.Items[2].Report == nil {
		t.Fatal("valid tenders should produce reports")
	}
	if result.Items[1].Report != nil || result.Items[1].Err == "" {
		t.Fatalf("invalid tender should carry an error, got %+v", result.Items[1])
	}
	if result.Items[1].TenderID != bad.ID.String() {
		t.Fatalf("failure recorded against %s, want %s", result.Items[1].TenderID, bad.ID)
	}
}

func TestAnalyzeBatch_PreservesInputOrder(t *testing.T) {
	e := newTestEngine(t)

	tenders := make([]models.Tender, 20)
	for i := range tenders {
		tenders[i] = fixtureTender()
		tenders[i].ID = uuid.New()
	}

	result := e.AnalyzeBatch(tenders, Overrides{})
	for i, item := range result.Items {
		if item.TenderID != tenders[i].ID.String() {
			t.Fatalf("item %d is tender %s, want %s", i, item.TenderID, tenders[i].ID)
		}
	}
}

func TestCompare_RanksByROIThenCostThenID(t *testing.T) {
	e := newTestEngine(t)

	// Same budget but a financial purchaser carries higher benefit, so it
	// ranks first. The small-budget tender cannot cover its cost and ranks
	// last.
	plain := fixtureTender()
	plain.ID = uuid.New()
	plain.Title = "Road maintenance"

	bank := fixtureTender()
	bank.ID = uuid.New()
	bank.Title = "Bank core replacement"
	bank.Purchaser = "Banco Central"

	tiny := fixtureTender()
	tiny.ID = uuid.New()
	tiny.Title = "Kiosk refresh"
	tiny.Budget = 1_000

	rankings := e.Compare([]models.Tender{tiny, plain, bank}, Overrides{})

	if len(rankings) != 3 {
		t.Fatalf("got %d rankings, want 3", len(rankings))
	}
	if rankings[0].TenderID != bank.ID.String() {
		t.Fatalf("first ranked = %s, want the financial-purchaser tender", rankings[0].Title)
	}
	if rankings[2].TenderID != tiny.ID.String() {
		t.Fatalf("last ranked = %s, want the small-budget tender", rankings[2].Title)
	}
}

func TestCompare_OrderIndependent(t *testing.T) {
	e := newTestEngine(t)

	a := fixtureTender()
	a.ID = uuid.New()
	b := fixtureTender()
	b.ID = uuid.New()
	b.Purchaser = "Ministerio de Transportes"
	c := fixtureTender()
	c.ID = uuid.New()
	c.Budget = 3_000_000

	forward := e.Compare([]models.Tender{a, b, c}, Overrides{})
	reverse := e.Compare([]models.Tender{c, b, a}, Overrides{})

	if len(forward) != len(reverse) {
		t.Fatalf("ranking lengths differ: %d vs %d", len(forward), len(reverse))
	}
	for i := range forward {
		if forward[i] != reverse[i] {
			t.Fatalf("position %d differs: %+v vs %+v", i, forward[i], reverse[i])
		}
	}
}

func TestCompare_SkipsFailedTenders(t *testing.T) {
	e := newTestEngine(t)

	good := fixtureTender()
	good.ID = uuid.New()
	bad := fixtureTender()
	bad.ID = uuid.New()
	bad.Budget = 0

	rankings := e.Compare([]models.Tender{good, bad}, Overrides{})
	if len(rankings) != 1 {
		t.Fatalf("got %d rankings, want 1", len(rankings))
	}
	if rankings[0].TenderID != good.ID.String() {
		t.Fatalf("ranked tender = %s, want %s", rankings[0].TenderID, good.ID)
	}
}
