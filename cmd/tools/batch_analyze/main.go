package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/javier/tender-desk/internal/db"
	"github.com/javier/tender-desk/internal/engine"
	"github.com/javier/tender-desk/internal/ingest"
)

type output struct {
	Analyzed      int            `json:"analyzed"`
	Failed        int            `json:"failed"`
	ReportsSaved  int            `json:"reports_saved"`
	Failures      []failure      `json:"failures,omitempty"`
	StatusUpdated int            `json:"status_updated"`
	StatusCounts  map[string]int `json:"status_counts"`
}

type failure struct {
	TenderID string `json:"tender_id"`
	Error    string `json:"error"`
}

func main() {
	status := flag.String("status", "active", "Tender status filter")
	limit := flag.Int("limit", 100, "Max tenders to analyze")
	durationMonths := flag.Int("duration-months", 0, "Override project duration in months")
	teamSize := flag.Int("team-size", 0, "Override team size")
	laborRate := flag.Float64("labor-rate", 0, "Override labor rate per day")
	recomputeBatch := flag.Int("recompute-batch", 500, "Status recompute batch size, 0 to skip")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	store := db.NewStore(pool)

	policy, err := engine.LoadPolicy(os.Getenv("POLICY_PATH"))
	if err != nil {
		log.Fatalf("failed to load analysis policy: %v", err)
	}
	eng := engine.NewEngine(policy, log.Default())

	listed, err := store.ListTenders(ctx, db.ListParams{Status: *status, SortBy: "budget_desc", Limit: *limit})
	if err != nil {
		log.Fatalf("listing tenders failed: %v", err)
	}

	var overrides engine.Overrides
	if *durationMonths > 0 {
		overrides.ProjectDurationMonths = durationMonths
	}
	if *teamSize > 0 {
		overrides.TeamSize = teamSize
	}
	if *laborRate > 0 {
		overrides.LaborRatePerDay = laborRate
	}

	batch := eng.AnalyzeBatch(listed.Tenders, overrides)

	result := output{Analyzed: batch.Summary.Success, Failed: batch.Summary.Failure}
	for _, item := range batch.Items {
		if item.Report == nil {
			result.Failures = append(result.Failures, failure{TenderID: item.TenderID, Error: item.Err})
			continue
		}
		if err := store.SaveReport(ctx, item.Report); err != nil {
			result.Failures = append(result.Failures, failure{TenderID: item.TenderID, Error: err.Error()})
			continue
		}
		result.ReportsSaved++
	}

	if *recomputeBatch > 0 {
		pipeline := ingest.NewPipeline(pool, nil, nil)
		statusCounts, updated, err := pipeline.RecomputeStatuses(ctx, *recomputeBatch)
		if err != nil {
			log.Fatalf("recompute failed: %v", err)
		}
		result.StatusUpdated = updated
		result.StatusCounts = statusCounts
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatal(err)
	}
}
