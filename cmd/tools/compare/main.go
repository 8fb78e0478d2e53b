package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/javier/tender-desk/internal/db"
	"github.com/javier/tender-desk/internal/engine"
	"github.com/javier/tender-desk/internal/models"
)

func main() {
	idsCSV := flag.String("ids", "", "Comma-separated tender IDs to compare (default: active tenders)")
	limit := flag.Int("limit", 10, "Max tenders to compare when -ids is not given")
	durationMonths := flag.Int("duration-months", 0, "Override project duration in months")
	teamSize := flag.Int("team-size", 0, "Override team size")
	laborRate := flag.Float64("labor-rate", 0, "Override labor rate per day")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()
	store := db.NewStore(pool)

	policy, err := engine.LoadPolicy(os.Getenv("POLICY_PATH"))
	if err != nil {
		log.Fatalf("failed to load analysis policy: %v", err)
	}
	eng := engine.NewEngine(policy, log.Default())

	tenders, err := pickTenders(ctx, store, *idsCSV, *limit)
	if err != nil {
		log.Fatal(err)
	}
	if len(tenders) == 0 {
		log.Fatal("no tenders to compare")
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

	rankings := eng.Compare(tenders, overrides)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Tender", "ROI %", "Total Cost"})
	for i, r := range rankings {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		t.AppendRow(table.Row{i + 1, title, fmt.Sprintf("%.1f", r.ROI), fmt.Sprintf("%.0f", r.TotalCost)})
	}
	t.Render()

	if len(rankings) < len(tenders) {
		fmt.Printf("%d tender(s) skipped (failed validation, see log above)\n", len(tenders)-len(rankings))
	}
}

func pickTenders(ctx context.Context, store *db.Store, idsCSV string, limit int) ([]models.Tender, error) {
	if strings.TrimSpace(idsCSV) != "" {
		var ids []string
		for _, part := range strings.Split(idsCSV, ",") {
			if id := strings.TrimSpace(part); id != "" {
				ids = append(ids, id)
			}
		}
		return store.GetTenders(ctx, ids)
	}

	result, err := store.ListTenders(ctx, db.ListParams{Status: "active", SortBy: "budget_desc", Limit: limit})
	if err != nil {
		return nil, err
	}
	return result.Tenders, nil
}
