package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/javier/tender-desk/internal/db"
)

func main() {
	limit := flag.Int("limit", 10, "Number of recent runs to show")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)
	runs, err := store.RecentIngestRuns(ctx, *limit)
	if err != nil {
		log.Fatal(err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Inserted", "Updated", "Failed", "Duration", "Started At", "Error"})

	for _, run := range runs {
		duration := "Running..."
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{run.SourceDomain, run.Inserted, run.Updated, run.Failed, duration, run.StartedAt.Format("2006-01-02 15:04:05"), run.Error})
	}
	t.Render()
}
