package main

import (
	"context"
	"flag"
	"log"

	"github.com/javier/tender-desk/internal/db"
	"github.com/javier/tender-desk/internal/ingest"
)

func main() {
	sourceID := flag.String("source", "", "Source ID to ingest (e.g., seace_convocatorias)")
	flag.Parse()

	if *sourceID == "" {
		log.Fatal("Please provide a source ID using -source flag")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// No AI client: scraping, parsing and status rules still run, only the
	// LLM fallbacks and embeddings are skipped. Good enough for verifying
	// selectors against a live source.
	pipeline := ingest.NewPipeline(pool, nil, nil)

	log.Printf("Starting manual ingestion for source: %s", *sourceID)
	stats, err := pipeline.IngestSource(ctx, *sourceID)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	log.Printf("Ingestion finished for %s. Found: %d, Inserted: %d, Updated: %d, Errors: %d",
		*sourceID, stats.TotalFound, stats.Inserted, stats.Updated, stats.Errors)
}
