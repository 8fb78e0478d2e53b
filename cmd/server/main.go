package main

import (
	"context"
	"log"
	"os"

	"github.com/javier/tender-desk/internal/api"
	"github.com/javier/tender-desk/internal/db"
	"github.com/javier/tender-desk/internal/engine"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
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

	policy, err := engine.LoadPolicy(os.Getenv("POLICY_PATH"))
	if err != nil {
		log.Fatalf("Failed to load analysis policy: %v", err)
	}
	eng := engine.NewEngine(policy, log.Default())

	srv := api.NewServer(pool, eng)
	log.Printf("Server starting on port %s...", port)
	if err := srv.Start(port); err != nil {
		log.Fatal(err)
	}
}
