package db

import (
	"context"
	"fmt"
	"time"
)

type IngestRun struct {
	ID           string     `json:"id"`
	SourceDomain string     `json:"source_domain"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
	Inserted     int        `json:"inserted"`
	Updated      int        `json:"updated"`
	Failed       int        `json:"failed"`
	Error        string     `json:"error,omitempty"`
}

func (s *Store) StartIngestRun(ctx context.Context, sourceDomain string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO ingest_runs (source_domain) VALUES ($1) RETURNING id
	`, sourceDomain).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("start run failed: %w", err)
	}
	return id, nil
}

func (s *Store) FinishIngestRun(ctx context.Context, id string, inserted, updated, failed int, runErr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs
		SET finished_at = NOW(), inserted = $2, updated = $3, failed = $4, error = NULLIF($5, '')
		WHERE id = $1
	`, id, inserted, updated, failed, runErr)
	if err != nil {
		return fmt.Errorf("finish run failed: %w", err)
	}
	return nil
}

func (s *Store) RecentIngestRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_domain, started_at, finished_at, inserted, updated, failed, COALESCE(error, '')
		FROM ingest_runs ORDER BY started_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var r IngestRun
		if err := rows.Scan(&r.ID, &r.SourceDomain, &r.StartedAt, &r.FinishedAt, &r.Inserted, &r.Updated, &r.Failed, &r.Error); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
