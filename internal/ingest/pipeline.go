package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/microcosm-cc/bluemonday"

	"github.com/javier/tender-desk/internal/ai"
	"github.com/javier/tender-desk/internal/db"
	"github.com/javier/tender-desk/internal/models"
)

// Pipeline turns raw tender notices into normalized database rows. It owns
// the normalization, LLM fallbacks, classification, and embedding steps so
// every strategy saves tenders the same way.
type Pipeline struct {
	DB      *pgxpool.Pool
	Store   *db.Store
	Fetcher Fetcher
	AI      *ai.OllamaClient
}

func NewPipeline(pool *pgxpool.Pool, fetcher Fetcher, aiClient *ai.OllamaClient) *Pipeline {
	if fetcher == nil {
		fetcher = NewRateLimitedFetcher(FetchConfig{
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RateLimitRPS:   2.0,
			AcceptLanguage: "es-PE,es;q=0.9,en;q=0.8",
		})
	}
	return &Pipeline{
		DB:      pool,
		Store:   db.NewStore(pool),
		Fetcher: fetcher,
		AI:      aiClient,
	}
}

// RunURL ingests a single tender page by URL: fetch, LLM-extract the fields
// a generic page gives no selectors for, and save.
func (p *Pipeline) RunURL(ctx context.Context, rawURL string) error {
	log.Printf("Starting ingestion for: %s", rawURL)

	doc, err := p.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("fetch error: %w", err)
	}
	defer doc.Body.Close()

	// Cap the read: tender pages are small, PDFs linked from them are not
	body := make([]byte, 0, 64*1024)
	buf := make([]byte, 32*1024)
	for len(body) < 2*1024*1024 {
		n, readErr := doc.Body.Read(buf)
		body = append(body, buf[:n]...)
		if readErr != nil {
			break
		}
	}

	pageText := HTMLToText(string(body))
	if strings.TrimSpace(pageText) == "" {
		return fmt.Errorf("page at %s produced no text", rawURL)
	}
	if len(pageText) > 8000 {
		pageText = pageText[:8000]
	}

	if p.AI == nil {
		return fmt.Errorf("single-URL ingestion requires the LLM extractor")
	}

	extracted, err := p.AI.ExtractTenderData(ctx, "", rawURL, pageText)
	if err != nil {
		return fmt.Errorf("extraction error: %w", err)
	}

	canonical := CanonicalizeURL(rawURL)
	raw := RawNotice{
		Title:        extracted.Summary,
		Description:  string(body),
		ExternalURL:  canonical,
		SourceDomain: extractDomain(canonical),
		SourceID:     canonical,
		TenderNumber: extracted.TenderNumber,
		Purchaser:    extracted.Purchaser,
		Area:         extracted.Area,
		RawDeadline:  extracted.DeadlineText,
		DeadlineISO:  extracted.DeadlineISO,
		PublishedISO: extracted.PublishedISO,
		AwardedISO:   extracted.AwardedISO,
		RawStatus:    extracted.SourceStatusRaw,
		IsAwardPage:  extracted.IsAwardPage,
		Categories:   extracted.Categories,
		RawCurrency:  extracted.Currency,
	}
	if extracted.Budget > 0 {
		raw.RawBudget = fmt.Sprintf("%.2f", extracted.Budget)
	}
	if raw.Title == "" {
		raw.Title = TruncateText(pageText, 140)
	}

	if _, err := p.SaveRaw(ctx, raw); err != nil {
		return fmt.Errorf("save error: %w", err)
	}

	log.Printf("Ingestion complete for %s", rawURL)
	return nil
}

// SaveRaw normalizes a raw notice and saves it. Returns whether the tender
// row was newly inserted.
func (p *Pipeline) SaveRaw(ctx context.Context, raw RawNotice) (bool, error) {
	tender := FromRaw(raw)
	return p.SaveTender(ctx, tender, raw.RawStatus)
}

// SaveTender runs the save steps shared by all strategies: text sanitation,
// LLM extraction for fields the scrape missed, sector classification, the
// status decision, the upsert, and embedding generation for new rows.
func (p *Pipeline) SaveTender(ctx context.Context, tender models.Tender, rawStatus string) (bool, error) {
	if strings.TrimSpace(tender.SourceID) == "" {
		return false, fmt.Errorf("missing source_id (url=%s, source=%s)", tender.ExternalURL, tender.SourceDomain)
	}

	tender.Title = sanitizeUTF8(HTMLToText(tender.Title))
	tender.Summary = sanitizeUTF8(HTMLToText(tender.Summary))
	if strings.TrimSpace(tender.Summary) == "" && strings.TrimSpace(tender.Description) != "" {
		tender.Summary = TruncateText(HTMLToText(tender.Description), 280)
	}
	tender.Description = sanitizeHTML(sanitizeUTF8(tender.Description))

	// The engine cannot analyze a tender without a budget and the listing
	// cannot show a countdown without a deadline. Check the DB for values an
	// earlier run already extracted before paying for an LLM call.
	needsExtraction := tender.Budget <= 0 || tender.DeadlineAt == nil
	if needsExtraction {
		if existing, err := p.Store.GetTenderBySourceID(ctx, tender.SourceDomain, tender.SourceID); err == nil && existing != nil {
			if tender.Budget <= 0 && existing.Budget > 0 {
				tender.Budget = existing.Budget
				tender.BudgetRaw = existing.BudgetRaw
				tender.Currency = existing.Currency
			}
			if tender.DeadlineAt == nil && existing.DeadlineAt != nil {
				tender.DeadlineAt = existing.DeadlineAt
			}
			if existing.Status == models.StatusClosed || existing.Status == models.StatusAwarded {
				// Finished tenders are not worth an extraction call
				needsExtraction = false
			}
		}
		needsExtraction = needsExtraction && (tender.Budget <= 0 || tender.DeadlineAt == nil)
	}

	if needsExtraction && p.AI != nil {
		log.Printf("Triggering LLM extraction for %q (source: %s)", tender.Title, tender.SourceID)
		p.applyLLMExtraction(ctx, &tender, &rawStatus)
	}

	if len(tender.Categories) == 0 && p.AI != nil {
		if result, err := ai.ClassifyTender(ctx, p.AI, tender.Title, tender.Purchaser, tender.Summary); err != nil {
			log.Printf("Classification failed for %q: %v", tender.Title, err)
		} else {
			tender.Categories = result.Categories
			tender.Keywords = result.Keywords
			if tender.PurchaserType == "" {
				tender.PurchaserType = result.PurchaserType
			}
		}
	}

	decision := ComputeStatusDecision(tender, rawStatus, time.Now().UTC())
	if decision.Status == "needs_review" && p.AI != nil {
		llmCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		status, err := ai.AnalyzeStatus(llmCtx, p.AI, tender.Title, tender.Summary)
		cancel()
		if err == nil && status != "" {
			decision = StatusDecision{Status: status, Reason: "llm_classified"}
		}
	}
	tender.Status = decision.Status
	tender.StatusReason = decision.Reason

	id, inserted, err := p.Store.UpsertTender(ctx, tender)
	if err != nil {
		return false, err
	}

	if inserted && p.AI != nil {
		text := fmt.Sprintf("%s\n%s", tender.Title, tender.Summary)
		if len(text) > 8000 {
			text = text[:8000]
		}
		if vec, err := p.AI.GenerateEmbedding(ctx, text); err != nil {
			log.Printf("Failed to generate embedding for %q: %v", tender.Title, err)
		} else if err := p.Store.SetEmbedding(ctx, id, vec); err != nil {
			log.Printf("Failed to store embedding for %q: %v", tender.Title, err)
		}
	}

	return inserted, nil
}

// applyLLMExtraction fills in fields the scrape missed from the tender's own
// description text.
func (p *Pipeline) applyLLMExtraction(ctx context.Context, tender *models.Tender, rawStatus *string) {
	text := fmt.Sprintf("%s\n%s", tender.Summary, HTMLToText(tender.Description))
	if len(text) > 8000 {
		text = text[:8000]
	}

	extracted, err := p.AI.ExtractTenderData(ctx, tender.Title, tender.ExternalURL, text)
	if err != nil {
		log.Printf("LLM extraction failed for %q: %v", tender.Title, err)
		return
	}

	if extracted.SourceStatusRaw != "" && *rawStatus == "" {
		*rawStatus = extracted.SourceStatusRaw
	}
	if extracted.IsAwardPage && *rawStatus == "" {
		*rawStatus = "adjudicado"
	}
	if tender.TenderNumber == "" {
		tender.TenderNumber = extracted.TenderNumber
	}
	if tender.Purchaser == "" {
		tender.Purchaser = extracted.Purchaser
	}
	if tender.Area == "" {
		tender.Area = extracted.Area
	}
	if tender.Budget <= 0 && extracted.Budget > 0 {
		tender.Budget = extracted.Budget
		if extracted.Currency != "" {
			tender.Currency = extracted.Currency
		}
	}
	if tender.DeadlineAt == nil && extracted.DeadlineISO != "" {
		if dt, ok := parseTimestampCandidate(extracted.DeadlineISO); ok {
			eod := toEndOfDay(dt)
			tender.DeadlineAt = &eod
		}
	}
	if tender.PublishedAt == nil && extracted.PublishedISO != "" {
		if dt, ok := parseTimestampCandidate(extracted.PublishedISO); ok {
			utc := dt.UTC()
			tender.PublishedAt = &utc
		}
	}
	if tender.AwardedAt == nil && extracted.AwardedISO != "" {
		if dt, ok := parseTimestampCandidate(extracted.AwardedISO); ok {
			utc := dt.UTC()
			tender.AwardedAt = &utc
		}
	}
	if (tender.Summary == "" || len(tender.Summary) < 40) && extracted.Summary != "" {
		tender.Summary = extracted.Summary
	}
	if len(extracted.Categories) > 0 {
		tender.Categories = mergeUniqueFold(tender.Categories, extracted.Categories)
		if len(tender.Categories) > 6 {
			tender.Categories = tender.Categories[:6]
		}
	}
}

// IngestSource runs ingestion for one source ID from the registry, recording
// the run in ingest_runs.
func (p *Pipeline) IngestSource(ctx context.Context, sourceID string) (IngestionStats, error) {
	registry, err := LoadRegistry("internal/ingest/config/sources.yaml")
	if err != nil {
		return IngestionStats{}, fmt.Errorf("failed to load registry: %w", err)
	}

	var config *SourceConfig
	for i := range registry.Sources {
		if registry.Sources[i].ID == sourceID {
			config = &registry.Sources[i]
			break
		}
	}
	if config == nil {
		return IngestionStats{}, fmt.Errorf("source id %q not found in registry", sourceID)
	}

	strategy, err := GlobalStrategyFactory.Get(config.Strategy)
	if err != nil {
		return IngestionStats{}, fmt.Errorf("strategy %q not found for source %q", config.Strategy, sourceID)
	}

	runID, err := p.Store.StartIngestRun(ctx, sourceDomainOf(*config))
	if err != nil {
		log.Printf("Failed to record ingest run for %s: %v", sourceID, err)
	}

	log.Printf("Starting ingestion for source: %s (%s)", config.Name, config.ID)
	stats, runErr := strategy.Run(ctx, *config, p)

	if runID != "" {
		errText := ""
		if runErr != nil {
			errText = runErr.Error()
		}
		if err := p.Store.FinishIngestRun(ctx, runID, stats.Inserted, stats.Updated, stats.Errors, errText); err != nil {
			log.Printf("Failed to finish ingest run %s: %v", runID, err)
		}
	}

	return stats, runErr
}

// IngestAll runs ingestion for every source in the registry. One failing
// source never stops the others.
func (p *Pipeline) IngestAll(ctx context.Context) (map[string]IngestionStats, error) {
	registry, err := LoadRegistry("internal/ingest/config/sources.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	results := make(map[string]IngestionStats)
	for _, src := range registry.Sources {
		stats, err := p.IngestSource(ctx, src.ID)
		if err != nil {
			log.Printf("Error ingesting source %q: %v", src.ID, err)
		}
		results[src.ID] = stats
	}

	return results, nil
}

// RecomputeStatuses re-derives the lifecycle status for every tender in
// keyset-paginated batches. Returns per-status counts and the number of rows
// whose status actually changed.
func (p *Pipeline) RecomputeStatuses(ctx context.Context, batchSize int) (map[string]int, int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	updated := 0
	counts := map[string]int{}
	lastID := ""

	for {
		rows, err := p.DB.Query(ctx, `
			SELECT id::text, title, COALESCE(summary,''), COALESCE(description,''),
			       status::text, COALESCE(status_reason,''), deadline_at, awarded_at
			FROM tenders
			WHERE ($1 = '' OR id::text > $1)
			ORDER BY id::text
			LIMIT $2
		`, lastID, batchSize)
		if err != nil {
			return counts, updated, fmt.Errorf("recompute status query failed: %w", err)
		}

		batchRows := 0
		for rows.Next() {
			batchRows++
			var id string
			var tender models.Tender
			var prevStatus, prevReason string

			if err := rows.Scan(
				&id, &tender.Title, &tender.Summary, &tender.Description,
				&prevStatus, &prevReason, &tender.DeadlineAt, &tender.AwardedAt,
			); err != nil {
				rows.Close()
				return counts, updated, fmt.Errorf("recompute status scan failed: %w", err)
			}

			decision := ComputeStatusDecision(tender, "", time.Now().UTC())

			// The rule engine has no date evidence: ask the LLM before
			// parking the tender in needs_review.
			if decision.Status == "needs_review" && p.AI != nil {
				llmCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
				status, llmErr := ai.AnalyzeStatus(llmCtx, p.AI, tender.Title, tender.Summary)
				cancel()
				if llmErr == nil && status != "" {
					decision = StatusDecision{Status: status, Reason: "llm_classified"}
				} else if llmErr != nil {
					log.Printf("[recompute] LLM classify failed for %s: %v", id, llmErr)
				}
			}

			// Award evidence lives in text that a recompute from stored
			// fields may not resurface; never revert an awarded row here.
			if prevStatus == models.StatusAwarded && decision.Status != models.StatusAwarded {
				decision = StatusDecision{Status: prevStatus, Reason: prevReason}
			}

			counts[decision.Status]++
			lastID = id

			if decision.Status == prevStatus && decision.Reason == prevReason {
				continue
			}
			if err := p.Store.UpdateTenderStatus(ctx, id, decision.Status, decision.Reason); err != nil {
				rows.Close()
				return counts, updated, fmt.Errorf("recompute status update failed: %w", err)
			}
			updated++
		}
		rows.Close()

		if batchRows == 0 {
			break
		}
	}

	return counts, updated, nil
}

func sourceDomainOf(config SourceConfig) string {
	if domain := extractDomain(config.BaseURL); domain != "" {
		return domain
	}
	return config.ID
}

// sanitizeUTF8 removes invalid UTF-8 byte sequences that cause PostgreSQL
// errors.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "")
}

// sanitizeHTML strips scripts and unsafe tags while keeping the formatting
// the dashboard renders.
func sanitizeHTML(s string) string {
	return bluemonday.UGCPolicy().Sanitize(s)
}

func extractDomain(rawURL string) string {
	u := rawURL
	if idx := strings.Index(u, "://"); idx >= 0 {
		u = u[idx+3:]
	}
	if idx := strings.Index(u, "/"); idx >= 0 {
		u = u[:idx]
	}
	return u
}
