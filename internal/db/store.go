package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/javier/tender-desk/internal/models"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type ListParams struct {
	Query          string
	QueryEmbedding []float32
	Source         string
	Purchaser      string
	PurchaserType  []string
	Area           []string
	Country        []string
	Categories     []string
	MinBudget      float64
	MaxBudget      float64
	DeadlineDays   int
	Status         string // "active" (default), "closed", "awarded", "needs_review", or "all"
	SortBy         string // "deadline", "budget_desc", "newest" or relevance by default
	Limit          int
	Offset         int
}

type ListResult struct {
	Tenders []models.Tender `json:"tenders"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

const selectCols = `id, title, summary, external_url, source_domain,
	source_id, tender_number, purchaser, purchaser_type, area, country,
	budget, budget_raw, currency, status::text, status_reason,
	published_at, deadline_at, awarded_at, categories, keywords,
	description, created_at, updated_at`

func scanTender(scan func(dest ...interface{}) error) (models.Tender, error) {
	var t models.Tender
	var summary, sourceID, tenderNumber, purchaser, purchaserType *string
	var area, country, budgetRaw, statusReason, description *string
	var budget *float64

	err := scan(
		&t.ID, &t.Title, &summary, &t.ExternalURL, &t.SourceDomain,
		&sourceID, &tenderNumber, &purchaser, &purchaserType, &area, &country,
		&budget, &budgetRaw, &t.Currency, &t.Status, &statusReason,
		&t.PublishedAt, &t.DeadlineAt, &t.AwardedAt, &t.Categories, &t.Keywords,
		&description, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}

	if summary != nil {
		t.Summary = *summary
	}
	if sourceID != nil {
		t.SourceID = *sourceID
	}
	if tenderNumber != nil {
		t.TenderNumber = *tenderNumber
	}
	if purchaser != nil {
		t.Purchaser = *purchaser
	}
	if purchaserType != nil {
		t.PurchaserType = *purchaserType
	}
	if area != nil {
		t.Area = *area
	}
	if country != nil {
		t.Country = *country
	}
	if budget != nil {
		t.Budget = *budget
	}
	if budgetRaw != nil {
		t.BudgetRaw = *budgetRaw
	}
	if statusReason != nil {
		t.StatusReason = *statusReason
	}
	if description != nil {
		t.Description = *description
	}

	return t, nil
}

func (s *Store) ListTenders(ctx context.Context, params ListParams) (*ListResult, error) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.Query != "" {
		where += fmt.Sprintf(" AND (search_vector @@ plainto_tsquery('spanish', $%d) OR title ILIKE '%%' || $%d || '%%')", argIdx, argIdx)
		args = append(args, params.Query)
		argIdx++
	}
	if params.Source != "" {
		where += fmt.Sprintf(" AND source_domain = $%d", argIdx)
		args = append(args, params.Source)
		argIdx++
	}
	if params.Purchaser != "" {
		where += fmt.Sprintf(" AND purchaser ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, params.Purchaser)
		argIdx++
	}
	if len(params.PurchaserType) > 0 {
		where += fmt.Sprintf(" AND purchaser_type = ANY($%d)", argIdx)
		args = append(args, params.PurchaserType)
		argIdx++
	}
	if len(params.Area) > 0 {
		where += fmt.Sprintf(" AND area = ANY($%d)", argIdx)
		args = append(args, params.Area)
		argIdx++
	}
	if len(params.Country) > 0 {
		where += fmt.Sprintf(" AND country = ANY($%d)", argIdx)
		args = append(args, params.Country)
		argIdx++
	}
	if params.MinBudget > 0 {
		where += fmt.Sprintf(" AND budget >= $%d", argIdx)
		args = append(args, params.MinBudget)
		argIdx++
	}
	if params.MaxBudget > 0 {
		where += fmt.Sprintf(" AND budget <= $%d", argIdx)
		args = append(args, params.MaxBudget)
		argIdx++
	}

	status := params.Status
	if status == "" || status == "open" {
		status = models.StatusActive
	}
	if status == models.StatusActive {
		where += buildActiveTabConstraint()
	} else if status != "all" {
		where += fmt.Sprintf(" AND status::text = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	if params.DeadlineDays > 0 {
		where += fmt.Sprintf(" AND deadline_at IS NOT NULL AND deadline_at >= NOW() AND deadline_at <= NOW() + ($%d * INTERVAL '1 day')", argIdx)
		args = append(args, params.DeadlineDays)
		argIdx++
	}

	if len(params.Categories) > 0 {
		params.Categories = sanitizeStringSlice(params.Categories)
	}
	if len(params.Categories) > 0 {
		where += fmt.Sprintf(" AND categories && $%d", argIdx)
		args = append(args, params.Categories)
		argIdx++
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM tenders " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM tenders %s", selectCols, where)

	switch params.SortBy {
	case "deadline":
		selectSQL += " ORDER BY deadline_at ASC NULLS LAST, published_at DESC NULLS LAST"
	case "budget_desc":
		selectSQL += " ORDER BY budget DESC NULLS LAST"
	case "newest":
		selectSQL += " ORDER BY published_at DESC NULLS LAST, created_at DESC"
	default: // relevance
		if len(params.QueryEmbedding) > 0 {
			vectorArg := argIdx
			queryArg := argIdx + 1
			args = append(args, pgvector.NewVector(params.QueryEmbedding), params.Query)
			argIdx += 2

			selectSQL += fmt.Sprintf(`
				ORDER BY
					CASE WHEN embedding IS NULL THEN 1 ELSE 0 END ASC,
					COALESCE(1 - (embedding <=> $%d), -1) DESC,
					CASE WHEN NULLIF($%d::text, '') IS NULL THEN 0 ELSE ts_rank(search_vector, plainto_tsquery('spanish', $%d::text)) END DESC,
					updated_at DESC NULLS LAST,
					created_at DESC
			`, vectorArg, queryArg, queryArg)
		} else if params.Query != "" {
			queryArg := argIdx
			args = append(args, params.Query)
			argIdx++
			selectSQL += fmt.Sprintf(" ORDER BY ts_rank(search_vector, plainto_tsquery('spanish', $%d::text)) DESC, updated_at DESC NULLS LAST, created_at DESC", queryArg)
		} else {
			selectSQL += " ORDER BY updated_at DESC NULLS LAST, created_at DESC"
		}
	}

	selectSQL += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, selectSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		t, err := scanTender(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		tenders = append(tenders, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if tenders == nil {
		tenders = []models.Tender{}
	}

	return &ListResult{
		Tenders: tenders,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
	}, nil
}

// buildActiveTabConstraint is the default listing filter: active tenders whose
// deadline has not passed, plus active tenders with no known deadline.
func buildActiveTabConstraint() string {
	return " AND status = 'active' AND (deadline_at IS NULL OR deadline_at >= NOW())"
}

func sanitizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return values
	}

	clean := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			clean = append(clean, trimmed)
		}
	}

	return clean
}

func (s *Store) GetTender(ctx context.Context, id string) (*models.Tender, error) {
	sql := fmt.Sprintf("SELECT %s FROM tenders WHERE id = $1", selectCols)
	row := s.pool.QueryRow(ctx, sql, id)

	t, err := scanTender(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	return &t, nil
}

func (s *Store) GetTenders(ctx context.Context, ids []string) ([]models.Tender, error) {
	sql := fmt.Sprintf("SELECT %s FROM tenders WHERE id = ANY($1)", selectCols)
	rows, err := s.pool.Query(ctx, sql, ids)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		t, err := scanTender(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		tenders = append(tenders, t)
	}
	return tenders, rows.Err()
}

func (s *Store) GetTenderBySourceID(ctx context.Context, sourceDomain, sourceID string) (*models.Tender, error) {
	sql := fmt.Sprintf("SELECT %s FROM tenders WHERE source_domain = $1 AND source_id = $2", selectCols)
	row := s.pool.QueryRow(ctx, sql, sourceDomain, sourceID)

	t, err := scanTender(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("not found: %w", err)
	}

	return &t, nil
}

// UpsertTender inserts a tender or refreshes an existing one keyed by
// (source_domain, source_id). A re-scrape never blanks out fields the source
// stopped exposing, and an awarded tender is never flipped back to active by
// a listing page that lacks the award notice. Returns the stored row id and
// whether the row was newly inserted.
func (s *Store) UpsertTender(ctx context.Context, t models.Tender) (string, bool, error) {
	var id string
	var inserted bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tenders (
			title, summary, external_url, source_domain, source_id,
			tender_number, purchaser, purchaser_type, area, country,
			budget, budget_raw, currency, status, status_reason,
			published_at, deadline_at, awarded_at, categories, keywords, description
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
		ON CONFLICT (source_domain, source_id) DO UPDATE SET
			title = EXCLUDED.title,
			summary = COALESCE(EXCLUDED.summary, tenders.summary),
			external_url = EXCLUDED.external_url,
			tender_number = COALESCE(EXCLUDED.tender_number, tenders.tender_number),
			purchaser = COALESCE(EXCLUDED.purchaser, tenders.purchaser),
			purchaser_type = COALESCE(EXCLUDED.purchaser_type, tenders.purchaser_type),
			area = COALESCE(EXCLUDED.area, tenders.area),
			country = COALESCE(EXCLUDED.country, tenders.country),
			budget = COALESCE(EXCLUDED.budget, tenders.budget),
			budget_raw = COALESCE(EXCLUDED.budget_raw, tenders.budget_raw),
			currency = EXCLUDED.currency,
			status = CASE
				WHEN tenders.status = 'awarded' AND EXCLUDED.status IN ('active', 'needs_review') THEN tenders.status
				ELSE EXCLUDED.status
			END,
			status_reason = CASE
				WHEN tenders.status = 'awarded' AND EXCLUDED.status IN ('active', 'needs_review') THEN tenders.status_reason
				ELSE EXCLUDED.status_reason
			END,
			published_at = COALESCE(EXCLUDED.published_at, tenders.published_at),
			deadline_at = COALESCE(EXCLUDED.deadline_at, tenders.deadline_at),
			awarded_at = COALESCE(EXCLUDED.awarded_at, tenders.awarded_at),
			categories = COALESCE(NULLIF(EXCLUDED.categories, '{}'::text[]), tenders.categories),
			keywords = COALESCE(NULLIF(EXCLUDED.keywords, '{}'::text[]), tenders.keywords),
			description = COALESCE(EXCLUDED.description, tenders.description),
			updated_at = NOW()
		RETURNING id, (xmax = 0)
	`,
		t.Title, nullable(t.Summary), t.ExternalURL, t.SourceDomain, nullable(t.SourceID),
		nullable(t.TenderNumber), nullable(t.Purchaser), nullable(t.PurchaserType), nullable(t.Area), nullable(t.Country),
		nullableFloat(t.Budget), nullable(t.BudgetRaw), t.Currency, t.Status, nullable(t.StatusReason),
		t.PublishedAt, t.DeadlineAt, t.AwardedAt, sanitizeStringSlice(t.Categories), sanitizeStringSlice(t.Keywords), nullable(t.Description),
	).Scan(&id, &inserted)
	if err != nil {
		return "", false, fmt.Errorf("upsert failed: %w", err)
	}
	return id, inserted, nil
}

func (s *Store) UpdateTenderStatus(ctx context.Context, id, status, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tenders SET status = $2, status_reason = $3, updated_at = NOW() WHERE id = $1
	`, id, status, reason)
	if err != nil {
		return fmt.Errorf("status update failed: %w", err)
	}
	return nil
}

func (s *Store) UpdateTenderClassification(ctx context.Context, id string, categories, keywords []string, purchaserType string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tenders SET categories = $2, keywords = $3, purchaser_type = COALESCE($4, purchaser_type), updated_at = NOW() WHERE id = $1
	`, id, sanitizeStringSlice(categories), sanitizeStringSlice(keywords), nullable(purchaserType))
	if err != nil {
		return fmt.Errorf("classification update failed: %w", err)
	}
	return nil
}

func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tenders SET embedding = $2, updated_at = NOW() WHERE id = $1
	`, id, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("embedding update failed: %w", err)
	}
	return nil
}

func (s *Store) GetSources(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT DISTINCT source_domain FROM tenders ORDER BY source_domain")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err == nil {
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func (s *Store) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tenders").Scan(&total)
	stats["total"] = total

	var sources int
	s.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT source_domain) FROM tenders").Scan(&sources)
	stats["sources"] = sources

	var withDeadline int
	s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tenders WHERE deadline_at IS NOT NULL AND deadline_at > NOW()").Scan(&withDeadline)
	stats["with_deadline"] = withDeadline

	var analyzed int
	s.pool.QueryRow(ctx, "SELECT COUNT(DISTINCT tender_id) FROM reports").Scan(&analyzed)
	stats["analyzed"] = analyzed

	statusCounts := map[string]int{}
	rows, err := s.pool.Query(ctx, "SELECT status::text, COUNT(*) FROM tenders GROUP BY status")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var status string
			var count int
			if scanErr := rows.Scan(&status, &count); scanErr == nil {
				statusCounts[status] = count
			}
		}
	}
	stats["status_counts"] = statusCounts

	return stats, nil
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func nullableFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}
