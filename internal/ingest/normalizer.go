package ingest

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/javier/tender-desk/internal/models"
)

// cleanText collapses runs of whitespace into single spaces and trims.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TruncateText cuts a string to max length, appending ellipsis if truncated.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return text[:maxLen-3] + "..."
	}
	return text[:maxLen]
}

// HTMLToText converts HTML to plain text, collapsing whitespace.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return cleanText(doc.Text())
}

// mergeUniqueFold merges items into dst, dropping blanks and case-insensitive
// duplicates while keeping first-seen order.
func mergeUniqueFold(dst []string, items []string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		k := strings.ToLower(strings.TrimSpace(v))
		if k != "" {
			seen[k] = struct{}{}
		}
	}
	for _, v := range items {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		dst = append(dst, v)
		seen[k] = struct{}{}
	}
	return dst
}

// FromRaw converts a RawNotice into a canonical tender, parsing the Raw*
// text fields into typed values.
func FromRaw(raw RawNotice) models.Tender {
	t := models.Tender{
		Title:        cleanText(raw.Title),
		ExternalURL:  raw.ExternalURL,
		SourceDomain: raw.SourceDomain,
		SourceID:     raw.SourceID,
		TenderNumber: cleanText(raw.TenderNumber),
		Purchaser:    cleanText(raw.Purchaser),
		Area:         cleanText(raw.Area),
		Country:      cleanText(raw.Country),
		Description:  raw.Description,
		BudgetRaw:    cleanText(raw.RawBudget),
		Categories:   mergeUniqueFold(nil, raw.Categories),
	}

	locales := []string{"es", "en"}
	if locs, ok := raw.Extra["date_locales"]; ok && locs != "" {
		locales = strings.Split(locs, ",")
	}

	if raw.DeadlineISO != "" {
		if dt, ok := parseTimestampCandidate(raw.DeadlineISO); ok {
			utc := dt.UTC()
			t.DeadlineAt = &utc
		}
	}
	if t.DeadlineAt == nil && raw.RawDeadline != "" {
		if dt, err := parseDateRobust(raw.RawDeadline, locales); err == nil {
			t.DeadlineAt = &dt
		}
	}
	if raw.PublishedISO != "" {
		if dt, ok := parseTimestampCandidate(raw.PublishedISO); ok {
			utc := dt.UTC()
			t.PublishedAt = &utc
		}
	}
	if raw.AwardedISO != "" {
		if dt, ok := parseTimestampCandidate(raw.AwardedISO); ok {
			utc := dt.UTC()
			t.AwardedAt = &utc
		}
	}

	if raw.RawBudget != "" {
		budget, currency := parseBudget(raw.RawBudget, raw.RawCurrency)
		t.Budget = budget
		t.Currency = currency
	}
	if t.Currency == "" {
		t.Currency = raw.RawCurrency
	}
	if t.Currency == "" {
		t.Currency = "PEN"
	}

	rawStatus := raw.RawStatus
	if raw.IsAwardPage && rawStatus == "" {
		rawStatus = "adjudicado"
	}
	decision := ComputeStatusDecision(t, rawStatus, time.Now().UTC())
	t.Status = decision.Status
	t.StatusReason = decision.Reason

	return t
}
