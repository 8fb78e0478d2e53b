package ingest

import (
	"strings"
	"time"

	"github.com/javier/tender-desk/internal/models"
)

type StatusDecision struct {
	Status string
	Reason string
}

// awardKeywords are phrases that indicate the contract was already awarded.
// Matched against title, summary, description and the raw source status,
// never against URLs: portal URLs routinely contain "adjudicaciones" for
// pages that are still open calls.
var awardKeywords = []string{
	// Bare "buena pro" is excluded: schedule tables list "otorgamiento de la
	// buena pro" as a future milestone on still-open calls.
	"buena pro otorgada",
	"buena pro consentida",
	"otorgó la buena pro",
	"adjudicado",
	"adjudicada",
	"contrato suscrito",
	"ganador de la licitación",
	"awarded to",
	"contract awarded",
	"winner announced",
}

var closedKeywords = []string{
	"desierto", "desierta", "cancelado", "cancelada", "nulo", "nulidad",
	"cerrad", "finaliz", "retirado", "cancelled", "closed", "no longer accepting",
}

var openKeywords = []string{
	"convocatoria", "vigente", "abierta", "publicado", "en curso",
	"open", "active", "posted",
}

// ComputeStatusDecision derives the lifecycle status of a tender from its
// dates, text, and the raw status string the source exposed. Source text is
// advisory; dates are authoritative except for award evidence, which always
// wins because award notices often stay up past the original deadline.
func ComputeStatusDecision(t models.Tender, rawStatus string, now time.Time) StatusDecision {
	now = now.UTC()

	if t.AwardedAt != nil || detectAwardNotice(t, rawStatus) {
		return StatusDecision{Status: models.StatusAwarded, Reason: "award_published"}
	}

	mapped := mapRawStatus(rawStatus)

	if mapped == "closed" {
		if t.DeadlineAt != nil && t.DeadlineAt.After(now) {
			return StatusDecision{Status: "needs_review", Reason: "inconsistent_dates"}
		}
		return StatusDecision{Status: models.StatusClosed, Reason: "source_closed"}
	}

	if t.DeadlineAt != nil {
		if t.DeadlineAt.After(now) {
			return StatusDecision{Status: models.StatusActive, Reason: "deadline_open"}
		}
		return StatusDecision{Status: models.StatusClosed, Reason: "deadline_passed"}
	}

	if mapped == "open" {
		return StatusDecision{Status: "needs_review", Reason: "open_without_deadline"}
	}

	return StatusDecision{Status: "needs_review", Reason: "missing_deadline"}
}

func detectAwardNotice(t models.Tender, rawStatus string) bool {
	text := strings.ToLower(strings.Join([]string{
		t.Title,
		t.Summary,
		HTMLToText(t.Description),
		rawStatus,
	}, " \n "))

	for _, keyword := range awardKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func mapRawStatus(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}

	for _, hint := range awardKeywords {
		if strings.Contains(raw, hint) {
			return "awarded"
		}
	}
	for _, hint := range closedKeywords {
		if strings.Contains(raw, hint) {
			return "closed"
		}
	}
	for _, hint := range openKeywords {
		if strings.Contains(raw, hint) {
			return "open"
		}
	}
	return ""
}
