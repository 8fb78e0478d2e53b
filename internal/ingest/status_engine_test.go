package ingest

import (
	"testing"
	"time"

	"github.com/javier/tender-desk/internal/models"
)

func TestComputeStatusDecision_AwardNoticeWins(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	future := now.Add(72 * time.Hour)

	decision := ComputeStatusDecision(models.Tender{
		Title:      "LP-SM-3-2026 - Buena pro otorgada al Consorcio Lima Digital",
		Summary:    "Se otorgó la buena pro del proceso de selección",
		DeadlineAt: &future,
	}, "", now)

	if decision.Status != models.StatusAwarded {
		t.Fatalf("expected awarded, got %s", decision.Status)
	}
	if decision.Reason != "award_published" {
		t.Fatalf("expected reason award_published, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_AwardedAtSetWins(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	awarded := now.Add(-24 * time.Hour)

	decision := ComputeStatusDecision(models.Tender{AwardedAt: &awarded}, "", now)
	if decision.Status != models.StatusAwarded {
		t.Fatalf("expected awarded, got %s", decision.Status)
	}
}

func TestComputeStatusDecision_ScheduleMentionIsNotAward(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	future := now.Add(72 * time.Hour)

	// Schedule tables on open calls list the award as a future milestone.
	decision := ComputeStatusDecision(models.Tender{
		Title:       "CP-12-2026 Servicio de mesa de ayuda",
		Description: "<table><tr><td>Otorgamiento de la buena pro</td><td>20/03/2026</td></tr></table>",
		DeadlineAt:  &future,
	}, "", now)

	if decision.Status != models.StatusActive {
		t.Fatalf("expected active, got %s", decision.Status)
	}
	if decision.Reason != "deadline_open" {
		t.Fatalf("expected reason deadline_open, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_PastDeadlineClosed(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)

	decision := ComputeStatusDecision(models.Tender{DeadlineAt: &past}, "", now)
	if decision.Status != models.StatusClosed {
		t.Fatalf("expected closed, got %s", decision.Status)
	}
	if decision.Reason != "deadline_passed" {
		t.Fatalf("expected reason deadline_passed, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_SourceClosedWithFutureDeadlineNeedsReview(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	future := now.Add(72 * time.Hour)

	decision := ComputeStatusDecision(models.Tender{DeadlineAt: &future}, "desierto", now)
	if decision.Status != "needs_review" {
		t.Fatalf("expected needs_review, got %s", decision.Status)
	}
	if decision.Reason != "inconsistent_dates" {
		t.Fatalf("expected reason inconsistent_dates, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_SourceCancelledClosed(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.Tender{}, "proceso cancelado", now)
	if decision.Status != models.StatusClosed {
		t.Fatalf("expected closed, got %s", decision.Status)
	}
	if decision.Reason != "source_closed" {
		t.Fatalf("expected reason source_closed, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_OpenWithoutDeadlineNeedsReview(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.Tender{}, "convocatoria vigente", now)
	if decision.Status != "needs_review" {
		t.Fatalf("expected needs_review, got %s", decision.Status)
	}
	if decision.Reason != "open_without_deadline" {
		t.Fatalf("expected reason open_without_deadline, got %s", decision.Reason)
	}
}

func TestComputeStatusDecision_NoEvidenceNeedsReview(t *testing.T) {
	now := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)

	decision := ComputeStatusDecision(models.Tender{Title: "Adquisición de equipos"}, "", now)
	if decision.Status != "needs_review" {
		t.Fatalf("expected needs_review, got %s", decision.Status)
	}
	if decision.Reason != "missing_deadline" {
		t.Fatalf("expected reason missing_deadline, got %s", decision.Reason)
	}
}
