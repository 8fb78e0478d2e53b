package ingest

import (
	"testing"

	"github.com/javier/tender-desk/internal/models"
)

func TestFromRaw_ParsesBudgetAndDeadline(t *testing.T) {
	raw := RawNotice{
		Title:        "  Adquisición   de licencias de software  ",
		ExternalURL:  "https://portal.seace.gob.pe/ficha/123",
		SourceDomain: "portal.seace.gob.pe",
		SourceID:     "abc123",
		Purchaser:    "Ministerio de Educación",
		RawBudget:    "Valor referencial: S/ 850,000.00",
		RawDeadline:  "15 de diciembre de 2030",
		Extra:        map[string]string{"date_locales": "es"},
	}

	tender := FromRaw(raw)

	if tender.Title != "Adquisición de licencias de software" {
		t.Fatalf("title not normalized: %q", tender.Title)
	}
	if tender.Budget != 850000 {
		t.Fatalf("expected budget 850000, got %f", tender.Budget)
	}
	if tender.Currency != "PEN" {
		t.Fatalf("expected PEN, got %s", tender.Currency)
	}
	if tender.DeadlineAt == nil {
		t.Fatal("expected deadline to parse")
	}
	if tender.DeadlineAt.Year() != 2030 || tender.DeadlineAt.Day() != 15 {
		t.Fatalf("unexpected deadline: %s", tender.DeadlineAt)
	}
	if tender.Status != models.StatusActive {
		t.Fatalf("future deadline should be active, got %s", tender.Status)
	}
}

func TestFromRaw_ISOTakesPrecedenceOverRawText(t *testing.T) {
	raw := RawNotice{
		Title:        "Servicio de conectividad",
		SourceDomain: "portal.seace.gob.pe",
		SourceID:     "def456",
		DeadlineISO:  "2030-06-01T23:59:59Z",
		RawDeadline:  "10 de enero de 2029",
	}

	tender := FromRaw(raw)
	if tender.DeadlineAt == nil || tender.DeadlineAt.Year() != 2030 {
		t.Fatalf("ISO deadline should win, got %v", tender.DeadlineAt)
	}
}

func TestFromRaw_AwardPageBecomesAwarded(t *testing.T) {
	raw := RawNotice{
		Title:        "Resultado del proceso",
		SourceDomain: "portal.seace.gob.pe",
		SourceID:     "ghi789",
		IsAwardPage:  true,
	}

	tender := FromRaw(raw)
	if tender.Status != models.StatusAwarded {
		t.Fatalf("expected awarded, got %s", tender.Status)
	}
}

func TestFromRaw_DefaultCurrency(t *testing.T) {
	tender := FromRaw(RawNotice{Title: "X", SourceDomain: "d", SourceID: "s"})
	if tender.Currency != "PEN" {
		t.Fatalf("expected PEN default, got %s", tender.Currency)
	}
}

func TestMergeUniqueFold(t *testing.T) {
	got := mergeUniqueFold([]string{"Telecomunicaciones"}, []string{"telecomunicaciones", "", "Cybersecurity"})
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
	if got[1] != "Cybersecurity" {
		t.Fatalf("expected Cybersecurity appended, got %v", got)
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("abcdef", 10); got != "abcdef" {
		t.Fatalf("short text must pass through, got %q", got)
	}
	if got := TruncateText("abcdefghij", 8); got != "abcde..." {
		t.Fatalf("expected abcde..., got %q", got)
	}
}

func TestHTMLToText(t *testing.T) {
	got := HTMLToText("<p>Servicio  de <b>mesa</b>\nde ayuda</p>")
	if got != "Servicio de mesa de ayuda" {
		t.Fatalf("unexpected text: %q", got)
	}
}
