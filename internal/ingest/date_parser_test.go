package ingest

import (
	"testing"
	"time"
)

func TestParseDateRobust_SpanishLongForm(t *testing.T) {
	got, err := parseDateRobust("17 de junio del 2026", []string{"es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 6, 17, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestParseDateRobust_PeruvianSetiembre(t *testing.T) {
	got, err := parseDateRobust("3 de setiembre de 2026", []string{"es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Month() != time.September || got.Day() != 3 {
		t.Fatalf("expected 3 September, got %s", got)
	}
}

func TestParseDateRobust_DayMonthSlash(t *testing.T) {
	got, err := parseDateRobust("05/03/2026", []string{"es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// DD/MM for Spanish locales: 5 March, not 3 May
	if got.Month() != time.March || got.Day() != 5 {
		t.Fatalf("expected 5 March 2026, got %s", got)
	}
}

func TestParseDateRobust_LabeledDeadline(t *testing.T) {
	got, err := parseDateRobust("Fecha límite: 2026-04-10", []string{"es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 4, 10, 23, 59, 59, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestParseDateRobust_EmbeddedInSentence(t *testing.T) {
	got, err := parseDateRobust("La presentación de ofertas vence el 20 de marzo de 2026 a las 17:00", []string{"es"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 20 {
		t.Fatalf("expected 20 March 2026, got %s", got)
	}
}

func TestParseDateRobust_Unparseable(t *testing.T) {
	if _, err := parseDateRobust("según cronograma", []string{"es"}); err == nil {
		t.Fatal("expected error for unparseable date")
	}
}

func TestParseTimestampCandidate(t *testing.T) {
	if _, ok := parseTimestampCandidate(""); ok {
		t.Fatal("empty string must not parse")
	}
	got, ok := parseTimestampCandidate("2026-03-15T10:00:00Z")
	if !ok {
		t.Fatal("RFC3339 must parse")
	}
	if got.Hour() != 10 {
		t.Fatalf("expected hour 10, got %d", got.Hour())
	}
}
