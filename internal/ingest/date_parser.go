package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var spanishMonths = map[string]string{
	"enero":      "January",
	"febrero":    "February",
	"marzo":      "March",
	"abril":      "April",
	"mayo":       "May",
	"junio":      "June",
	"julio":      "July",
	"agosto":     "August",
	"septiembre": "September",
	"setiembre":  "September", // common Peruvian spelling
	"octubre":    "October",
	"noviembre":  "November",
	"diciembre":  "December",
}

// parseDateRobust attempts to parse dates in multiple formats and locales.
// Date-only values resolve to end of day so a tender stays active through
// its deadline date.
func parseDateRobust(text string, locales []string) (time.Time, error) {
	text = cleanDateString(text)

	// ISO formats first, most reliable
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return toEndOfDay(t), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", text); err == nil {
		return t, nil
	}

	for _, locale := range locales {
		if strings.HasPrefix(locale, "es") {
			if t := parseSpanishDate(text); !t.IsZero() {
				return toEndOfDay(t), nil
			}
			// Peruvian portals commonly use DD/MM/YYYY
			if t, err := time.Parse("02/01/2006", text); err == nil {
				return toEndOfDay(t), nil
			}
			if t, err := time.Parse("2/1/2006", text); err == nil {
				return toEndOfDay(t), nil
			}
		}
	}

	englishFormats := []string{
		"2 January 2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"01/02/2006",
	}
	for _, format := range englishFormats {
		if t, err := time.Parse(format, text); err == nil {
			return toEndOfDay(t), nil
		}
	}

	if t := parseDateWithRegex(text); !t.IsZero() {
		return toEndOfDay(t), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", text)
}

// toEndOfDay sets the time to 23:59:59 UTC.
func toEndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// spanishDateRegex matches "17 de junio de 2026" and "17 de junio del 2026",
// also with the month loose ("17 junio 2026").
var spanishDateRegex = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(?:de\s+)?(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)\s+(?:de|del)?\s*(20\d{2})\b`)

func parseSpanishDate(text string) time.Time {
	matches := spanishDateRegex.FindStringSubmatch(text)
	if len(matches) != 4 {
		return time.Time{}
	}

	month, ok := spanishMonths[strings.ToLower(matches[2])]
	if !ok {
		return time.Time{}
	}

	t, err := time.Parse("2 January 2006", fmt.Sprintf("%s %s %s", matches[1], month, matches[3]))
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseDateWithRegex extracts dates embedded in surrounding text.
func parseDateWithRegex(text string) time.Time {
	// ISO date: 2026-03-15
	isoRegex := regexp.MustCompile(`\b(20\d{2})-(\d{2})-(\d{2})\b`)
	if matches := isoRegex.FindStringSubmatch(text); len(matches) == 4 {
		if t, err := time.Parse("2006-01-02", matches[0]); err == nil {
			return t
		}
	}

	// DD/MM/YYYY, the dominant format on Latin American portals
	slashRegex := regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(20\d{2})\b`)
	if matches := slashRegex.FindStringSubmatch(text); len(matches) == 4 {
		dateStr := fmt.Sprintf("%s/%s/%s", matches[1], matches[2], matches[3])
		if t, err := time.Parse("2/1/2006", dateStr); err == nil {
			return t
		}
	}

	if t := parseSpanishDate(text); !t.IsZero() {
		return t
	}

	// English month names: March 15, 2026 or 15 March 2026
	monthRegex := regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(20\d{2})\b`)
	if matches := monthRegex.FindStringSubmatch(text); len(matches) == 4 {
		dateStr := fmt.Sprintf("%s %s %s", matches[1], matches[2], matches[3])
		if t, err := time.Parse("January 2, 2006", dateStr); err == nil {
			return t
		}
	}

	return time.Time{}
}

// cleanDateString strips the schedule labels tender portals prepend to dates.
func cleanDateString(s string) string {
	prefixes := []string{
		"Fecha límite:", "Fecha de presentación:", "Presentación de ofertas:",
		"Fecha de publicación:", "Cierre:", "Otorgamiento de la buena pro:",
		"Deadline:", "Closing date:", "Submission date:",
	}
	sLower := strings.ToLower(s)
	for _, p := range prefixes {
		if idx := strings.Index(sLower, strings.ToLower(p)); idx != -1 {
			s = s[idx+len(p):]
			sLower = sLower[idx+len(p):]
		}
	}
	return strings.TrimSpace(s)
}

// parseTimestampCandidate parses machine-readable date strings produced by
// APIs or the LLM extractor.
func parseTimestampCandidate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
