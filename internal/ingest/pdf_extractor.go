package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"time"

	rpdf "rsc.io/pdf"
)

// submissionLabelHints mark the schedule row that is the offer deadline, as
// opposed to consultation rounds or the award milestone.
var submissionLabelHints = []string{
	"presentación de ofertas", "presentacion de ofertas", "fecha límite",
	"fecha limite", "cierre de postulaciones", "submission of offers",
	"deadline",
}

var dateSnippetRegexes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{1,2}/\d{1,2}/20\d{2}\b`),
	regexp.MustCompile(`(?i)\b20\d{2}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+de\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre)\s+(de|del)\s+20\d{2}\b`),
}

// extractPDFText pulls the text fragments out of a PDF document. The parser
// panics on malformed files, so recover and report those as errors.
func extractPDFText(content []byte) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("pdf parser panic: %v", recovered)
			text = ""
		}
	}()

	reader, err := rpdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		for _, fragment := range page.Content().Text {
			builder.WriteString(fragment.S)
			builder.WriteString(" ")
		}
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// scheduleDate is one dated row found in schedule text, with the snippet it
// was found in so the submission deadline can be told apart from other
// milestones.
type scheduleDate struct {
	At      time.Time
	Snippet string
}

// parseScheduleDates finds every dated entry in free text. Date-only values
// are anchored to end of day in Lima time for gob.pe sources, UTC otherwise.
func parseScheduleDates(text, sourceURL string) []scheduleDate {
	found := make(map[string]scheduleDate)

	for _, expr := range dateSnippetRegexes {
		for _, loc := range expr.FindAllStringIndex(text, -1) {
			token := strings.TrimSpace(text[loc[0]:loc[1]])
			parsed, err := parseDateRobust(token, []string{"es", "en"})
			if err != nil {
				continue
			}
			parsed = anchorDateBySource(parsed, sourceURL)

			start := loc[0] - 80
			if start < 0 {
				start = 0
			}
			end := loc[1] + 80
			if end > len(text) {
				end = len(text)
			}
			snippet := cleanText(text[start:end])

			iso := parsed.UTC().Format(time.RFC3339)
			found[iso] = scheduleDate{At: parsed.UTC(), Snippet: snippet}
		}
	}

	if len(found) == 0 {
		return nil
	}

	ordered := make([]scheduleDate, 0, len(found))
	for _, d := range found {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].At.Before(ordered[j].At)
	})
	return ordered
}

// pickSubmissionDeadline returns the earliest future date whose snippet looks
// like the offer-submission row, falling back to the earliest future date and
// then to the latest date overall.
func pickSubmissionDeadline(dates []scheduleDate, now time.Time) *scheduleDate {
	if len(dates) == 0 {
		return nil
	}

	var labeled *scheduleDate
	for i := range dates {
		if !dates[i].At.After(now) {
			continue
		}
		snippetLower := strings.ToLower(dates[i].Snippet)
		for _, hint := range submissionLabelHints {
			if strings.Contains(snippetLower, hint) {
				if labeled == nil || dates[i].At.Before(labeled.At) {
					labeled = &dates[i]
				}
				break
			}
		}
	}
	if labeled != nil {
		return labeled
	}

	for i := range dates {
		if dates[i].At.After(now) {
			return &dates[i]
		}
	}
	return &dates[len(dates)-1]
}

func anchorDateBySource(parsed time.Time, sourceURL string) time.Time {
	loc := time.UTC
	if strings.Contains(strings.ToLower(sourceURL), "gob.pe") {
		if lima, err := time.LoadLocation("America/Lima"); err == nil {
			loc = lima
		}
	}
	localized := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, 0, loc)
	return localized.UTC()
}

// extractScheduleFromPDF downloads a PDF annex (the bases or cronograma
// document) and returns the dated schedule entries found in it.
func extractScheduleFromPDF(ctx context.Context, fetcher Fetcher, pdfURL string) ([]scheduleDate, error) {
	doc, err := fetcher.Fetch(ctx, pdfURL)
	if err != nil {
		return nil, err
	}
	defer doc.Body.Close()

	content, err := io.ReadAll(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("pdf read failed: %w", err)
	}

	text, err := extractPDFText(content)
	if err != nil {
		return nil, fmt.Errorf("pdf text extraction failed: %w", err)
	}

	return parseScheduleDates(text, pdfURL), nil
}
