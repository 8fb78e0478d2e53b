package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

var budgetNumberRegex = regexp.MustCompile(`\d[\d,'.\s]*\d|\d`)

// budgetLabels mark the figure that is the reference value of the contract,
// as opposed to guarantee amounts or penalty figures on the same page.
var budgetLabels = []string{
	"valor referencial", "valor estimado", "monto referencial",
	"presupuesto", "importe total", "estimated value", "contract value",
}

// parseBudget extracts the tender's reference budget and currency from text.
// When a recognized label precedes a figure, that figure wins; otherwise the
// largest amount found is taken, since schedule numbers and item counts are
// small compared to contract values.
func parseBudget(text, defaultCurrency string) (float64, string) {
	currency := detectCurrency(text, defaultCurrency)

	textLower := strings.ToLower(text)
	for _, label := range budgetLabels {
		idx := strings.Index(textLower, label)
		if idx < 0 {
			continue
		}
		window := text[idx:]
		if len(window) > 120 {
			window = window[:120]
		}
		if m := budgetNumberRegex.FindString(window); m != "" {
			if v, ok := parseAmountToken(m); ok {
				return v, currency
			}
		}
	}

	var best float64
	for _, m := range budgetNumberRegex.FindAllString(text, -1) {
		if v, ok := parseAmountToken(m); ok && v > best {
			best = v
		}
	}
	if best == 0 {
		return 0, ""
	}
	return best, currency
}

// parseAmountToken parses one numeric token, handling thousands separators
// in both conventions: 1,234,567.89 and 1.234.567,89, plus the apostrophe
// grouping seen on Peruvian portals (1'234,567.89).
func parseAmountToken(token string) (float64, bool) {
	token = strings.TrimSpace(token)
	token = strings.ReplaceAll(token, "'", "")
	token = strings.ReplaceAll(token, " ", "")
	if token == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(token, ",")
	lastDot := strings.LastIndex(token, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastDot > lastComma {
			// 1,234,567.89
			token = strings.ReplaceAll(token, ",", "")
		} else {
			// 1.234.567,89
			token = strings.ReplaceAll(token, ".", "")
			token = strings.Replace(token, ",", ".", 1)
		}
	case lastComma >= 0:
		// Decimal comma only when exactly two digits follow, else grouping.
		if len(token)-lastComma-1 == 2 && strings.Count(token, ",") == 1 {
			token = strings.Replace(token, ",", ".", 1)
		} else {
			token = strings.ReplaceAll(token, ",", "")
		}
	case lastDot >= 0:
		if len(token)-lastDot-1 == 3 && strings.Count(token, ".") >= 1 && len(token) > 4 {
			// 1.234.567 style grouping
			token = strings.ReplaceAll(token, ".", "")
		}
	}

	v, err := strconv.ParseFloat(token, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func detectCurrency(text, fallback string) string {
	textLower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "S/") || strings.Contains(textLower, "soles") || strings.Contains(textLower, " pen"):
		return "PEN"
	case strings.Contains(text, "€") || strings.Contains(textLower, "eur"):
		return "EUR"
	case strings.Contains(text, "US$") || strings.Contains(textLower, "usd") || strings.Contains(textLower, "dólar") || strings.Contains(text, "$"):
		return "USD"
	case strings.Contains(text, "£") || strings.Contains(textLower, "gbp"):
		return "GBP"
	}
	if fallback != "" {
		return fallback
	}
	return "PEN"
}
