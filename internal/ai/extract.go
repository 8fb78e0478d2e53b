package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// ExtractedData is the structured tender payload the LLM pulls out of a
// crawled notice page.
type ExtractedData struct {
	TenderNumber    string   `json:"tender_number"`
	Purchaser       string   `json:"purchaser"`
	DeadlineText    string   `json:"deadline_text"`
	DeadlineISO     string   `json:"deadline_iso"`
	PublishedISO    string   `json:"published_iso"`
	AwardedISO      string   `json:"awarded_iso"`
	SourceStatusRaw string   `json:"source_status_raw"`
	IsAwardPage     bool     `json:"is_award_page"`
	Budget          float64  `json:"budget"`
	Currency        string   `json:"currency"`
	Area            string   `json:"area"`
	Categories      []string `json:"categories"`
	Summary         string   `json:"summary"`
}

// ExtractTenderData uses the LLM to extract structured data from a notice
// page. JSON mode is tried first; on parse failure the prompt is retried in
// text mode and the first balanced JSON object is pulled out of the reply.
func (c *OllamaClient) ExtractTenderData(ctx context.Context, title, url, text string) (*ExtractedData, error) {
	prompt := fmt.Sprintf(`You are an expert public-procurement analyst. Extract key information from the following tender notice into JSON format.

Input:
Title: %s
URL: %s
Text:
%s

Instructions:
1. Extract the tender/process number into tender_number when present.
2. Extract the purchasing entity name into purchaser.
3. Extract the offer deadline as deadline_iso (ISO 8601 YYYY-MM-DD) and the raw text into deadline_text.
4. Extract the publication date as published_iso when present.
5. Extract source_status_raw exactly as seen in the source (examples: "convocatoria vigente", "adjudicado", "desierto", "closed").
6. Set is_award_page=true if the page announces a winner or award results, and fill awarded_iso when the award date is present.
7. Extract the reference BUDGET as a plain number and the currency as a 3-letter ISO code (e.g. PEN, USD, EUR).
8. Extract the geographic area (region or city) into area.
9. Summary: write a 1-2 sentence neutral summary.
10. Categories: list 1-3 sector tags (e.g. "Software Development", "Infrastructure & Civil Works").

JSON Schema:
{
	"tender_number": "string or null",
	"purchaser": "string or null",
	"deadline_text": "string or null",
	"deadline_iso": "YYYY-MM-DD or null",
	"published_iso": "YYYY-MM-DD or null",
	"awarded_iso": "YYYY-MM-DD or null",
	"source_status_raw": "string or null",
	"is_award_page": boolean,
	"budget": number,
	"currency": "3-letter ISO code (e.g. PEN, USD) or null",
	"area": "string or null",
	"categories": ["string"],
	"summary": "string"
}

Respond ONLY with the JSON object.`, title, url, text)

	resp, err := c.GenerateCompletion(ctx, prompt, true)
	if err == nil {
		if data, parseErr := parseLLMResponse(resp); parseErr == nil {
			return data, nil
		} else {
			log.Printf("JSON mode failed parsing: %v. Retrying with text mode...", parseErr)
		}
	} else {
		log.Printf("JSON mode generation failed: %v. Retrying with text mode...", err)
	}

	resp, err = c.GenerateCompletion(ctx, prompt, false)
	if err != nil {
		return nil, err
	}

	data, err := parseLLMResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse LLM JSON after retry: %w (response: %s)", err, resp)
	}

	return data, nil
}

func parseLLMResponse(resp string) (*ExtractedData, error) {
	// Models sometimes wrap the payload in markdown fences even in JSON mode.
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	var data ExtractedData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
