package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AnalyzeStatus asks the LLM whether a tender is still open for offers. Used
// for ambiguous notices where no deadline or award evidence was found.
func AnalyzeStatus(ctx context.Context, client *OllamaClient, title, summary string) (string, error) {
	prompt := fmt.Sprintf(`You are an expert public-procurement analyst. Determine the status of this tender based on the text below.

TENDER TITLE: %s
TENDER SUMMARY: %s

Is this tender currently open for offers?
- If the text announces a winner, "buena pro", "adjudicado", "awarded" or similar, return "awarded".
- If the text says "closed", "desierto", "cancelado", "finalizado", "no longer accepting" or similar, return "closed".
- If the text mentions only a past year (e.g. 2020, 2023) and no future date, return "closed".
- If it seems active or open for offers, return "active".

Return ONLY a JSON object:
{
  "status": "active" | "closed" | "awarded",
  "reason": "brief explanation"
}
`, title, summary)

	resp, err := client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return "active", err // Default to active on error to be safe
	}

	var result struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}

	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return "active", fmt.Errorf("failed to parse status json: %w", err)
	}

	status := strings.ToLower(strings.TrimSpace(result.Status))
	switch status {
	case "awarded", "adjudicado", "funded":
		return "awarded", nil
	case "closed", "expired", "desierto", "cancelado":
		return "closed", nil
	case "active", "open", "posted":
		return "active", nil
	}

	return "active", nil
}
