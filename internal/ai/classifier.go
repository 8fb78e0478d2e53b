package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type ClassificationResult struct {
	Categories    []string `json:"categories"`
	PurchaserType string   `json:"purchaser_type"`
	Keywords      []string `json:"keywords"`
}

// ClassifyTender tags a tender with sector categories and the purchaser
// category used by the economics policy tiers.
func ClassifyTender(ctx context.Context, client *OllamaClient, title, purchaser, summary string) (*ClassificationResult, error) {
	cats := strings.Join(Categories, ", ")
	types := strings.Join(PurchaserTypes, ", ")

	prompt := fmt.Sprintf(`You are an expert public-procurement analyst. Categorize the following tender based on its Title, Purchaser and Summary.

TENDER TITLE: %s
PURCHASER: %s
SUMMARY: %s

Select the most relevant tags from the following EXACT lists. Do not invent new tags.

AVAILABLE CATEGORIES: %s
AVAILABLE PURCHASER TYPES: %s

Return a JSON object with this format:
{
  "categories": ["Category1", "Category2"],
  "purchaser_type": "government",
  "keywords": ["keyword1", "keyword2"]
}

Rules:
1. Select only categories that strongly apply (1 to 3).
2. purchaser_type must be exactly one value from the list; use "other" when unsure.
3. keywords: up to 5 short lowercase terms a bidder would search for.
4. RESPOND ONLY WITH JSON.`, title, purchaser, summary, cats, types)

	resp, err := client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	var result ClassificationResult
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("failed to parse classification json: %w. Response: %s", err, resp)
	}

	// Filter hallucinated tags back to the closed sets.
	result.Categories = filterValid(result.Categories, Categories)
	if !containsFold(PurchaserTypes, result.PurchaserType) {
		result.PurchaserType = "other"
	}

	return &result, nil
}

func filterValid(tags []string, allowed []string) []string {
	valid := make([]string, 0)
	allowedMap := make(map[string]bool)
	for _, a := range allowed {
		allowedMap[a] = true
	}

	for _, t := range tags {
		if allowedMap[t] {
			valid = append(valid, t)
			continue
		}
		for a := range allowedMap {
			if strings.EqualFold(a, t) {
				valid = append(valid, a)
				break
			}
		}
	}
	return valid
}

func containsFold(allowed []string, value string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, value) {
			return true
		}
	}
	return false
}
