package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/javier/tender-desk/internal/models"
)

// OCDSStrategy consumes an Open Contracting Data Standard releases endpoint.
// Each release carries a tender block with typed dates and values, so no
// text parsing is needed.
type OCDSStrategy struct{}

type ocdsReleasePackage struct {
	Releases []ocdsRelease `json:"releases"`
	Links    struct {
		Next string `json:"next"`
	} `json:"links"`
}

type ocdsRelease struct {
	OCID   string   `json:"ocid"`
	Date   string   `json:"date"`
	Tag    []string `json:"tag"`
	Tender struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Description  string `json:"description"`
		Status       string `json:"status"` // "active", "complete", "cancelled", "unsuccessful"
		MainCategory string `json:"mainProcurementCategory"`
		Value        struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"value"`
		TenderPeriod struct {
			EndDate string `json:"endDate"`
		} `json:"tenderPeriod"`
		ProcuringEntity struct {
			Name string `json:"name"`
		} `json:"procuringEntity"`
	} `json:"tender"`
	Awards []struct {
		Date string `json:"date"`
	} `json:"awards"`
}

func (s *OCDSStrategy) Run(ctx context.Context, config SourceConfig, p *Pipeline) (IngestionStats, error) {
	stats := IngestionStats{}

	client := &http.Client{Timeout: 60 * time.Second}
	if config.Fetch.TimeoutSeconds > 0 {
		client.Timeout = time.Duration(config.Fetch.TimeoutSeconds) * time.Second
	}

	sourceDomain := config.BaseURL
	if u, err := url.Parse(config.BaseURL); err == nil {
		sourceDomain = u.Host
	}

	pageURL := config.BaseURL
	for page := 0; pageURL != "" && page < 20; page++ {
		req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
		if err != nil {
			return stats, fmt.Errorf("create request error: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+config.APIKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return stats, fmt.Errorf("api request failed: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return stats, fmt.Errorf("OCDS API returned %d: %s", resp.StatusCode, string(body))
		}

		var pkg ocdsReleasePackage
		err = json.NewDecoder(resp.Body).Decode(&pkg)
		resp.Body.Close()
		if err != nil {
			return stats, fmt.Errorf("decode error: %w", err)
		}

		for _, release := range pkg.Releases {
			tender := s.mapRelease(release, sourceDomain, config.Country)
			if tender.Title == "" || tender.SourceID == "" {
				continue
			}
			stats.TotalFound++

			inserted, err := p.SaveTender(ctx, tender, release.Tender.Status)
			if err != nil {
				log.Printf("[%s] Failed to save %q: %v", config.ID, tender.Title, err)
				stats.Errors++
			} else if inserted {
				stats.Inserted++
			} else {
				stats.Updated++
			}
		}

		log.Printf("[%s] Page %d: %d found, %d inserted, %d updated", config.ID, page+1, stats.TotalFound, stats.Inserted, stats.Updated)

		if len(pkg.Releases) == 0 || pkg.Links.Next == pageURL {
			break
		}
		pageURL = pkg.Links.Next
	}

	return stats, nil
}

func (s *OCDSStrategy) mapRelease(release ocdsRelease, sourceDomain, country string) models.Tender {
	t := models.Tender{
		Title:        cleanText(release.Tender.Title),
		Summary:      TruncateText(cleanText(release.Tender.Description), 280),
		Description:  release.Tender.Description,
		SourceDomain: sourceDomain,
		SourceID:     release.OCID,
		TenderNumber: release.Tender.ID,
		Purchaser:    cleanText(release.Tender.ProcuringEntity.Name),
		Country:      country,
		Budget:       release.Tender.Value.Amount,
		Currency:     release.Tender.Value.Currency,
		ExternalURL:  fmt.Sprintf("https://%s/%s", sourceDomain, release.OCID),
	}
	if release.Tender.MainCategory != "" {
		t.Categories = []string{release.Tender.MainCategory}
	}
	if t.Currency == "" {
		t.Currency = "PEN"
	}

	if dt, ok := parseTimestampCandidate(release.Tender.TenderPeriod.EndDate); ok {
		utc := dt.UTC()
		t.DeadlineAt = &utc
	}
	if dt, ok := parseTimestampCandidate(release.Date); ok {
		utc := dt.UTC()
		t.PublishedAt = &utc
	}
	for _, award := range release.Awards {
		if dt, ok := parseTimestampCandidate(award.Date); ok {
			utc := dt.UTC()
			t.AwardedAt = &utc
			break
		}
	}

	rawStatus := strings.ToLower(release.Tender.Status)
	decision := ComputeStatusDecision(t, ocdsStatusToRaw(rawStatus), time.Now().UTC())
	t.Status = decision.Status
	t.StatusReason = decision.Reason

	return t
}

// ocdsStatusToRaw maps OCDS tender statuses onto the raw-status vocabulary
// the rule engine understands.
func ocdsStatusToRaw(status string) string {
	switch status {
	case "active", "planning":
		return "open"
	case "cancelled", "unsuccessful", "withdrawn":
		return "cancelled"
	case "complete":
		return "closed"
	}
	return status
}
