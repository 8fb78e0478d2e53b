package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// HTMLGenericStrategy scrapes tender listings described by CSS selectors in
// sources.yaml. List pages yield one RawNotice per row; detail pages fill in
// the budget, schedule, and full description.
type HTMLGenericStrategy struct{}

func (s *HTMLGenericStrategy) Run(ctx context.Context, config SourceConfig, p *Pipeline) (IngestionStats, error) {
	stats := IngestionStats{}

	maxPages := config.MaxPages
	if maxPages == 0 {
		maxPages = 1
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("invalid base URL: %w", err)
	}

	sel := config.Selectors
	if sel.Container == "" {
		return stats, fmt.Errorf("selector 'container' is required for html_generic strategy")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsedURL.Host),
		colly.UserAgent(defaultUserAgent),
		colly.DetectCharset(),
	)

	delay := 1 * time.Second
	if config.Fetch.RateLimitRPS > 0 {
		delay = time.Duration(float64(time.Second) / config.Fetch.RateLimitRPS)
	}
	collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       delay,
		RandomDelay: delay / 2,
	})

	timeout := 30 * time.Second
	if config.Fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(config.Fetch.TimeoutSeconds) * time.Second
	}
	collector.SetRequestTimeout(timeout)

	detailCollector := collector.Clone()

	visitedURLs := make(map[string]bool)
	pageCount := 0
	var nextPageURL string

	collector.OnHTML(sel.Container, func(e *colly.HTMLElement) {
		title := strings.TrimSpace(e.ChildText(sel.Title))

		linkAttr := sel.LinkAttr
		if linkAttr == "" {
			linkAttr = "href"
		}
		var link string
		if sel.Link == "" || sel.Link == "." {
			link = strings.TrimSpace(e.Attr(linkAttr))
		} else {
			link = strings.TrimSpace(e.ChildAttr(sel.Link, linkAttr))
		}

		if title == "" || link == "" {
			return
		}

		canonicalURL := CanonicalizeURL(e.Request.AbsoluteURL(link))

		// Stable SourceID from the canonical detail URL
		hash := sha1.Sum([]byte(canonicalURL))
		sourceID := hex.EncodeToString(hash[:])

		raw := RawNotice{
			Title:        title,
			ExternalURL:  canonicalURL,
			SourceDomain: parsedURL.Host,
			SourceID:     sourceID,
			Country:      config.Country,
			Extra:        make(map[string]string),
		}
		if sel.Purchaser != "" {
			raw.Purchaser = strings.TrimSpace(e.ChildText(sel.Purchaser))
		}
		if sel.Content != "" {
			raw.Description = strings.TrimSpace(e.ChildText(sel.Content))
		}
		if len(config.Detail.Parse.DateLocales) > 0 {
			raw.Extra["date_locales"] = strings.Join(config.Detail.Parse.DateLocales, ",")
		}
		if config.Detail.Parse.CurrencyDefault != "" {
			raw.RawCurrency = config.Detail.Parse.CurrencyDefault
		}

		stats.TotalFound++

		if config.Detail.Enabled {
			if err := s.enrichNotice(ctx, &raw, config.Detail, detailCollector, p); err != nil {
				log.Printf("[%s] Detail fetch failed for %s: %v", config.ID, raw.ExternalURL, err)
			}
		}

		inserted, err := p.SaveRaw(ctx, raw)
		if err != nil {
			log.Printf("[%s] Failed to save %q: %v", config.ID, title, err)
			stats.Errors++
		} else if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	})

	if config.Pagination.Next != "" {
		collector.OnHTML(config.Pagination.Next, func(e *colly.HTMLElement) {
			nextPageURL = e.Request.AbsoluteURL(e.Attr("href"))
		})
	}

	collector.OnRequest(func(r *colly.Request) {
		log.Printf("[%s] Visiting: %s", config.ID, r.URL.String())
	})
	collector.OnError(func(r *colly.Response, err error) {
		log.Printf("[%s] Error fetching %s: %v", config.ID, r.Request.URL, err)
		stats.Errors++
	})

	currentURL := config.BaseURL
	for pageCount < maxPages {
		canonPage := CanonicalizeURL(currentURL)
		if visitedURLs[canonPage] {
			log.Printf("[%s] Pagination cycle detected at %s. Stopping.", config.ID, canonPage)
			break
		}
		visitedURLs[canonPage] = true
		pageCount++

		nextPageURL = ""
		if err := collector.Visit(currentURL); err != nil {
			log.Printf("[%s] Fetch error on page %d: %v", config.ID, pageCount, err)
			break
		}
		collector.Wait()

		if nextPageURL == "" || config.Pagination.Next == "" {
			break
		}
		currentURL = nextPageURL
	}

	return stats, nil
}

// enrichNotice fetches the tender's detail page and extracts budget,
// deadline, and description.
func (s *HTMLGenericStrategy) enrichNotice(ctx context.Context, raw *RawNotice, config DetailConfig, c *colly.Collector, p *Pipeline) error {
	var enrichErr error
	enriched := false

	clone := c.Clone()
	clone.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(r.Body)))
		if err != nil {
			enrichErr = err
			return
		}
		s.extractDetail(ctx, raw, config, doc, p)
		enriched = true
	})
	clone.OnError(func(r *colly.Response, err error) {
		enrichErr = err
	})

	if err := clone.Visit(raw.ExternalURL); err != nil {
		return err
	}
	clone.Wait()

	if enrichErr != nil {
		return enrichErr
	}
	if !enriched {
		return fmt.Errorf("no response received for detail page")
	}
	return nil
}

// extractDetail pulls tender metadata out of a detail page document.
func (s *HTMLGenericStrategy) extractDetail(ctx context.Context, raw *RawNotice, config DetailConfig, htmlDoc *goquery.Document, p *Pipeline) {
	sel := config.Selectors
	container := htmlDoc.Selection
	if sel.Container != "" {
		container = htmlDoc.Find(sel.Container)
	}

	if sel.Description != "" {
		htmlContent, _ := container.Find(sel.Description).Html()
		desc := strings.TrimSpace(htmlContent)
		if desc != "" {
			if !utf8.ValidString(desc) {
				desc = strings.ToValidUTF8(desc, "")
			}
			raw.Description = desc
		}
	}
	if strings.TrimSpace(raw.Description) == "" {
		if htmlContent, err := container.Html(); err == nil {
			raw.Description = strings.TrimSpace(htmlContent)
		}
	}

	if sel.Deadline != "" {
		if text := strings.TrimSpace(container.Find(sel.Deadline).Text()); text != "" {
			raw.RawDeadline = text
		}
	}
	if sel.Budget != "" {
		if text := strings.TrimSpace(container.Find(sel.Budget).Text()); text != "" {
			raw.RawBudget = text
		}
	}
	if sel.Purchaser != "" {
		if text := strings.TrimSpace(container.Find(sel.Purchaser).Text()); text != "" {
			raw.Purchaser = text
		}
	}
	if sel.TenderNumber != "" {
		if text := strings.TrimSpace(container.Find(sel.TenderNumber).Text()); text != "" {
			raw.TenderNumber = text
		}
	}

	pageText := strings.ToLower(HTMLToText(raw.Description))
	if pageText == "" {
		pageText = strings.ToLower(cleanText(htmlDoc.Selection.Text()))
	}

	// Status hints from text
	if strings.Contains(pageText, "buena pro otorgada") || strings.Contains(pageText, "adjudicado") ||
		strings.Contains(pageText, "adjudicada") || strings.Contains(pageText, "contract awarded") {
		raw.IsAwardPage = true
		raw.RawStatus = "adjudicado"
	} else if strings.Contains(pageText, "desierto") || strings.Contains(pageText, "cancelado") ||
		strings.Contains(pageText, "convocatoria cerrada") {
		raw.RawStatus = "cerrado"
	}

	// No budget selector matched: scan the page text for a labeled figure
	if raw.RawBudget == "" {
		if budget, currency := parseBudget(pageText, raw.RawCurrency); budget > 0 {
			raw.RawBudget = fmt.Sprintf("%.2f", budget)
			raw.RawCurrency = currency
		}
	}

	// Schedule dates from page text, then from linked PDF annexes
	if raw.RawDeadline == "" && raw.DeadlineISO == "" {
		now := time.Now().UTC()
		dates := parseScheduleDates(pageText, raw.ExternalURL)
		if config.Parse.ScanPDFs && len(dates) == 0 {
			dates = s.scanLinkedPDFs(ctx, raw, htmlDoc, p)
		}
		if best := pickSubmissionDeadline(dates, now); best != nil {
			raw.DeadlineISO = best.At.Format(time.RFC3339)
			raw.RawDeadline = best.Snippet
		}
	}
}

// scanLinkedPDFs reads up to two linked PDF annexes looking for the
// procurement schedule. Bases documents on SEACE-style portals carry the
// cronograma that the HTML page omits.
func (s *HTMLGenericStrategy) scanLinkedPDFs(ctx context.Context, raw *RawNotice, htmlDoc *goquery.Document, p *Pipeline) []scheduleDate {
	if p.Fetcher == nil {
		return nil
	}

	var dates []scheduleDate
	scanned := 0
	htmlDoc.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(href)), ".pdf") {
			return true
		}
		base, err := url.Parse(raw.ExternalURL)
		if err != nil {
			return true
		}
		rel, err := url.Parse(href)
		if err != nil {
			return true
		}
		pdfURL := base.ResolveReference(rel).String()

		found, err := extractScheduleFromPDF(ctx, p.Fetcher, pdfURL)
		if err != nil {
			log.Printf("PDF schedule scan failed for %s: %v", pdfURL, err)
		} else {
			dates = append(dates, found...)
		}

		scanned++
		return scanned < 2
	})

	return dates
}

// CanonicalizeURL removes tracking parameters and fragments so the same
// tender page always hashes to the same source id.
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		if strings.HasPrefix(k, "utm_") {
			q.Del(k)
		}
	}
	for _, p := range []string{"fbclid", "gclid", "mc_cid", "mc_eid", "mkt_tok", "ref", "session"} {
		q.Del(p)
	}

	u.RawQuery = q.Encode()
	return u.String()
}
