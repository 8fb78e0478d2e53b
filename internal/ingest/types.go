package ingest

import (
	"context"
	"io"
	"time"
)

// RawNotice is the untrusted, unnormalized form of a tender notice as it
// comes off a source page. The pipeline parses the Raw* fields into typed
// values before anything touches the database.
type RawNotice struct {
	Title        string
	Description  string
	ExternalURL  string
	SourceID     string // provided by the source if available, or hashed from the URL
	SourceDomain string
	TenderNumber string
	Purchaser    string
	Area         string
	Country      string
	RawDeadline  string
	RawBudget    string
	RawCurrency  string
	RawStatus    string
	PublishedISO string
	DeadlineISO  string
	AwardedISO   string
	IsAwardPage  bool
	Categories   []string
	Extra        map[string]string
}

// FetchedDocument represents the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}
