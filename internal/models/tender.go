package models

import (
	"time"

	"github.com/google/uuid"
)

// Tender lifecycle statuses. A tender is active while offers can still be
// submitted, closed once the deadline passed, and awarded when a winner
// was published.
const (
	StatusActive  = "active"
	StatusClosed  = "closed"
	StatusAwarded = "awarded"
)

type Tender struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	ExternalURL   string     `json:"external_url"`
	SourceDomain  string     `json:"source_domain"`
	SourceID      string     `json:"source_id"`
	TenderNumber  string     `json:"tender_number"`
	Purchaser     string     `json:"purchaser"`
	PurchaserType string     `json:"purchaser_type"`
	Area          string     `json:"area"`
	Country       string     `json:"country"`
	Budget        float64    `json:"budget"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	StatusReason  string     `json:"status_reason"`
	PublishedAt   *time.Time `json:"published_at"`
	DeadlineAt    *time.Time `json:"deadline_at"`
	AwardedAt     *time.Time `json:"awarded_at"`
	Categories    []string   `json:"categories"`
	Keywords      []string   `json:"keywords"`
	Description   string     `json:"description"` // Full HTML description
	BudgetRaw     string     `json:"budget_raw"`  // Original text the budget was parsed from
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
