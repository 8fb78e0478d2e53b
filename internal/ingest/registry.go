package ingest

import (
	"embed"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all tender sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
	ProxyURL       string  `yaml:"proxy_url,omitempty"`
	AcceptLanguage string  `yaml:"accept_language,omitempty"` // e.g. "es-PE,es;q=0.9,en;q=0.8"
}

// SourceConfig defines a single tender source for ingestion.
type SourceConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Region      string `yaml:"region"`
	Country     string `yaml:"country"`
	Strategy    string `yaml:"strategy"` // "html_generic", "api_ocds"
	BaseURL     string `yaml:"base_url,omitempty"`
	APIKey      string `yaml:"api_key,omitempty"`
	Schedule    string `yaml:"schedule,omitempty"`
	Description string `yaml:"description,omitempty"`

	// HTTP fetching configuration
	Fetch FetchConfig `yaml:"fetch,omitempty"`

	// For the generic HTML strategy
	Selectors  SelectorConfig   `yaml:"selectors,omitempty"`
	Pagination PaginationConfig `yaml:"pagination,omitempty"`
	MaxPages   int              `yaml:"max_pages,omitempty"`
	Detail     DetailConfig     `yaml:"detail,omitempty"`
}

type PaginationConfig struct {
	Next string `yaml:"next,omitempty"` // CSS selector for the next page link
}

type SelectorConfig struct {
	Container string `yaml:"container,omitempty"` // CSS selector for the list item wrapper
	Link      string `yaml:"link,omitempty"`
	LinkAttr  string `yaml:"link_attr,omitempty"` // Attribute to extract link from (default: href)
	Title     string `yaml:"title,omitempty"`
	Purchaser string `yaml:"purchaser,omitempty"`
	Content   string `yaml:"content,omitempty"`
}

// DetailParseConfig defines parsing configuration for detail enrichment.
type DetailParseConfig struct {
	DateLocales     []string `yaml:"date_locales,omitempty"`     // ["es", "en"]
	CurrencyDefault string   `yaml:"currency_default,omitempty"` // "PEN", "USD", "EUR"
	ScanPDFs        bool     `yaml:"scan_pdfs,omitempty"`        // read linked PDF annexes for schedule dates
}

type DetailConfig struct {
	Enabled   bool                 `yaml:"enabled"`
	Selectors DetailSelectorConfig `yaml:"selectors,omitempty"`
	Parse     DetailParseConfig    `yaml:"parse,omitempty"`
}

type DetailSelectorConfig struct {
	Container    string `yaml:"container,omitempty"` // Wrapper for detail content
	Description  string `yaml:"description,omitempty"`
	Deadline     string `yaml:"deadline,omitempty"`
	Budget       string `yaml:"budget,omitempty"`
	Purchaser    string `yaml:"purchaser,omitempty"`
	TenderNumber string `yaml:"tender_number,omitempty"`
}

// LoadRegistry reads the embedded sources.yaml. The path parameter is a
// filesystem fallback for local development overrides.
func LoadRegistry(path string) (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${API_KEY})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}
