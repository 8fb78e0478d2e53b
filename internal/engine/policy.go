package engine

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/policy.yaml
var policyYAML embed.FS

// Policy holds the data-shaped parts of the model: the purchaser tier table,
// the cash-flow spreading rules and scale thresholds. Everything here is
// commercial policy rather than arithmetic, so it lives in YAML and can be
// tuned without touching the formulas.
type Policy struct {
	Tiers    []PurchaserTier `yaml:"purchaser_tiers"`
	CashFlow CashFlowPolicy  `yaml:"cash_flow"`

	// Budget above which a tender counts as a large project for the
	// confidence score.
	LargeProjectBudget float64 `yaml:"large_project_budget"`
}

// PurchaserTier maps a purchaser category to its benefit multipliers.
// Matching is keyword-based on the purchaser name; the first tier with a
// matching keyword wins, otherwise the neutral default (1.0/1.0) applies.
type PurchaserTier struct {
	ID          string   `yaml:"id"`
	Keywords    []string `yaml:"keywords"`
	Opportunity float64  `yaml:"opportunity"`
	Brand       float64  `yaml:"brand"`
	Premium     bool     `yaml:"premium"`
}

// CashFlowPolicy controls how cost and revenue are spread over the timeline.
type CashFlowPolicy struct {
	// Share of total cost spent in the first half of the project.
	FrontloadSplit float64 `yaml:"frontload_split"`
	// Payment milestones as (position in [0,1], share of revenue). The
	// default is a single milestone at completion.
	Milestones []PaymentMilestone `yaml:"milestones"`
}

type PaymentMilestone struct {
	At    float64 `yaml:"at"`
	Share float64 `yaml:"share"`
}

// LoadPolicy reads the embedded policy.yaml, falling back to the given path
// for local experiments. The path may be empty.
func LoadPolicy(path string) (*Policy, error) {
	data, err := policyYAML.ReadFile("config/policy.yaml")
	if err != nil && path != "" {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read policy config: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy config: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (p *Policy) validate() error {
	if p.CashFlow.FrontloadSplit <= 0 || p.CashFlow.FrontloadSplit >= 1 {
		return fmt.Errorf("policy cash_flow.frontload_split must be within (0, 1), got %v", p.CashFlow.FrontloadSplit)
	}
	var total float64
	for _, m := range p.CashFlow.Milestones {
		if m.At <= 0 || m.At > 1 {
			return fmt.Errorf("policy milestone position %v out of (0, 1]", m.At)
		}
		total += m.Share
	}
	if len(p.CashFlow.Milestones) == 0 {
		return fmt.Errorf("policy must define at least one payment milestone")
	}
	if diff := total - 1; diff > 1e-9 || diff < -1e-9 {
		return fmt.Errorf("policy milestone shares must sum to 1, got %v", total)
	}
	return nil
}

// TierFor looks up the purchaser tier for a purchaser name. Unmatched
// purchasers get the neutral tier.
func (p *Policy) TierFor(purchaser string) PurchaserTier {
	name := strings.ToLower(purchaser)
	for _, tier := range p.Tiers {
		for _, kw := range tier.Keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return tier
			}
		}
	}
	return PurchaserTier{ID: "default", Opportunity: 1.0, Brand: 1.0}
}
