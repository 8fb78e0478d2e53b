package engine

import "testing"

func TestLoadPolicy_EmbeddedDefaults(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(policy.Tiers) == 0 {
		t.Fatal("expected at least one purchaser tier")
	}
	if policy.CashFlow.FrontloadSplit != 0.6 {
		t.Fatalf("frontload split = %v, want 0.6", policy.CashFlow.FrontloadSplit)
	}
	if len(policy.CashFlow.Milestones) != 1 || policy.CashFlow.Milestones[0].At != 1.0 {
		t.Fatalf("milestones = %+v, want a single completion milestone", policy.CashFlow.Milestones)
	}
	if policy.LargeProjectBudget <= 0 {
		t.Fatalf("large project budget = %v, want positive", policy.LargeProjectBudget)
	}
}

func TestTierFor_KeywordMatchIsCaseInsensitive(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tier := policy.TierFor("BANCO INTERAMERICANO")
	if tier.ID != "financial" {
		t.Fatalf("tier = %q, want financial", tier.ID)
	}
	if !tier.Premium {
		t.Fatal("financial tier should be premium")
	}
}

func TestTierFor_UnmatchedPurchaserGetsNeutralTier(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tier := policy.TierFor("Asociación de Productores de Quinua")
	if tier.ID != "default" {
		t.Fatalf("tier = %q, want default", tier.ID)
	}
	if tier.Opportunity != 1.0 || tier.Brand != 1.0 {
		t.Fatalf("neutral tier multipliers = %v/%v, want 1.0/1.0", tier.Opportunity, tier.Brand)
	}
}

func TestPolicyValidate_RejectsBadMilestones(t *testing.T) {
	p := &Policy{
		CashFlow: CashFlowPolicy{
			FrontloadSplit: 0.6,
			Milestones:     []PaymentMilestone{{At: 0.5, Share: 0.4}, {At: 1.0, Share: 0.4}},
		},
	}
	if err := p.validate(); err == nil {
		t.Fatal("expected an error for shares not summing to 1")
	}

	p.CashFlow.Milestones = []PaymentMilestone{{At: 1.5, Share: 1.0}}
	if err := p.validate(); err == nil {
		t.Fatal("expected an error for a milestone past the end of the timeline")
	}
}
