package ai

import (
	"context"
	"fmt"

	"github.com/javier/tender-desk/internal/models"
)

// ProposalInput carries the analysis highlights the drafting prompt builds
// on. Values are preformatted by the caller so the prompt stays readable.
type ProposalInput struct {
	AdjustedROI     float64
	TotalCost       float64
	PeakFunding     float64
	Recommendations []string
}

// DraftProposalSummary produces an executive summary a bid team can paste
// into a proposal. Free-text output, no JSON mode.
func DraftProposalSummary(ctx context.Context, client *OllamaClient, tender models.Tender, in ProposalInput) (string, error) {
	recs := ""
	for _, r := range in.Recommendations {
		recs += "- " + r + "\n"
	}

	prompt := fmt.Sprintf(`You are a bid manager writing the executive summary of a proposal for a public tender.

TENDER: %s
PURCHASER: %s
BUDGET: %.2f %s
ESTIMATED DELIVERY COST: %.2f
PROJECTED ROI (adjusted): %.1f%%
PEAK FUNDING NEED: %.2f
ANALYST ADVISORIES:
%s
Write 3 short paragraphs in a professional tone:
1. Why our company should bid for this contract.
2. The economics: expected return and the main financial risk to manage.
3. The delivery approach that addresses the advisories above.

Plain text only, no headings, no bullet lists.`,
		tender.Title, tender.Purchaser, tender.Budget, tender.Currency,
		in.TotalCost, in.AdjustedROI, in.PeakFunding, recs)

	return client.GenerateCompletion(ctx, prompt, false)
}
