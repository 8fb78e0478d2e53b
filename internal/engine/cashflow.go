package engine

import (
	"math"

	"github.com/javier/tender-desk/internal/models"
)

type MonthlyFlow struct {
	Month          int     `json:"month"` // 1-based
	Income         float64 `json:"income"`
	Expense        float64 `json:"expense"`
	NetFlow        float64 `json:"net_flow"`
	CumulativeFlow float64 `json:"cumulative_flow"`
}

type CashFlowAnalysis struct {
	Months []MonthlyFlow `json:"months"`

	// Most negative cumulative flow across the series: the maximum capital
	// the bidder has to front before recovery.
	PeakFunding float64 `json:"peak_funding"`

	// First month where cumulative flow turns non-negative; len(Months)+1
	// when the series never recovers (surfaced as a warning, not an error).
	PaybackPeriod int `json:"payback_period"`
}

// ProjectCashFlow spreads cost and revenue over the project timeline.
// Expenses are front-loaded per the policy split (heavier early-stage spend);
// revenue lands at the configured payment milestones, by default a single
// payment at completion.
func (e *Engine) ProjectCashFlow(tender models.Tender, params AnalysisParameters, cost CostAnalysis, benefit BenefitAnalysis) CashFlowAnalysis {
	n := params.ProjectDurationMonths
	expenses := spreadExpenses(cost.TotalCost, n, e.policy.CashFlow.FrontloadSplit)
	income := spreadIncome(benefit.DirectRevenue, n, e.policy.CashFlow.Milestones)

	months := make([]MonthlyFlow, n)
	cumulative := 0.0
	peak := 0.0
	payback := n + 1
	for i := 0; i < n; i++ {
		net := income[i] - expenses[i]
		cumulative += net
		if cumulative < peak {
			peak = cumulative
		}
		if payback == n+1 && cumulative >= 0 {
			payback = i + 1
		}
		months[i] = MonthlyFlow{
			Month:          i + 1,
			Income:         income[i],
			Expense:        expenses[i],
			NetFlow:        net,
			CumulativeFlow: cumulative,
		}
	}

	return CashFlowAnalysis{Months: months, PeakFunding: peak, PaybackPeriod: payback}
}

// spreadExpenses splits total cost into a front-loaded monthly series: the
// first half of the timeline carries `split` of the cost evenly, the second
// half the remainder. Odd durations put the extra month in the first half.
func spreadExpenses(total float64, n int, split float64) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = total
		return out
	}

	firstHalf := (n + 1) / 2
	secondHalf := n - firstHalf
	early := total * split / float64(firstHalf)
	late := total * (1 - split) / float64(secondHalf)
	for i := range out {
		if i < firstHalf {
			out[i] = early
		} else {
			out[i] = late
		}
	}
	return out
}

// spreadIncome places each milestone's revenue share in the month the
// milestone position maps to (position 1.0 = final month).
func spreadIncome(revenue float64, n int, milestones []PaymentMilestone) []float64 {
	out := make([]float64, n)
	for _, m := range milestones {
		month := int(math.Ceil(m.At * float64(n)))
		if month < 1 {
			month = 1
		}
		if month > n {
			month = n
		}
		out[month-1] += revenue * m.Share
	}
	return out
}
