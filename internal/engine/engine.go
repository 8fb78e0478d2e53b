// Package engine implements the bid economics model: given a tender and a
// partial parameter set it derives delivery cost, project benefit, ROI
// scenarios, a monthly cash-flow projection and an adjusted ROI prediction,
// assembled into an immutable report. Every stage is a pure computation; the
// engine never touches the network or the database.
package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/javier/tender-desk/internal/models"
)

// Engine runs the analysis pipeline. It is safe for concurrent use: the
// policy is read-only after construction and every stage works on values.
type Engine struct {
	policy *Policy
	log    Logger
	now    func() time.Time
}

func NewEngine(policy *Policy, log Logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{policy: policy, log: log, now: time.Now}
}

// CostBenefitReport is the assembled output of one analysis run. Reports are
// immutable once produced; re-analysis creates a new report so historical
// comparisons stay reproducible.
type CostBenefitReport struct {
	ID         uuid.UUID          `json:"id"`
	TenderID   uuid.UUID          `json:"tender_id"`
	Parameters AnalysisParameters `json:"parameters"`
	Cost       CostAnalysis       `json:"cost_analysis"`
	Benefit    BenefitAnalysis    `json:"benefit_analysis"`
	ROI        ROIAnalysis        `json:"roi_analysis"`
	CashFlow   CashFlowAnalysis   `json:"cash_flow_analysis"`
	Prediction ROIPrediction      `json:"roi_prediction"`
	Warnings   []string           `json:"warnings,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Analyze runs the full pipeline for one tender. It fails only on invalid
// input; computation inconsistencies (non-positive cost, non-recovering cash
// flow) are reported as warnings on the report instead.
func (e *Engine) Analyze(tender models.Tender, overrides Overrides) (*CostBenefitReport, error) {
	if err := validateTender(tender); err != nil {
		return nil, err
	}

	params, err := Resolve(overrides)
	if err != nil {
		return nil, err
	}

	cost := ComputeCost(tender, params)
	benefit := e.ComputeBenefit(tender, params)
	cashflow := e.ProjectCashFlow(tender, params, cost, benefit)
	roi := ComputeROI(cost, benefit, cashflow, params.ProjectDurationMonths)
	prediction := e.Predict(tender, params, cost, roi, cashflow)

	var warnings []string
	if cost.TotalCost <= 0 {
		warnings = append(warnings, WarnNonPositiveCost)
	}
	if cashflow.PaybackPeriod > len(cashflow.Months) {
		warnings = append(warnings, WarnNoRecovery)
	}
	for _, w := range warnings {
		e.log.Printf("analysis warning for tender %s: %s", tender.ID, w)
	}

	return &CostBenefitReport{
		ID:         uuid.New(),
		TenderID:   tender.ID,
		Parameters: params,
		Cost:       cost,
		Benefit:    benefit,
		ROI:        roi,
		CashFlow:   cashflow,
		Prediction: prediction,
		Warnings:   warnings,
		CreatedAt:  e.now().UTC(),
	}, nil
}

func validateTender(tender models.Tender) error {
	if tender.Budget <= 0 || !isFinite(tender.Budget) {
		return invalidField("tender.budget", "must be a positive amount")
	}
	return nil
}
