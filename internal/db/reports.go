package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/javier/tender-desk/internal/engine"
)

// StoredReport is the persisted form of an analysis report. The analysis
// sections stay as JSON documents; realistic ROI and total cost are lifted
// into columns so rankings can be queried without decoding every report.
type StoredReport struct {
	ID           uuid.UUID                 `json:"id"`
	TenderID     uuid.UUID                 `json:"tender_id"`
	Parameters   engine.AnalysisParameters `json:"parameters"`
	Cost         engine.CostAnalysis       `json:"cost_analysis"`
	Benefit      engine.BenefitAnalysis    `json:"benefit_analysis"`
	ROI          engine.ROIAnalysis        `json:"roi_analysis"`
	CashFlow     engine.CashFlowAnalysis   `json:"cash_flow_analysis"`
	Prediction   engine.ROIPrediction      `json:"roi_prediction"`
	Warnings     []string                  `json:"warnings,omitempty"`
	RealisticROI float64                   `json:"realistic_roi"`
	TotalCost    float64                   `json:"total_cost"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// SaveReport persists a freshly produced report. Reports are append-only;
// deleting the tender cascades to its reports.
func (s *Store) SaveReport(ctx context.Context, report *engine.CostBenefitReport) error {
	params, err := json.Marshal(report.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	cost, err := json.Marshal(report.Cost)
	if err != nil {
		return fmt.Errorf("encode cost analysis: %w", err)
	}
	benefit, err := json.Marshal(report.Benefit)
	if err != nil {
		return fmt.Errorf("encode benefit analysis: %w", err)
	}
	roi, err := json.Marshal(report.ROI)
	if err != nil {
		return fmt.Errorf("encode roi analysis: %w", err)
	}
	cashflow, err := json.Marshal(report.CashFlow)
	if err != nil {
		return fmt.Errorf("encode cash flow analysis: %w", err)
	}
	prediction, err := json.Marshal(report.Prediction)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO reports (
			id, tender_id, parameters, cost_analysis, benefit_analysis,
			roi_analysis, cash_flow_analysis, roi_prediction, warnings,
			realistic_roi, total_cost, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		report.ID, report.TenderID, params, cost, benefit,
		roi, cashflow, prediction, report.Warnings,
		report.ROI.Realistic, report.Cost.TotalCost, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report failed: %w", err)
	}
	return nil
}

const reportCols = `id, tender_id, parameters, cost_analysis, benefit_analysis,
	roi_analysis, cash_flow_analysis, roi_prediction, warnings,
	realistic_roi, total_cost, created_at`

func scanReport(scan func(dest ...interface{}) error) (StoredReport, error) {
	var r StoredReport
	var params, cost, benefit, roi, cashflow, prediction []byte

	err := scan(
		&r.ID, &r.TenderID, &params, &cost, &benefit,
		&roi, &cashflow, &prediction, &r.Warnings,
		&r.RealisticROI, &r.TotalCost, &r.CreatedAt,
	)
	if err != nil {
		return r, err
	}

	for _, pair := range []struct {
		raw []byte
		out interface{}
	}{
		{params, &r.Parameters},
		{cost, &r.Cost},
		{benefit, &r.Benefit},
		{roi, &r.ROI},
		{cashflow, &r.CashFlow},
		{prediction, &r.Prediction},
	} {
		if err := json.Unmarshal(pair.raw, pair.out); err != nil {
			return r, fmt.Errorf("decode report section: %w", err)
		}
	}

	return r, nil
}

// ListReports returns all reports for a tender, newest first.
func (s *Store) ListReports(ctx context.Context, tenderID string) ([]StoredReport, error) {
	sql := fmt.Sprintf("SELECT %s FROM reports WHERE tender_id = $1 ORDER BY created_at DESC", reportCols)
	rows, err := s.pool.Query(ctx, sql, tenderID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		reports = append(reports, r)
	}
	if reports == nil {
		reports = []StoredReport{}
	}
	return reports, rows.Err()
}

// LatestReport returns the newest report for a tender, or nil when the tender
// was never analyzed.
func (s *Store) LatestReport(ctx context.Context, tenderID string) (*StoredReport, error) {
	sql := fmt.Sprintf("SELECT %s FROM reports WHERE tender_id = $1 ORDER BY created_at DESC LIMIT 1", reportCols)
	row := s.pool.QueryRow(ctx, sql, tenderID)

	r, err := scanReport(row.Scan)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
