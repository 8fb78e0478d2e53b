package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/javier/tender-desk/internal/ai"
	"github.com/javier/tender-desk/internal/db"
	"github.com/javier/tender-desk/internal/engine"
)

// handleAnalyzeTender runs the economics pipeline for one tender with the
// caller's parameter overrides and persists the resulting report.
func (s *Server) handleAnalyzeTender(c echo.Context) error {
	ctx := c.Request().Context()

	tender, err := s.Store.GetTender(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	var overrides engine.Overrides
	if err := c.Bind(&overrides); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	report, err := s.Engine.Analyze(*tender, overrides)
	if err != nil {
		var vErr *engine.ValidationError
		if errors.As(err, &vErr) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{
				"error": vErr.Error(),
				"field": vErr.Field,
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := s.Store.SaveReport(ctx, report); err != nil {
		c.Logger().Errorf("Failed to persist report for tender %s: %v", tender.ID, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to persist report"})
	}

	return c.JSON(http.StatusCreated, report)
}

func (s *Server) handleListReports(c echo.Context) error {
	reports, err := s.Store.ListReports(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, reports)
}

type batchRequest struct {
	TenderIDs  []string         `json:"tender_ids"`
	Parameters engine.Overrides `json:"parameters"`
}

// handleAnalyzeBatch analyzes a set of tenders with one shared parameter set.
// Per-tender failures are reported alongside successes; successful reports
// are persisted.
func (s *Server) handleAnalyzeBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if len(req.TenderIDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tender_ids is required"})
	}

	tenders, err := s.Store.GetTenders(ctx, req.TenderIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if len(tenders) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No tenders found"})
	}

	result := s.Engine.AnalyzeBatch(tenders, req.Parameters)

	for _, item := range result.Items {
		if item.Report == nil {
			continue
		}
		if err := s.Store.SaveReport(ctx, item.Report); err != nil {
			c.Logger().Errorf("Failed to persist report for tender %s: %v", item.TenderID, err)
		}
	}

	return c.JSON(http.StatusOK, result)
}

type compareRequest struct {
	TenderIDs  []string         `json:"tender_ids"`
	Parameters engine.Overrides `json:"parameters"`
	// Refresh forces re-analysis even when a stored report exists.
	Refresh bool `json:"refresh"`
}

// handleCompare ranks the given tenders by realistic ROI. Stored reports are
// reused when present; tenders without one are analyzed on demand.
func (s *Server) handleCompare(c echo.Context) error {
	ctx := c.Request().Context()

	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if len(req.TenderIDs) < 2 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "at least two tender_ids are required"})
	}

	tenders, err := s.Store.GetTenders(ctx, req.TenderIDs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	var rankings []engine.Ranking
	skipped := map[string]string{}
	for _, tender := range tenders {
		id := tender.ID.String()

		if !req.Refresh {
			if stored, err := s.Store.LatestReport(ctx, id); err == nil {
				rankings = append(rankings, engine.Ranking{
					TenderID:  id,
					Title:     tender.Title,
					ROI:       stored.RealisticROI,
					TotalCost: stored.TotalCost,
				})
				continue
			}
		}

		report, err := s.Engine.Analyze(tender, req.Parameters)
		if err != nil {
			skipped[id] = err.Error()
			continue
		}
		if err := s.Store.SaveReport(ctx, report); err != nil {
			c.Logger().Errorf("Failed to persist report for tender %s: %v", id, err)
		}
		rankings = append(rankings, engine.Ranking{
			TenderID:  id,
			Title:     tender.Title,
			ROI:       report.ROI.Realistic,
			TotalCost: report.Cost.TotalCost,
		})
	}

	engine.SortRankings(rankings)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"rankings": rankings,
		"skipped":  skipped,
	})
}

// handleDraftProposal produces an LLM executive summary grounded on the
// latest analysis report, computing one first if none exists.
func (s *Server) handleDraftProposal(c echo.Context) error {
	ctx := c.Request().Context()

	tender, err := s.Store.GetTender(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	stored, err := s.Store.LatestReport(ctx, tender.ID.String())
	if err != nil {
		report, analyzeErr := s.Engine.Analyze(*tender, engine.Overrides{})
		if analyzeErr != nil {
			var vErr *engine.ValidationError
			if errors.As(analyzeErr, &vErr) {
				return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": vErr.Error()})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": analyzeErr.Error()})
		}
		if err := s.Store.SaveReport(ctx, report); err != nil {
			c.Logger().Errorf("Failed to persist report for tender %s: %v", tender.ID, err)
		}
		stored = &db.StoredReport{
			Cost:       report.Cost,
			CashFlow:   report.CashFlow,
			Prediction: report.Prediction,
		}
	}

	draftCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	summary, err := ai.DraftProposalSummary(draftCtx, s.AI, *tender, ai.ProposalInput{
		AdjustedROI:     stored.Prediction.AdjustedROI,
		TotalCost:       stored.Cost.TotalCost,
		PeakFunding:     stored.CashFlow.PeakFunding,
		Recommendations: stored.Prediction.Recommendations,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}
