package engine

import (
	"sort"
	"sync"

	"github.com/javier/tender-desk/internal/models"
)

// BatchItem holds the outcome for one tender in a batch run: exactly one of
// Report or Err is set.
type BatchItem struct {
	TenderID string             `json:"tender_id"`
	Report   *CostBenefitReport `json:"report,omitempty"`
	Err      string             `json:"error,omitempty"`
}

type BatchSummary struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

type BatchResult struct {
	Items   []BatchItem  `json:"items"`
	Summary BatchSummary `json:"summary"`
}

// batchWorkers caps concurrent analyses so a large batch does not spawn a
// goroutine per tender.
const batchWorkers = 8

// AnalyzeBatch runs the pipeline for each tender with the same shared
// overrides. Tenders are independent, so pipelines run in parallel; each
// goroutine writes only its own slice slot and results are merged after all
// finish. One tender's validation failure is recorded against that tender
// only and never aborts the batch.
func (e *Engine) AnalyzeBatch(tenders []models.Tender, overrides Overrides) BatchResult {
	items := make([]BatchItem, len(tenders))
	sem := make(chan struct{}, batchWorkers)

	var wg sync.WaitGroup
	for i, tender := range tenders {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, tender models.Tender) {
			defer wg.Done()
			defer func() { <-sem }()
			item := BatchItem{TenderID: tender.ID.String()}
			report, err := e.Analyze(tender, overrides)
			if err != nil {
				item.Err = err.Error()
			} else {
				item.Report = report
			}
			items[i] = item
		}(i, tender)
	}
	wg.Wait()

	var summary BatchSummary
	for _, item := range items {
		if item.Report != nil {
			summary.Success++
		} else {
			summary.Failure++
		}
	}

	return BatchResult{Items: items, Summary: summary}
}

// Ranking is one row of a comparison result.
type Ranking struct {
	TenderID  string  `json:"tender_id"`
	Title     string  `json:"title"`
	ROI       float64 `json:"roi"` // realistic, percent
	TotalCost float64 `json:"total_cost"`
}

// Compare analyzes the given tenders and ranks them by realistic ROI
// descending. Ties break on lower total cost, then on tender identifier, so
// the ordering is deterministic regardless of input order. Tenders that fail
// analysis are left out of the ranking.
func (e *Engine) Compare(tenders []models.Tender, overrides Overrides) []Ranking {
	batch := e.AnalyzeBatch(tenders, overrides)

	rankings := make([]Ranking, 0, len(tenders))
	for i, item := range batch.Items {
		if item.Report == nil {
			e.log.Printf("comparison skipping tender %s: %s", item.TenderID, item.Err)
			continue
		}
		rankings = append(rankings, Ranking{
			TenderID:  item.TenderID,
			Title:     tenders[i].Title,
			ROI:       item.Report.ROI.Realistic,
			TotalCost: item.Report.Cost.TotalCost,
		})
	}

	SortRankings(rankings)
	return rankings
}

// SortRankings orders rankings by realistic ROI descending, breaking ties on
// lower total cost and then on tender identifier.
func SortRankings(rankings []Ranking) {
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].ROI != rankings[j].ROI {
			return rankings[i].ROI > rankings[j].ROI
		}
		if rankings[i].TotalCost != rankings[j].TotalCost {
			return rankings[i].TotalCost < rankings[j].TotalCost
		}
		return rankings[i].TenderID < rankings[j].TenderID
	})
}
