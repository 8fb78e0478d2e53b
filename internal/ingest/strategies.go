package ingest

import (
	"context"
	"fmt"
)

// IngestionStats holds metrics about a run.
type IngestionStats struct {
	TotalFound int `json:"total_found"`
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Errors     int `json:"errors"`
}

// FetcherStrategy defines the contract for any tender source. It handles
// fetching, parsing, and saving via the provided pipeline.
type FetcherStrategy interface {
	Run(ctx context.Context, config SourceConfig, pipeline *Pipeline) (IngestionStats, error)
}

// StrategyFactory maps strategy IDs (from sources.yaml) to implementations.
type StrategyFactory struct {
	strategies map[string]FetcherStrategy
}

func NewStrategyFactory() *StrategyFactory {
	return &StrategyFactory{
		strategies: make(map[string]FetcherStrategy),
	}
}

func (f *StrategyFactory) Register(id string, strategy FetcherStrategy) {
	f.strategies[id] = strategy
}

func (f *StrategyFactory) Get(id string) (FetcherStrategy, error) {
	strategy, ok := f.strategies[id]
	if !ok {
		return nil, fmt.Errorf("strategy not found: %s", id)
	}
	return strategy, nil
}

// Global factory instance
var GlobalStrategyFactory = NewStrategyFactory()

func init() {
	GlobalStrategyFactory.Register("html_generic", &HTMLGenericStrategy{})
	GlobalStrategyFactory.Register("api_ocds", &OCDSStrategy{})
}
