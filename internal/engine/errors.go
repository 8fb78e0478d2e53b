package engine

import "fmt"

// ValidationError reports the first malformed or out-of-range field found in
// a tender or a parameter override. It is always returned to the caller and
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Computation inconsistencies are attached to the report as warnings rather
// than failing the analysis: a degenerate-but-defined report is still useful
// for ranking.
const (
	WarnNonPositiveCost = "total cost computed as zero or negative; check labor rate and duration"
	WarnNoRecovery      = "cumulative cash flow does not recover within the project horizon"
)
