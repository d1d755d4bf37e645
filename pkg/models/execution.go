// Package models defines the shared data model for review executions.
package models

import "time"

// ExecutionStatus represents the current state of a review execution
type ExecutionStatus string

const (
	// ExecutionInProgress means the execution has been created and analyses are running
	ExecutionInProgress ExecutionStatus = "in_progress"

	// ExecutionCompleted means the execution reached a terminal state with results
	ExecutionCompleted ExecutionStatus = "completed"

	// ExecutionFailed means the execution hit a fatal error before producing a full report
	ExecutionFailed ExecutionStatus = "failed"
)

// Terminal reports whether the status is a terminal state
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

// DimensionStatus represents the outcome of a single dimension analysis
type DimensionStatus string

const (
	// DimensionCompleted means the analysis unit returned a structured result
	DimensionCompleted DimensionStatus = "completed"

	// DimensionFailed means the analysis unit failed; the error is captured on the result
	DimensionFailed DimensionStatus = "failed"
)

// Severity classifies a governance violation
type Severity string

const (
	// SeverityHigh violations are surfaced as immediate action items
	SeverityHigh Severity = "high"

	// SeverityMedium violations are reported in the per-dimension detail
	SeverityMedium Severity = "medium"

	// SeverityLow violations are informational
	SeverityLow Severity = "low"
)

// ParseSeverity validates a severity string at the boundary
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return Severity(s), nil
	}
	return "", NewValidationError("unknown severity: %q", s)
}

// Violation is a detected deviation from a governance policy
type Violation struct {
	// PolicyID identifies the violated policy
	PolicyID string `json:"policy_id"`

	// PolicyTitle is the human-readable policy name
	PolicyTitle string `json:"policy_title"`

	// Description explains the deviation found in the document
	Description string `json:"description"`

	// RecommendedCorrection describes how to bring the architecture into compliance
	RecommendedCorrection string `json:"recommended_correction"`

	// Severity of the violation
	Severity Severity `json:"severity"`
}

// DimensionResult is the outcome of one analysis unit for one dimension
type DimensionResult struct {
	// DimensionID identifies the evaluated dimension
	DimensionID Dimension `json:"dimension_id"`

	// Status of the analysis
	Status DimensionStatus `json:"status"`

	// Findings is the free-text analysis output
	Findings string `json:"findings,omitempty"`

	// Recommendations is the ordered list of suggested improvements
	Recommendations []string `json:"recommendations,omitempty"`

	// GovernanceViolations detected while evaluating this dimension (may be empty)
	GovernanceViolations []Violation `json:"governance_violations,omitempty"`

	// Error message, present iff Status is DimensionFailed
	Error string `json:"error,omitempty"`

	// CompletedAt is when the analysis settled
	CompletedAt time.Time `json:"completed_at"`
}

// Execution is one run of the review orchestrator for one document version
type Execution struct {
	// ID of the execution
	ID string `json:"id"`

	// ReviewRequestID references the originating review request
	ReviewRequestID string `json:"review_request_id"`

	// DocumentID is the reviewed document
	DocumentID string `json:"document_id"`

	// DocumentVersion is the reviewed document version
	DocumentVersion string `json:"document_version"`

	// SelectedDimensions is the set of dimensions chosen by the caller, immutable after creation
	SelectedDimensions []Dimension `json:"selected_dimensions"`

	// Status of the execution; monotonic, never regresses from a terminal state
	Status ExecutionStatus `json:"status"`

	// Results maps dimension id to its result; partially populated while in progress
	Results map[Dimension]DimensionResult `json:"results,omitempty"`

	// OverviewSummary is the narrative overview, populated only at completion
	OverviewSummary string `json:"overview_summary,omitempty"`

	// ExecutiveSummary is the prioritized digest, populated only at completion
	ExecutiveSummary string `json:"executive_summary,omitempty"`

	// Error message if the execution failed
	Error string `json:"error,omitempty"`

	// StartedAt is when the execution record was created
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is set exactly once, when the status becomes terminal
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate stored state through shared maps and slices
func (e Execution) Clone() Execution {
	out := e

	out.SelectedDimensions = append([]Dimension(nil), e.SelectedDimensions...)

	if e.Results != nil {
		out.Results = make(map[Dimension]DimensionResult, len(e.Results))
		for k, v := range e.Results {
			v.Recommendations = append([]string(nil), v.Recommendations...)
			v.GovernanceViolations = append([]Violation(nil), v.GovernanceViolations...)
			out.Results[k] = v
		}
	}

	return out
}
