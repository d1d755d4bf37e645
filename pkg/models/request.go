package models

import "time"

// ExecuteRequest is the input to the review orchestrator
type ExecuteRequest struct {
	// ReviewRequestID references the originating review request
	ReviewRequestID string `json:"review_request_id"`

	// DocumentID is the document to review
	DocumentID string `json:"document_id"`

	// DocumentVersion is the document version to review
	DocumentVersion string `json:"document_version"`

	// SelectedDimensions is the non-empty set of dimensions to evaluate
	SelectedDimensions []Dimension `json:"selected_dimensions"`

	// GovernancePolicyIDs optionally scopes the governance analysis to specific policies
	GovernancePolicyIDs []string `json:"governance_policy_ids,omitempty"`

	// Instructions optionally carries per-dimension free-text reviewer guidance
	Instructions map[Dimension]string `json:"instructions,omitempty"`
}

// Validate checks the request before any side effects occur
func (r ExecuteRequest) Validate() error {
	if r.ReviewRequestID == "" {
		return NewValidationError("review_request_id is required")
	}
	if r.DocumentID == "" {
		return NewValidationError("document_id is required")
	}
	if len(r.SelectedDimensions) == 0 {
		return NewValidationError("selected_dimensions must not be empty")
	}

	seen := make(map[Dimension]bool, len(r.SelectedDimensions))
	for _, d := range r.SelectedDimensions {
		if _, err := ParseDimension(string(d)); err != nil {
			return err
		}
		if seen[d] {
			return NewValidationError("duplicate dimension: %q", d)
		}
		seen[d] = true
	}

	return nil
}

// ReviewRequestStatus represents the state of a review request as seen by the submitter
type ReviewRequestStatus string

const (
	// ReviewRequestSubmitted means the request exists but no execution has finished
	ReviewRequestSubmitted ReviewRequestStatus = "submitted"

	// ReviewRequestReviewed means an execution completed successfully
	ReviewRequestReviewed ReviewRequestStatus = "reviewed"

	// ReviewRequestFailed means the latest execution failed
	ReviewRequestFailed ReviewRequestStatus = "failed"
)

// ReviewRequest is the submitter-facing record an execution reports back to
type ReviewRequest struct {
	// ID of the review request
	ID string `json:"id"`

	// DocumentID is the submitted document
	DocumentID string `json:"document_id"`

	// DocumentVersion is the submitted document version
	DocumentVersion string `json:"document_version"`

	// SubmittedBy is the submitting user
	SubmittedBy string `json:"submitted_by"`

	// Status of the request
	Status ReviewRequestStatus `json:"status"`

	// ExecutionID is the most recent execution for this request
	ExecutionID string `json:"execution_id,omitempty"`

	// CreatedAt is when the request was submitted
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the request was last updated
	UpdatedAt time.Time `json:"updated_at"`
}
