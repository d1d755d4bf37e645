package orchestrator

import (
	"errors"

	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/storage"
)

// StatusReporter is the read path over execution records. It reflects the
// latest persisted state, including partially-populated results while an
// execution is still in progress.
type StatusReporter struct {
	executions storage.ExecutionStore
}

// NewStatusReporter creates a status reporter over the execution store
func NewStatusReporter(executions storage.ExecutionStore) *StatusReporter {
	return &StatusReporter{executions: executions}
}

// GetStatus returns the current state of an execution
func (r *StatusReporter) GetStatus(executionID string) (models.Execution, error) {
	execution, err := r.executions.GetExecution(executionID)
	if err != nil {
		if errors.Is(err, storage.ErrExecutionNotFound) {
			return models.Execution{}, models.NewNotFoundError("execution", executionID)
		}
		return models.Execution{}, &models.StoreError{Op: "get execution", Err: err}
	}

	return execution, nil
}

// ListExecutions returns every execution recorded for a review request,
// newest first
func (r *StatusReporter) ListExecutions(reviewRequestID string) ([]models.Execution, error) {
	executions, err := r.executions.ListExecutions(reviewRequestID)
	if err != nil {
		return nil, &models.StoreError{Op: "list executions", Err: err}
	}
	return executions, nil
}

// GetResult returns the full report of a completed execution. Calling it
// before completion fails with a ValidationError.
func (r *StatusReporter) GetResult(executionID string) (models.Execution, error) {
	execution, err := r.GetStatus(executionID)
	if err != nil {
		return models.Execution{}, err
	}

	if execution.Status != models.ExecutionCompleted {
		return models.Execution{}, models.NewValidationError("execution %s is not yet completed", executionID)
	}

	return execution, nil
}
