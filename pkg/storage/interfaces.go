// Package storage provides interfaces for persistent storage.
package storage

import (
	"errors"
	"time"

	"github.com/archlens/archlens/pkg/models"
)

// nowFunc is indirected so tests can pin timestamps
var nowFunc = time.Now

// Errors returned by storage providers
var (
	ErrExecutionNotFound     = errors.New("execution not found")
	ErrExecutionExists       = errors.New("execution already exists")
	ErrExecutionTerminal     = errors.New("execution is in a terminal state")
	ErrConfigVersionNotFound = errors.New("config version not found")
	ErrReviewRequestNotFound = errors.New("review request not found")
)

// StorageProvider defines the interface for persistence backends
type StorageProvider interface {
	// Initialize sets up the storage backend
	Initialize() error

	// Close cleans up resources
	Close() error

	// GetExecutionStore returns a store for execution records
	GetExecutionStore() ExecutionStore

	// GetConfigStore returns a store for configuration versions
	GetConfigStore() ConfigStore

	// GetReviewRequestStore returns a store for review requests
	GetReviewRequestStore() ReviewRequestStore
}

// ExecutionUpdate is a field-level partial update of an execution record.
// Nil fields are left unchanged.
type ExecutionUpdate struct {
	// Status transition, if any
	Status *models.ExecutionStatus

	// Results replaces the full result map when non-nil
	Results map[models.Dimension]models.DimensionResult

	// OverviewSummary narrative text
	OverviewSummary *string

	// ExecutiveSummary digest text
	ExecutiveSummary *string

	// Error message for failed executions
	Error *string

	// CompletedAt terminal timestamp
	CompletedAt *time.Time
}

// ExecutionStore manages execution record persistence.
// Implementations must reject writes to executions that already reached a
// terminal status, so completed results can never change.
type ExecutionStore interface {
	// CreateExecution persists a new execution record
	CreateExecution(execution models.Execution) error

	// GetExecution retrieves an execution record
	GetExecution(executionID string) (models.Execution, error)

	// UpdateExecution applies a field-level update to an execution record
	UpdateExecution(executionID string, update ExecutionUpdate) error

	// SaveDimensionResult writes through one settled dimension result while
	// the execution is still in progress
	SaveDimensionResult(executionID string, result models.DimensionResult) error

	// ListExecutions returns all executions for a review request, newest first
	ListExecutions(reviewRequestID string) ([]models.Execution, error)
}

// ConfigStore manages the append-only configuration version log
type ConfigStore interface {
	// SaveConfigVersion inserts a new version row
	SaveConfigVersion(version models.ConfigVersion) error

	// UpdateConfigVersion rewrites an existing version row (used to flip the active flag)
	UpdateConfigVersion(version models.ConfigVersion) error

	// GetConfigVersions returns all versions for a key, most recent first
	GetConfigVersions(key string) ([]models.ConfigVersion, error)

	// ListConfigKeys returns every key that has at least one version
	ListConfigKeys() ([]string, error)
}

// ReviewRequestStore manages review request persistence
type ReviewRequestStore interface {
	// SaveReviewRequest persists a review request
	SaveReviewRequest(request models.ReviewRequest) error

	// GetReviewRequest retrieves a review request
	GetReviewRequest(id string) (models.ReviewRequest, error)

	// UpdateReviewRequestStatus records the outcome of an execution on the request
	UpdateReviewRequestStatus(id string, status models.ReviewRequestStatus, executionID string) error
}
