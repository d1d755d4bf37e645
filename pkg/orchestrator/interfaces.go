// Package orchestrator drives review executions: fan-out to the analysis
// units, fan-in of their results, summary aggregation and final persistence.
package orchestrator

import (
	"time"

	"github.com/archlens/archlens/pkg/models"
)

// ConfigResolver resolves the active configuration version for a key
type ConfigResolver interface {
	// GetActive returns the active version, or models.NotFoundError if the
	// key has no active version
	GetActive(key string) (models.ConfigVersion, error)
}

// ExecutionCompletedEvent is emitted when an execution reaches a terminal state
type ExecutionCompletedEvent struct {
	// ReviewRequestID is the originating review request
	ReviewRequestID string

	// ExecutionID is the terminal execution
	ExecutionID string

	// Status is the terminal status
	Status models.ExecutionStatus

	// CompletedAt is the terminal timestamp
	CompletedAt time.Time
}

// ExecutionListener is notified when an execution reaches a terminal state.
// Notification is best-effort: listener errors are logged and swallowed, never
// surfaced to the caller of Execute.
type ExecutionListener interface {
	ExecutionCompleted(event ExecutionCompletedEvent) error
}

// StatusBroadcaster pushes execution state to live subscribers as it changes
type StatusBroadcaster interface {
	BroadcastExecution(execution models.Execution)
}
