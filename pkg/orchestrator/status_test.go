package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/storage"
)

func TestGetStatusUnknownExecution(t *testing.T) {
	reporter := NewStatusReporter(storage.NewMemoryExecutionStore())

	_, err := reporter.GetStatus("no-such-execution")
	assert.True(t, models.IsNotFound(err), "expected not found, got %v", err)
}

func TestGetStatusReflectsInProgressState(t *testing.T) {
	store := storage.NewMemoryExecutionStore()
	require.NoError(t, store.CreateExecution(models.Execution{
		ID:                 "exec-1",
		ReviewRequestID:    "rr-1",
		DocumentID:         "doc-1",
		SelectedDimensions: []models.Dimension{models.DimensionSecurity, models.DimensionReliability},
		Status:             models.ExecutionInProgress,
		Results:            map[models.Dimension]models.DimensionResult{},
		StartedAt:          time.Now(),
	}))
	require.NoError(t, store.SaveDimensionResult("exec-1", models.DimensionResult{
		DimensionID: models.DimensionSecurity,
		Status:      models.DimensionCompleted,
		Findings:    "done early",
	}))

	reporter := NewStatusReporter(store)
	execution, err := reporter.GetStatus("exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionInProgress, execution.Status)

	// Partial results are visible before the execution settles
	require.Contains(t, execution.Results, models.DimensionSecurity)
	assert.NotContains(t, execution.Results, models.DimensionReliability)
}

func TestListExecutionsNewestFirst(t *testing.T) {
	store := storage.NewMemoryExecutionStore()

	older := models.Execution{
		ID:              "exec-1",
		ReviewRequestID: "rr-1",
		Status:          models.ExecutionInProgress,
		StartedAt:       time.Now().Add(-time.Hour),
	}
	newer := models.Execution{
		ID:              "exec-2",
		ReviewRequestID: "rr-1",
		Status:          models.ExecutionInProgress,
		StartedAt:       time.Now(),
	}
	unrelated := models.Execution{
		ID:              "exec-3",
		ReviewRequestID: "rr-2",
		Status:          models.ExecutionInProgress,
		StartedAt:       time.Now(),
	}
	require.NoError(t, store.CreateExecution(older))
	require.NoError(t, store.CreateExecution(newer))
	require.NoError(t, store.CreateExecution(unrelated))

	reporter := NewStatusReporter(store)
	executions, err := reporter.ListExecutions("rr-1")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "exec-2", executions[0].ID)
	assert.Equal(t, "exec-1", executions[1].ID)
}

func TestGetResultRequiresCompletion(t *testing.T) {
	store := storage.NewMemoryExecutionStore()
	require.NoError(t, store.CreateExecution(models.Execution{
		ID:        "exec-1",
		Status:    models.ExecutionInProgress,
		StartedAt: time.Now(),
	}))

	reporter := NewStatusReporter(store)
	_, err := reporter.GetResult("exec-1")
	assert.True(t, models.IsValidation(err), "expected validation error, got %v", err)
}

func TestGetResultOfFailedExecution(t *testing.T) {
	store := storage.NewMemoryExecutionStore()
	require.NoError(t, store.CreateExecution(models.Execution{
		ID:        "exec-1",
		Status:    models.ExecutionInProgress,
		StartedAt: time.Now(),
	}))

	failed := models.ExecutionFailed
	msg := "document resolution failed"
	now := time.Now()
	require.NoError(t, store.UpdateExecution("exec-1", storage.ExecutionUpdate{
		Status:      &failed,
		Error:       &msg,
		CompletedAt: &now,
	}))

	reporter := NewStatusReporter(store)
	_, err := reporter.GetResult("exec-1")
	assert.True(t, models.IsValidation(err), "failed executions have no result to fetch")

	// The failure detail stays reachable through the status path
	execution, err := reporter.GetStatus("exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionFailed, execution.Status)
	assert.Equal(t, msg, execution.Error)
}

func TestGetResultOfCompletedExecution(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()

	id, err := o.Execute(context.Background(), validRequest(models.DimensionSecurity))
	require.NoError(t, err)

	reporter := NewStatusReporter(f.store)
	execution, err := reporter.GetResult(id)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCompleted, execution.Status)
	assert.NotEmpty(t, execution.OverviewSummary)
	assert.NotEmpty(t, execution.ExecutiveSummary)
}
