package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/pkg/models"
)

func newTestExecution(id string) models.Execution {
	return models.Execution{
		ID:                 id,
		ReviewRequestID:    "rr-1",
		DocumentID:         "doc-1",
		DocumentVersion:    "1",
		SelectedDimensions: []models.Dimension{models.DimensionSecurity},
		Status:             models.ExecutionInProgress,
		Results:            map[models.Dimension]models.DimensionResult{},
		StartedAt:          time.Now(),
	}
}

func TestMemoryExecutionStoreCreateAndGet(t *testing.T) {
	store := NewMemoryExecutionStore()

	execution := newTestExecution("exec-1")
	require.NoError(t, store.CreateExecution(execution))

	got, err := store.GetExecution("exec-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-1", got.ID)
	assert.Equal(t, models.ExecutionInProgress, got.Status)

	// Creating the same id twice is rejected
	assert.ErrorIs(t, store.CreateExecution(execution), ErrExecutionExists)

	_, err = store.GetExecution("missing")
	assert.ErrorIs(t, err, ErrExecutionNotFound)
}

func TestMemoryExecutionStoreUpdate(t *testing.T) {
	store := NewMemoryExecutionStore()
	require.NoError(t, store.CreateExecution(newTestExecution("exec-1")))

	completed := models.ExecutionCompleted
	overview := "all good"
	completedAt := time.Now()
	err := store.UpdateExecution("exec-1", ExecutionUpdate{
		Status:          &completed,
		OverviewSummary: &overview,
		CompletedAt:     &completedAt,
		Results: map[models.Dimension]models.DimensionResult{
			models.DimensionSecurity: {
				DimensionID: models.DimensionSecurity,
				Status:      models.DimensionCompleted,
				Findings:    "no issues",
			},
		},
	})
	require.NoError(t, err)

	got, err := store.GetExecution("exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCompleted, got.Status)
	assert.Equal(t, "all good", got.OverviewSummary)
	assert.Len(t, got.Results, 1)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestMemoryExecutionStoreTerminalIsImmutable(t *testing.T) {
	store := NewMemoryExecutionStore()
	require.NoError(t, store.CreateExecution(newTestExecution("exec-1")))

	failed := models.ExecutionFailed
	completedAt := time.Now()
	require.NoError(t, store.UpdateExecution("exec-1", ExecutionUpdate{
		Status:      &failed,
		CompletedAt: &completedAt,
	}))

	// Any further write is rejected
	inProgress := models.ExecutionInProgress
	assert.ErrorIs(t, store.UpdateExecution("exec-1", ExecutionUpdate{Status: &inProgress}), ErrExecutionTerminal)
	assert.ErrorIs(t, store.SaveDimensionResult("exec-1", models.DimensionResult{
		DimensionID: models.DimensionSecurity,
	}), ErrExecutionTerminal)

	got, err := store.GetExecution("exec-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionFailed, got.Status)
	assert.Empty(t, got.Results)
}

func TestMemoryExecutionStoreSaveDimensionResult(t *testing.T) {
	store := NewMemoryExecutionStore()
	require.NoError(t, store.CreateExecution(newTestExecution("exec-1")))

	require.NoError(t, store.SaveDimensionResult("exec-1", models.DimensionResult{
		DimensionID: models.DimensionSecurity,
		Status:      models.DimensionCompleted,
		Findings:    "looks fine",
		CompletedAt: time.Now(),
	}))

	got, err := store.GetExecution("exec-1")
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, models.DimensionCompleted, got.Results[models.DimensionSecurity].Status)
	// Record is still in progress
	assert.Equal(t, models.ExecutionInProgress, got.Status)
}

func TestMemoryExecutionStoreReturnsCopies(t *testing.T) {
	store := NewMemoryExecutionStore()
	require.NoError(t, store.CreateExecution(newTestExecution("exec-1")))

	got, err := store.GetExecution("exec-1")
	require.NoError(t, err)
	got.Results[models.DimensionSecurity] = models.DimensionResult{DimensionID: models.DimensionSecurity}

	again, err := store.GetExecution("exec-1")
	require.NoError(t, err)
	assert.Empty(t, again.Results, "mutating a returned record must not affect stored state")
}

func TestMemoryExecutionStoreListExecutions(t *testing.T) {
	store := NewMemoryExecutionStore()

	older := newTestExecution("exec-1")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := newTestExecution("exec-2")

	require.NoError(t, store.CreateExecution(older))
	require.NoError(t, store.CreateExecution(newer))

	other := newTestExecution("exec-3")
	other.ReviewRequestID = "rr-2"
	require.NoError(t, store.CreateExecution(other))

	executions, err := store.ListExecutions("rr-1")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, "exec-2", executions[0].ID)
	assert.Equal(t, "exec-1", executions[1].ID)
}

func TestMemoryConfigStoreVersions(t *testing.T) {
	store := NewMemoryConfigStore()

	v1 := models.ConfigVersion{
		ID:        "v1",
		Key:       "security",
		CreatedBy: "x",
		CreatedAt: time.Now().Add(-time.Minute),
		Active:    true,
	}
	v2 := models.ConfigVersion{
		ID:        "v2",
		Key:       "security",
		CreatedBy: "y",
		CreatedAt: time.Now(),
		Active:    true,
	}

	require.NoError(t, store.SaveConfigVersion(v1))
	require.NoError(t, store.SaveConfigVersion(v2))

	versions, err := store.GetConfigVersions("security")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "v2", versions[0].ID, "most recent version comes first")

	v1.Active = false
	require.NoError(t, store.UpdateConfigVersion(v1))

	versions, err = store.GetConfigVersions("security")
	require.NoError(t, err)
	assert.False(t, versions[1].Active)

	assert.ErrorIs(t, store.UpdateConfigVersion(models.ConfigVersion{ID: "nope", Key: "security"}), ErrConfigVersionNotFound)

	keys, err := store.ListConfigKeys()
	require.NoError(t, err)
	assert.Equal(t, []string{"security"}, keys)
}

func TestMemoryReviewRequestStore(t *testing.T) {
	store := NewMemoryReviewRequestStore()

	require.NoError(t, store.SaveReviewRequest(models.ReviewRequest{
		ID:         "rr-1",
		DocumentID: "doc-1",
		Status:     models.ReviewRequestSubmitted,
		CreatedAt:  time.Now(),
	}))

	require.NoError(t, store.UpdateReviewRequestStatus("rr-1", models.ReviewRequestReviewed, "exec-1"))

	got, err := store.GetReviewRequest("rr-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRequestReviewed, got.Status)
	assert.Equal(t, "exec-1", got.ExecutionID)

	assert.ErrorIs(t, store.UpdateReviewRequestStatus("missing", models.ReviewRequestFailed, ""), ErrReviewRequestNotFound)
}
