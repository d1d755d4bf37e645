package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/pkg/analysis"
	"github.com/archlens/archlens/pkg/config"
	"github.com/archlens/archlens/pkg/documents"
	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/orchestrator"
	"github.com/archlens/archlens/pkg/services"
	"github.com/archlens/archlens/pkg/storage"
)

// cannedAnalyzer returns a fixed result for every invocation
type cannedAnalyzer struct{}

func (cannedAnalyzer) Analyze(_ context.Context, _ analysis.Request) (analysis.Result, error) {
	return analysis.Result{
		Findings:        "The documented architecture holds up well under the evaluated criteria with a small number of gaps.",
		Recommendations: []string{"tighten the gaps"},
	}, nil
}

type apiFixture struct {
	server *Server
	token  string
	store  *storage.MemoryExecutionStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	executionStore := storage.NewMemoryExecutionStore()
	configStore := storage.NewMemoryConfigStore()
	reviewStore := storage.NewMemoryReviewRequestStore()

	docs := documents.NewMemoryProvider()
	docs.Put(documents.Document{
		ID:      "doc-1",
		Version: "1",
		Title:   "Checkout redesign",
		Content: "A queue decouples order intake from fulfilment. Failures on the fulfilment side are retried with backoff.",
	})

	registry := analysis.NewRegistry()
	for _, dim := range models.KnownDimensions() {
		registry.Register(dim, cannedAnalyzer{})
	}

	configService := services.NewConfigService(configStore)
	reviewService := services.NewReviewService(reviewStore, nil)
	jwtService := services.NewJWTService("test-secret", 1)

	orch := orchestrator.NewOrchestrator(executionStore, docs, configService, registry,
		orchestrator.WithListener(reviewService))
	statusReporter := orchestrator.NewStatusReporter(executionStore)

	server := NewServer(config.DefaultConfig(), orch, statusReporter, reviewService, configService, jwtService, nil)

	token, err := jwtService.GenerateToken("user-1", "reviewer")
	require.NoError(t, err)

	return &apiFixture{server: server, token: token, store: executionStore}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExecutionsRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/executions", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartExecutionLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	// Submit the review request first
	rec := f.do(t, http.MethodPost, "/api/v1/review-requests", map[string]string{
		"document_id":      "doc-1",
		"document_version": "1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reviewRequest models.ReviewRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviewRequest))
	assert.Equal(t, "user-1", reviewRequest.SubmittedBy)

	// Start the execution
	rec = f.do(t, http.MethodPost, "/api/v1/executions", models.ExecuteRequest{
		ReviewRequestID:    reviewRequest.ID,
		DocumentID:         "doc-1",
		DocumentVersion:    "1",
		SelectedDimensions: []models.Dimension{models.DimensionSecurity, models.DimensionReliability},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started struct {
		ExecutionID string `json:"execution_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.ExecutionID)

	// Poll until terminal
	require.Eventually(t, func() bool {
		execution, err := f.store.GetExecution(started.ExecutionID)
		return err == nil && execution.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	rec = f.do(t, http.MethodGet, "/api/v1/executions/"+started.ExecutionID+"/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.Execution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.ExecutionCompleted, status.Status)
	assert.Len(t, status.Results, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/executions/"+started.ExecutionID+"/result", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.Execution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.OverviewSummary)
	assert.NotEmpty(t, result.ExecutiveSummary)

	// The review request was marked reviewed by the completion event
	rec = f.do(t, http.MethodGet, "/api/v1/review-requests/"+reviewRequest.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviewRequest))
	assert.Equal(t, models.ReviewRequestReviewed, reviewRequest.Status)
	assert.Equal(t, started.ExecutionID, reviewRequest.ExecutionID)
}

func TestListReviewRequestExecutions(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/review-requests", map[string]string{
		"document_id":      "doc-1",
		"document_version": "1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var reviewRequest models.ReviewRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviewRequest))

	// No executions yet: an empty list, not null
	rec = f.do(t, http.MethodGet, "/api/v1/review-requests/"+reviewRequest.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/executions", models.ExecuteRequest{
		ReviewRequestID:    reviewRequest.ID,
		DocumentID:         "doc-1",
		DocumentVersion:    "1",
		SelectedDimensions: []models.Dimension{models.DimensionSecurity},
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started struct {
		ExecutionID string `json:"execution_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))

	require.Eventually(t, func() bool {
		execution, err := f.store.GetExecution(started.ExecutionID)
		return err == nil && execution.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)

	rec = f.do(t, http.MethodGet, "/api/v1/review-requests/"+reviewRequest.ID+"/executions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var executions []models.Execution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &executions))
	require.Len(t, executions, 1)
	assert.Equal(t, started.ExecutionID, executions[0].ID)

	// Unknown review request ids are rejected before listing
	rec = f.do(t, http.MethodGet, "/api/v1/review-requests/no-such-id/executions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartExecutionValidation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/executions", models.ExecuteRequest{
		ReviewRequestID: "rr-1",
		DocumentID:      "doc-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "selected_dimensions")
}

func TestGetExecutionStatusNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/executions/no-such-id/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetResultBeforeCompletion(t *testing.T) {
	f := newAPIFixture(t)

	require.NoError(t, f.store.CreateExecution(models.Execution{
		ID:        "exec-1",
		Status:    models.ExecutionInProgress,
		StartedAt: time.Now(),
	}))

	rec := f.do(t, http.MethodGet, "/api/v1/executions/exec-1/result", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigurationRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	payload := models.ConfigPayload{
		SystemPrompt:   "you are a security reviewer",
		PromptTemplate: "Review:\n{{.Content}}",
		Model:          "gpt-4o",
	}

	rec := f.do(t, http.MethodPut, "/api/v1/configurations/security", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.ConfigVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Active)
	assert.Equal(t, "user-1", created.CreatedBy)

	rec = f.do(t, http.MethodGet, "/api/v1/configurations/security", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var active models.ConfigVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.Equal(t, created.ID, active.ID)

	// Second version supersedes the first
	payload.SystemPrompt = "updated prompt"
	rec = f.do(t, http.MethodPut, "/api/v1/configurations/security", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/configurations/security/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []models.ConfigVersion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.True(t, history[0].Active)
	assert.False(t, history[1].Active)

	rec = f.do(t, http.MethodGet, "/api/v1/configurations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "security")
}

func TestGetActiveConfigMissing(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/configurations/security", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
