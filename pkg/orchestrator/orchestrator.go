package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/archlens/archlens/pkg/analysis"
	"github.com/archlens/archlens/pkg/documents"
	"github.com/archlens/archlens/pkg/logging"
	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/storage"
)

// Orchestrator owns the review execution lifecycle
type Orchestrator struct {
	executions  storage.ExecutionStore
	documents   documents.Provider
	configs     ConfigResolver
	analyzers   *analysis.Registry
	logger      logging.Logger
	listener    ExecutionListener
	broadcaster StatusBroadcaster
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithListener registers a terminal-state listener
func WithListener(listener ExecutionListener) Option {
	return func(o *Orchestrator) {
		o.listener = listener
	}
}

// WithBroadcaster registers a live status broadcaster
func WithBroadcaster(broadcaster StatusBroadcaster) Option {
	return func(o *Orchestrator) {
		o.broadcaster = broadcaster
	}
}

// NewOrchestrator creates an orchestrator over the given collaborators
func NewOrchestrator(
	executions storage.ExecutionStore,
	docs documents.Provider,
	configs ConfigResolver,
	analyzers *analysis.Registry,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		executions: executions,
		documents:  docs,
		configs:    configs,
		analyzers:  analyzers,
		logger:     logging.NopLogger{},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Execute runs a review execution to a terminal state and returns its id.
// The call returns only once the execution record is Completed or Failed.
func (o *Orchestrator) Execute(ctx context.Context, req models.ExecuteRequest) (string, error) {
	execution, err := o.begin(req)
	if err != nil {
		return "", err
	}

	return execution.ID, o.runToCompletion(ctx, execution, req)
}

// Start creates the execution record, then runs the orchestration detached
// from the caller. The returned id can be polled immediately.
func (o *Orchestrator) Start(ctx context.Context, req models.ExecuteRequest) (string, error) {
	execution, err := o.begin(req)
	if err != nil {
		return "", err
	}

	go func() {
		// Detached from the caller's request lifetime
		_ = o.runToCompletion(context.Background(), execution, req)
	}()

	return execution.ID, nil
}

// begin validates the request and persists the initial execution record.
// Nothing else happens until this write succeeds.
func (o *Orchestrator) begin(req models.ExecuteRequest) (models.Execution, error) {
	if err := req.Validate(); err != nil {
		return models.Execution{}, err
	}

	execution := models.Execution{
		ID:                 uuid.New().String(),
		ReviewRequestID:    req.ReviewRequestID,
		DocumentID:         req.DocumentID,
		DocumentVersion:    req.DocumentVersion,
		SelectedDimensions: append([]models.Dimension(nil), req.SelectedDimensions...),
		Status:             models.ExecutionInProgress,
		Results:            make(map[models.Dimension]models.DimensionResult),
		StartedAt:          time.Now(),
	}

	if err := o.executions.CreateExecution(execution); err != nil {
		return models.Execution{}, &models.StoreError{Op: "create execution", Err: err}
	}

	o.logger.LogExecutionEvent(execution.ID, "created", map[string]interface{}{
		"review_request_id": req.ReviewRequestID,
		"document_id":       req.DocumentID,
		"dimensions":        len(req.SelectedDimensions),
	})

	return execution, nil
}

// runToCompletion drives the execution to a terminal state. Any error outside
// the per-dimension tolerance is caught here, persisted as a Failed terminal
// state, and returned to the caller.
func (o *Orchestrator) runToCompletion(ctx context.Context, execution models.Execution, req models.ExecuteRequest) error {
	err := o.run(ctx, &execution, req)
	if err == nil {
		o.notify(execution)
		return nil
	}

	o.logger.Error("execution failed",
		logging.F("execution_id", execution.ID),
		logging.F("error", err.Error()))

	now := time.Now()
	failed := models.ExecutionFailed
	msg := err.Error()
	if updateErr := o.executions.UpdateExecution(execution.ID, storage.ExecutionUpdate{
		Status:      &failed,
		Results:     execution.Results,
		Error:       &msg,
		CompletedAt: &now,
	}); updateErr != nil {
		o.logger.Error("failed to persist terminal failure",
			logging.F("execution_id", execution.ID),
			logging.F("error", updateErr.Error()))
	}

	execution.Status = models.ExecutionFailed
	execution.Error = msg
	execution.CompletedAt = now
	o.broadcast(execution)
	o.notify(execution)

	return err
}

// run performs steps 2-7 of the execution: document resolution, config
// resolution, fan-out, auxiliary analyses, aggregation and final persistence
func (o *Orchestrator) run(ctx context.Context, execution *models.Execution, req models.ExecuteRequest) error {
	doc, err := o.documents.Get(ctx, req.DocumentID, req.DocumentVersion)
	if err != nil {
		// Without the document no dimension can be evaluated
		return fmt.Errorf("document resolution failed: %w", err)
	}

	configs, err := o.resolveConfigs(req.SelectedDimensions)
	if err != nil {
		return err
	}

	execution.Results = o.fanOut(ctx, execution.ID, doc, req, configs)
	o.broadcast(*execution)

	vision, governance := o.auxiliaryAnalyses(ctx, execution.ID, doc, req)

	summary := Summarize(SummaryInput{
		SelectedDimensions:   req.SelectedDimensions,
		Results:              execution.Results,
		VisionFindings:       vision.Findings,
		GovernanceFindings:   governance.Findings,
		GovernanceViolations: governance.Violations,
	})

	now := time.Now()
	completed := models.ExecutionCompleted
	if err := o.executions.UpdateExecution(execution.ID, storage.ExecutionUpdate{
		Status:           &completed,
		Results:          execution.Results,
		OverviewSummary:  &summary.Overview,
		ExecutiveSummary: &summary.Executive,
		CompletedAt:      &now,
	}); err != nil {
		return &models.StoreError{Op: "finalize execution", Err: err}
	}

	execution.Status = models.ExecutionCompleted
	execution.OverviewSummary = summary.Overview
	execution.ExecutiveSummary = summary.Executive
	execution.CompletedAt = now
	o.broadcast(*execution)

	o.logger.LogExecutionEvent(execution.ID, "completed", map[string]interface{}{
		"dimensions": len(execution.Results),
	})

	return nil
}

// resolveConfigs resolves the active configuration per dimension, substituting
// the compiled-in default when no active version exists. Infrastructure
// failures here are fatal to the execution.
func (o *Orchestrator) resolveConfigs(dimensions []models.Dimension) (map[models.Dimension]models.ConfigPayload, error) {
	configs := make(map[models.Dimension]models.ConfigPayload, len(dimensions))

	for _, dim := range dimensions {
		payload, err := o.resolveConfig(string(dim))
		if err != nil {
			return nil, err
		}
		configs[dim] = payload
	}

	return configs, nil
}

// resolveConfig returns the active payload for a key, or its built-in default
func (o *Orchestrator) resolveConfig(key string) (models.ConfigPayload, error) {
	version, err := o.configs.GetActive(key)
	if err == nil {
		return version.Payload, nil
	}

	if models.IsNotFound(err) {
		if payload, ok := analysis.DefaultConfig(key); ok {
			o.logger.Debug("using built-in default config", logging.F("key", key))
			return payload, nil
		}
		return models.ConfigPayload{}, fmt.Errorf("no configuration or default for key %q", key)
	}

	return models.ConfigPayload{}, fmt.Errorf("configuration resolution failed for %q: %w", key, err)
}

// fanOut invokes every selected dimension's analysis unit concurrently and
// collects the settled results. Per-call failures are captured into the result
// map and never abort the batch.
func (o *Orchestrator) fanOut(
	ctx context.Context,
	executionID string,
	doc documents.Document,
	req models.ExecuteRequest,
	configs map[models.Dimension]models.ConfigPayload,
) map[models.Dimension]models.DimensionResult {
	resultCh := make(chan models.DimensionResult, len(req.SelectedDimensions))

	var wg sync.WaitGroup
	for _, dim := range req.SelectedDimensions {
		wg.Add(1)
		go func(dim models.Dimension) {
			defer wg.Done()
			resultCh <- o.runDimension(ctx, executionID, dim, doc, configs[dim], req.Instructions[dim])
		}(dim)
	}

	wg.Wait()
	close(resultCh)

	results := make(map[models.Dimension]models.DimensionResult, len(req.SelectedDimensions))
	for result := range resultCh {
		results[result.DimensionID] = result
	}

	return results
}

// runDimension executes one analysis unit, converting any error or panic into
// a failed DimensionResult
func (o *Orchestrator) runDimension(
	ctx context.Context,
	executionID string,
	dim models.Dimension,
	doc documents.Document,
	cfg models.ConfigPayload,
	instructions string,
) (result models.DimensionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = o.failedDimension(executionID, dim, fmt.Errorf("analysis panicked: %v", r))
		}
	}()

	analyzer, err := o.analyzers.ForDimension(dim)
	if err != nil {
		return o.failedDimension(executionID, dim, err)
	}

	out, err := analyzer.Analyze(ctx, analysis.Request{
		Document:     doc,
		Config:       cfg,
		Instructions: instructions,
	})
	if err != nil {
		return o.failedDimension(executionID, dim, err)
	}

	result = models.DimensionResult{
		DimensionID:          dim,
		Status:               models.DimensionCompleted,
		Findings:             out.Findings,
		Recommendations:      out.Recommendations,
		GovernanceViolations: out.Violations,
		CompletedAt:          time.Now(),
	}

	o.logger.LogDimensionEvent(executionID, string(dim), "completed", map[string]interface{}{
		"recommendations": len(result.Recommendations),
		"violations":      len(result.GovernanceViolations),
	})
	o.saveDimensionResult(executionID, result)

	return result
}

// failedDimension records a captured per-dimension failure
func (o *Orchestrator) failedDimension(executionID string, dim models.Dimension, err error) models.DimensionResult {
	o.logger.LogDimensionEvent(executionID, string(dim), "failed", map[string]interface{}{
		"error": err.Error(),
	})

	result := models.DimensionResult{
		DimensionID: dim,
		Status:      models.DimensionFailed,
		Error:       err.Error(),
		CompletedAt: time.Now(),
	}
	o.saveDimensionResult(executionID, result)

	return result
}

// saveDimensionResult writes through a settled result so pollers see progress.
// Write-through is best-effort; the full map is persisted again at the end.
func (o *Orchestrator) saveDimensionResult(executionID string, result models.DimensionResult) {
	if err := o.executions.SaveDimensionResult(executionID, result); err != nil {
		o.logger.Warn("failed to write through dimension result",
			logging.F("execution_id", executionID),
			logging.F("dimension", string(result.DimensionID)),
			logging.F("error", err.Error()))
	}
}

// auxiliaryAnalyses runs the diagram and governance passes. They run
// concurrently, independently of each other, and their failure only degrades
// the summary.
func (o *Orchestrator) auxiliaryAnalyses(
	ctx context.Context,
	executionID string,
	doc documents.Document,
	req models.ExecuteRequest,
) (vision analysis.Result, governance analysis.Result) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		vision = o.runAuxiliary(ctx, executionID, "vision", o.analyzers.Vision(), analysis.VisionConfigKey, analysis.Request{
			Document: doc,
		})
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		governance = o.runAuxiliary(ctx, executionID, "governance", o.analyzers.Governance(), analysis.GovernanceConfigKey, analysis.Request{
			Document:  doc,
			PolicyIDs: req.GovernancePolicyIDs,
		})
	}()

	wg.Wait()
	return vision, governance
}

// runAuxiliary executes one independently-failing analysis pass
func (o *Orchestrator) runAuxiliary(
	ctx context.Context,
	executionID string,
	name string,
	analyzer analysis.Analyzer,
	configKey string,
	req analysis.Request,
) (result analysis.Result) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn(name+" analysis panicked",
				logging.F("execution_id", executionID),
				logging.F("panic", fmt.Sprint(r)))
			result = analysis.Result{}
		}
	}()

	if analyzer == nil {
		return analysis.Result{}
	}

	payload, err := o.resolveConfig(configKey)
	if err != nil {
		o.logger.Warn(name+" config resolution failed",
			logging.F("execution_id", executionID),
			logging.F("error", err.Error()))
		return analysis.Result{}
	}
	req.Config = payload

	out, err := analyzer.Analyze(ctx, req)
	if err != nil {
		o.logger.Warn(name+" analysis failed",
			logging.F("execution_id", executionID),
			logging.F("error", err.Error()))
		return analysis.Result{}
	}

	return out
}

// broadcast pushes current execution state to live subscribers, if any
func (o *Orchestrator) broadcast(execution models.Execution) {
	if o.broadcaster != nil {
		o.broadcaster.BroadcastExecution(execution.Clone())
	}
}

// notify informs the originating review request of the terminal status.
// Failures are logged and swallowed.
func (o *Orchestrator) notify(execution models.Execution) {
	if o.listener == nil {
		return
	}

	event := ExecutionCompletedEvent{
		ReviewRequestID: execution.ReviewRequestID,
		ExecutionID:     execution.ID,
		Status:          execution.Status,
		CompletedAt:     execution.CompletedAt,
	}

	if err := o.listener.ExecutionCompleted(event); err != nil {
		o.logger.Warn("execution completed notification failed",
			logging.F("execution_id", execution.ID),
			logging.F("review_request_id", execution.ReviewRequestID),
			logging.F("error", err.Error()))
	}
}
