package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/archlens/archlens/pkg/models"
)

// MemoryProvider implements the StorageProvider interface using in-memory storage
type MemoryProvider struct {
	executionStore     *MemoryExecutionStore
	configStore        *MemoryConfigStore
	reviewRequestStore *MemoryReviewRequestStore
}

// NewMemoryProvider creates a new in-memory storage provider
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		executionStore:     NewMemoryExecutionStore(),
		configStore:        NewMemoryConfigStore(),
		reviewRequestStore: NewMemoryReviewRequestStore(),
	}
}

// Initialize sets up the storage backend
func (p *MemoryProvider) Initialize() error {
	// Nothing to initialize for in-memory storage
	return nil
}

// Close cleans up resources
func (p *MemoryProvider) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

// GetExecutionStore returns a store for execution records
func (p *MemoryProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// GetConfigStore returns a store for configuration versions
func (p *MemoryProvider) GetConfigStore() ConfigStore {
	return p.configStore
}

// GetReviewRequestStore returns a store for review requests
func (p *MemoryProvider) GetReviewRequestStore() ReviewRequestStore {
	return p.reviewRequestStore
}

// MemoryExecutionStore implements the ExecutionStore interface using in-memory storage
type MemoryExecutionStore struct {
	executions map[string]models.Execution
	mu         sync.RWMutex
}

// NewMemoryExecutionStore creates a new in-memory execution store
func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{
		executions: make(map[string]models.Execution),
	}
}

// CreateExecution persists a new execution record
func (s *MemoryExecutionStore) CreateExecution(execution models.Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.executions[execution.ID]; ok {
		return ErrExecutionExists
	}

	s.executions[execution.ID] = execution.Clone()
	return nil
}

// GetExecution retrieves an execution record
func (s *MemoryExecutionStore) GetExecution(executionID string) (models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	execution, ok := s.executions[executionID]
	if !ok {
		return models.Execution{}, ErrExecutionNotFound
	}

	return execution.Clone(), nil
}

// UpdateExecution applies a field-level update to an execution record
func (s *MemoryExecutionStore) UpdateExecution(executionID string, update ExecutionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	execution, ok := s.executions[executionID]
	if !ok {
		return ErrExecutionNotFound
	}

	// Terminal records are immutable
	if execution.Status.Terminal() {
		return ErrExecutionTerminal
	}

	if update.Status != nil {
		execution.Status = *update.Status
	}
	if update.Results != nil {
		results := make(map[models.Dimension]models.DimensionResult, len(update.Results))
		for k, v := range update.Results {
			results[k] = v
		}
		execution.Results = results
	}
	if update.OverviewSummary != nil {
		execution.OverviewSummary = *update.OverviewSummary
	}
	if update.ExecutiveSummary != nil {
		execution.ExecutiveSummary = *update.ExecutiveSummary
	}
	if update.Error != nil {
		execution.Error = *update.Error
	}
	if update.CompletedAt != nil {
		execution.CompletedAt = *update.CompletedAt
	}

	s.executions[executionID] = execution.Clone()
	return nil
}

// SaveDimensionResult writes through one settled dimension result
func (s *MemoryExecutionStore) SaveDimensionResult(executionID string, result models.DimensionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	execution, ok := s.executions[executionID]
	if !ok {
		return ErrExecutionNotFound
	}

	if execution.Status.Terminal() {
		return ErrExecutionTerminal
	}

	if execution.Results == nil {
		execution.Results = make(map[models.Dimension]models.DimensionResult)
	}
	execution.Results[result.DimensionID] = result

	s.executions[executionID] = execution.Clone()
	return nil
}

// ListExecutions returns all executions for a review request, newest first
func (s *MemoryExecutionStore) ListExecutions(reviewRequestID string) ([]models.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var executions []models.Execution
	for _, execution := range s.executions {
		if execution.ReviewRequestID == reviewRequestID {
			executions = append(executions, execution.Clone())
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

// MemoryConfigStore implements the ConfigStore interface using in-memory storage
type MemoryConfigStore struct {
	// versions maps key -> version id -> version
	versions map[string]map[string]models.ConfigVersion
	mu       sync.RWMutex
}

// NewMemoryConfigStore creates a new in-memory config store
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{
		versions: make(map[string]map[string]models.ConfigVersion),
	}
}

// SaveConfigVersion inserts a new version row
func (s *MemoryConfigStore) SaveConfigVersion(version models.ConfigVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.versions[version.Key]; !ok {
		s.versions[version.Key] = make(map[string]models.ConfigVersion)
	}
	s.versions[version.Key][version.ID] = version

	return nil
}

// UpdateConfigVersion rewrites an existing version row
func (s *MemoryConfigStore) UpdateConfigVersion(version models.ConfigVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keyVersions, ok := s.versions[version.Key]
	if !ok {
		return ErrConfigVersionNotFound
	}
	if _, ok := keyVersions[version.ID]; !ok {
		return ErrConfigVersionNotFound
	}

	keyVersions[version.ID] = version
	return nil
}

// GetConfigVersions returns all versions for a key, most recent first
func (s *MemoryConfigStore) GetConfigVersions(key string) ([]models.ConfigVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keyVersions, ok := s.versions[key]
	if !ok {
		return nil, nil
	}

	versions := make([]models.ConfigVersion, 0, len(keyVersions))
	for _, v := range keyVersions {
		versions = append(versions, v)
	}

	sortConfigVersions(versions)
	return versions, nil
}

// ListConfigKeys returns every key that has at least one version
func (s *MemoryConfigStore) ListConfigKeys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.versions))
	for key := range s.versions {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}

// sortConfigVersions orders versions newest first, breaking CreatedAt ties by id
// so ordering stays stable for versions appended within the same instant
func sortConfigVersions(versions []models.ConfigVersion) {
	sort.Slice(versions, func(i, j int) bool {
		if !versions[i].CreatedAt.Equal(versions[j].CreatedAt) {
			return versions[i].CreatedAt.After(versions[j].CreatedAt)
		}
		return versions[i].ID > versions[j].ID
	})
}

// MemoryReviewRequestStore implements the ReviewRequestStore interface using in-memory storage
type MemoryReviewRequestStore struct {
	requests map[string]models.ReviewRequest
	mu       sync.RWMutex
}

// NewMemoryReviewRequestStore creates a new in-memory review request store
func NewMemoryReviewRequestStore() *MemoryReviewRequestStore {
	return &MemoryReviewRequestStore{
		requests: make(map[string]models.ReviewRequest),
	}
}

// SaveReviewRequest persists a review request
func (s *MemoryReviewRequestStore) SaveReviewRequest(request models.ReviewRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[request.ID] = request
	return nil
}

// GetReviewRequest retrieves a review request
func (s *MemoryReviewRequestStore) GetReviewRequest(id string) (models.ReviewRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return models.ReviewRequest{}, ErrReviewRequestNotFound
	}

	return request, nil
}

// UpdateReviewRequestStatus records the outcome of an execution on the request
func (s *MemoryReviewRequestStore) UpdateReviewRequestStatus(id string, status models.ReviewRequestStatus, executionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[id]
	if !ok {
		return ErrReviewRequestNotFound
	}

	request.Status = status
	request.ExecutionID = executionID
	request.UpdatedAt = time.Now()
	s.requests[id] = request

	return nil
}
