package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/archlens/archlens/pkg/models"
)

// PostgreSQLProvider implements the StorageProvider interface using PostgreSQL
type PostgreSQLProvider struct {
	db                 *sql.DB
	executionStore     *PostgreSQLExecutionStore
	configStore        *PostgreSQLConfigStore
	reviewRequestStore *PostgreSQLReviewRequestStore
}

// PostgreSQLProviderConfig contains configuration for the PostgreSQL provider
type PostgreSQLProviderConfig struct {
	// ConnectionString is a lib/pq connection string
	ConnectionString string
}

// NewPostgreSQLProvider creates a new PostgreSQL storage provider
func NewPostgreSQLProvider(config PostgreSQLProviderConfig) (*PostgreSQLProvider, error) {
	db, err := sql.Open("postgres", config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	return &PostgreSQLProvider{
		db:                 db,
		executionStore:     &PostgreSQLExecutionStore{db: db},
		configStore:        &PostgreSQLConfigStore{db: db},
		reviewRequestStore: &PostgreSQLReviewRequestStore{db: db},
	}, nil
}

// Initialize sets up the storage backend
func (p *PostgreSQLProvider) Initialize() error {
	if err := p.executionStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize execution store: %w", err)
	}

	if err := p.configStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize config store: %w", err)
	}

	if err := p.reviewRequestStore.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize review request store: %w", err)
	}

	return nil
}

// Close cleans up resources
func (p *PostgreSQLProvider) Close() error {
	return p.db.Close()
}

// GetExecutionStore returns a store for execution records
func (p *PostgreSQLProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// GetConfigStore returns a store for configuration versions
func (p *PostgreSQLProvider) GetConfigStore() ConfigStore {
	return p.configStore
}

// GetReviewRequestStore returns a store for review requests
func (p *PostgreSQLProvider) GetReviewRequestStore() ReviewRequestStore {
	return p.reviewRequestStore
}

// PostgreSQLExecutionStore implements the ExecutionStore interface using PostgreSQL
type PostgreSQLExecutionStore struct {
	db *sql.DB
}

// Initialize creates the executions table if it doesn't exist
func (s *PostgreSQLExecutionStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			review_request_id TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			record JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS executions_review_request_idx
			ON executions (review_request_id, started_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create executions table: %w", err)
	}

	return nil
}

// CreateExecution persists a new execution record
func (s *PostgreSQLExecutionStore) CreateExecution(execution models.Execution) error {
	record, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO executions (id, review_request_id, status, started_at, record)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, execution.ID, execution.ReviewRequestID, string(execution.Status), execution.StartedAt, record)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check insert result: %w", err)
	}
	if rows == 0 {
		return ErrExecutionExists
	}

	return nil
}

// GetExecution retrieves an execution record
func (s *PostgreSQLExecutionStore) GetExecution(executionID string) (models.Execution, error) {
	var record []byte
	err := s.db.QueryRow(`SELECT record FROM executions WHERE id = $1`, executionID).Scan(&record)
	if err == sql.ErrNoRows {
		return models.Execution{}, ErrExecutionNotFound
	}
	if err != nil {
		return models.Execution{}, fmt.Errorf("failed to get execution: %w", err)
	}

	var execution models.Execution
	if err := json.Unmarshal(record, &execution); err != nil {
		return models.Execution{}, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return execution, nil
}

// writeInProgress rewrites the record, guarded on the row still being in progress
func (s *PostgreSQLExecutionStore) writeInProgress(execution models.Execution) error {
	record, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE executions
		SET status = $2, record = $3
		WHERE id = $1 AND status = $4
	`, execution.ID, string(execution.Status), record, string(models.ExecutionInProgress))
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrExecutionTerminal
	}

	return nil
}

// UpdateExecution applies a field-level update to an execution record
func (s *PostgreSQLExecutionStore) UpdateExecution(executionID string, update ExecutionUpdate) error {
	execution, err := s.GetExecution(executionID)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return ErrExecutionTerminal
	}

	applyExecutionUpdate(&execution, update)

	return s.writeInProgress(execution)
}

// SaveDimensionResult writes through one settled dimension result
func (s *PostgreSQLExecutionStore) SaveDimensionResult(executionID string, result models.DimensionResult) error {
	execution, err := s.GetExecution(executionID)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return ErrExecutionTerminal
	}

	if execution.Results == nil {
		execution.Results = make(map[models.Dimension]models.DimensionResult)
	}
	execution.Results[result.DimensionID] = result

	return s.writeInProgress(execution)
}

// ListExecutions returns all executions for a review request, newest first
func (s *PostgreSQLExecutionStore) ListExecutions(reviewRequestID string) ([]models.Execution, error) {
	rows, err := s.db.Query(`
		SELECT record FROM executions
		WHERE review_request_id = $1
		ORDER BY started_at DESC
	`, reviewRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var executions []models.Execution
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		var execution models.Execution
		if err := json.Unmarshal(record, &execution); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
		}
		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

// PostgreSQLConfigStore implements the ConfigStore interface using PostgreSQL.
// Rows are append-only; only the active flag inside the record is ever rewritten.
type PostgreSQLConfigStore struct {
	db *sql.DB
}

// Initialize creates the config versions table if it doesn't exist
func (s *PostgreSQLConfigStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS config_versions (
			id TEXT NOT NULL,
			config_key TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			record JSONB NOT NULL,
			PRIMARY KEY (config_key, id)
		);
		CREATE INDEX IF NOT EXISTS config_versions_key_idx
			ON config_versions (config_key, created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create config versions table: %w", err)
	}

	return nil
}

// SaveConfigVersion inserts a new version row
func (s *PostgreSQLConfigStore) SaveConfigVersion(version models.ConfigVersion) error {
	record, err := json.Marshal(version)
	if err != nil {
		return fmt.Errorf("failed to marshal config version: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO config_versions (id, config_key, created_at, record)
		VALUES ($1, $2, $3, $4)
	`, version.ID, version.Key, version.CreatedAt, record)
	if err != nil {
		return fmt.Errorf("failed to insert config version: %w", err)
	}

	return nil
}

// UpdateConfigVersion rewrites an existing version row
func (s *PostgreSQLConfigStore) UpdateConfigVersion(version models.ConfigVersion) error {
	record, err := json.Marshal(version)
	if err != nil {
		return fmt.Errorf("failed to marshal config version: %w", err)
	}

	result, err := s.db.Exec(`
		UPDATE config_versions SET record = $3
		WHERE config_key = $1 AND id = $2
	`, version.Key, version.ID, record)
	if err != nil {
		return fmt.Errorf("failed to update config version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return ErrConfigVersionNotFound
	}

	return nil
}

// GetConfigVersions returns all versions for a key, most recent first
func (s *PostgreSQLConfigStore) GetConfigVersions(key string) ([]models.ConfigVersion, error) {
	rows, err := s.db.Query(`
		SELECT record FROM config_versions
		WHERE config_key = $1
		ORDER BY created_at DESC, id DESC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query config versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ConfigVersion
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan config version: %w", err)
		}

		var version models.ConfigVersion
		if err := json.Unmarshal(record, &version); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config version: %w", err)
		}
		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// ListConfigKeys returns every key that has at least one version
func (s *PostgreSQLConfigStore) ListConfigKeys() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT config_key FROM config_versions ORDER BY config_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query config keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan config key: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// PostgreSQLReviewRequestStore implements the ReviewRequestStore interface using PostgreSQL
type PostgreSQLReviewRequestStore struct {
	db *sql.DB
}

// Initialize creates the review requests table if it doesn't exist
func (s *PostgreSQLReviewRequestStore) Initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS review_requests (
			id TEXT PRIMARY KEY,
			record JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review requests table: %w", err)
	}

	return nil
}

// SaveReviewRequest persists a review request
func (s *PostgreSQLReviewRequestStore) SaveReviewRequest(request models.ReviewRequest) error {
	record, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal review request: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO review_requests (id, record)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record
	`, request.ID, record)
	if err != nil {
		return fmt.Errorf("failed to save review request: %w", err)
	}

	return nil
}

// GetReviewRequest retrieves a review request
func (s *PostgreSQLReviewRequestStore) GetReviewRequest(id string) (models.ReviewRequest, error) {
	var record []byte
	err := s.db.QueryRow(`SELECT record FROM review_requests WHERE id = $1`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return models.ReviewRequest{}, ErrReviewRequestNotFound
	}
	if err != nil {
		return models.ReviewRequest{}, fmt.Errorf("failed to get review request: %w", err)
	}

	var request models.ReviewRequest
	if err := json.Unmarshal(record, &request); err != nil {
		return models.ReviewRequest{}, fmt.Errorf("failed to unmarshal review request: %w", err)
	}

	return request, nil
}

// UpdateReviewRequestStatus records the outcome of an execution on the request
func (s *PostgreSQLReviewRequestStore) UpdateReviewRequestStatus(id string, status models.ReviewRequestStatus, executionID string) error {
	request, err := s.GetReviewRequest(id)
	if err != nil {
		return err
	}

	request.Status = status
	request.ExecutionID = executionID
	request.UpdatedAt = nowFunc()

	return s.SaveReviewRequest(request)
}
