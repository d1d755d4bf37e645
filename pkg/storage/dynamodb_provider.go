package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"github.com/archlens/archlens/pkg/models"
)

// DynamoDBProvider implements the StorageProvider interface using DynamoDB
type DynamoDBProvider struct {
	client             dynamodbiface.DynamoDBAPI
	executionStore     *DynamoDBExecutionStore
	configStore        *DynamoDBConfigStore
	reviewRequestStore *DynamoDBReviewRequestStore
	tablePrefix        string
}

// DynamoDBProviderConfig contains configuration for the DynamoDB provider
type DynamoDBProviderConfig struct {
	Region      string
	AccessKey   string
	SecretKey   string
	TablePrefix string
	Endpoint    string // Optional, for local DynamoDB
}

// NewDynamoDBProvider creates a new DynamoDB storage provider
func NewDynamoDBProvider(config DynamoDBProviderConfig) (*DynamoDBProvider, error) {
	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}

	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		)
	}

	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewDynamoDBProviderWithClient(dynamodb.New(sess), config.TablePrefix), nil
}

// NewDynamoDBProviderWithClient creates a new DynamoDB storage provider with a custom client.
// This is primarily used for testing with mock clients.
func NewDynamoDBProviderWithClient(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBProvider {
	return &DynamoDBProvider{
		client:             client,
		tablePrefix:        tablePrefix,
		executionStore:     NewDynamoDBExecutionStore(client, tablePrefix),
		configStore:        NewDynamoDBConfigStore(client, tablePrefix),
		reviewRequestStore: NewDynamoDBReviewRequestStore(client, tablePrefix),
	}
}

// Initialize sets up the storage backend
func (p *DynamoDBProvider) Initialize() error {
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
func (p *DynamoDBProvider) Close() error {
	// DynamoDB client doesn't need explicit cleanup
	return nil
}

// GetExecutionStore returns a store for execution records
func (p *DynamoDBProvider) GetExecutionStore() ExecutionStore {
	return p.executionStore
}

// GetConfigStore returns a store for configuration versions
func (p *DynamoDBProvider) GetConfigStore() ConfigStore {
	return p.configStore
}

// GetReviewRequestStore returns a store for review requests
func (p *DynamoDBProvider) GetReviewRequestStore() ReviewRequestStore {
	return p.reviewRequestStore
}

// ensureTable creates a DynamoDB table if it doesn't exist and waits for it to be ready
func ensureTable(client dynamodbiface.DynamoDBAPI, input *dynamodb.CreateTableInput) error {
	_, err := client.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: input.TableName,
	})

	if err == nil {
		// Table exists
		return nil
	}

	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeResourceNotFoundException {
		if _, err := client.CreateTable(input); err != nil {
			return fmt.Errorf("failed to create table %s: %w", aws.StringValue(input.TableName), err)
		}

		if err := client.WaitUntilTableExists(&dynamodb.DescribeTableInput{
			TableName: input.TableName,
		}); err != nil {
			return fmt.Errorf("failed to wait for table %s creation: %w", aws.StringValue(input.TableName), err)
		}

		return nil
	}

	return fmt.Errorf("failed to check if table %s exists: %w", aws.StringValue(input.TableName), err)
}

// DynamoDBExecutionStore implements the ExecutionStore interface using DynamoDB
type DynamoDBExecutionStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBExecutionStore creates a new DynamoDB execution store
func NewDynamoDBExecutionStore(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBExecutionStore {
	return &DynamoDBExecutionStore{
		client:    client,
		tableName: tablePrefix + "executions",
	}
}

// Initialize creates the executions table if it doesn't exist
func (s *DynamoDBExecutionStore) Initialize() error {
	return ensureTable(s.client, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ID"),
				AttributeType: aws.String("S"),
			},
			{
				AttributeName: aws.String("ReviewRequestID"),
				AttributeType: aws.String("S"),
			},
			{
				AttributeName: aws.String("StartedAt"),
				AttributeType: aws.String("N"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ID"),
				KeyType:       aws.String("HASH"),
			},
		},
		GlobalSecondaryIndexes: []*dynamodb.GlobalSecondaryIndex{
			{
				IndexName: aws.String("ReviewRequestIndex"),
				KeySchema: []*dynamodb.KeySchemaElement{
					{
						AttributeName: aws.String("ReviewRequestID"),
						KeyType:       aws.String("HASH"),
					},
					{
						AttributeName: aws.String("StartedAt"),
						KeyType:       aws.String("RANGE"),
					},
				},
				Projection: &dynamodb.Projection{
					ProjectionType: aws.String("ALL"),
				},
			},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	})
}

// putExecution writes the full record, optionally guarded by a condition expression
func (s *DynamoDBExecutionStore) putExecution(execution models.Execution, condition *string, values map[string]*dynamodb.AttributeValue) error {
	record, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]*dynamodb.AttributeValue{
			"ID":              {S: aws.String(execution.ID)},
			"ReviewRequestID": {S: aws.String(execution.ReviewRequestID)},
			"StartedAt":       {N: aws.String(strconv.FormatInt(execution.StartedAt.UnixNano(), 10))},
			"Status":          {S: aws.String(string(execution.Status))},
			"Record":          {S: aws.String(string(record))},
		},
		ConditionExpression:       condition,
		ExpressionAttributeValues: values,
	}
	if condition != nil {
		input.ExpressionAttributeNames = map[string]*string{"#status": aws.String("Status")}
	}

	if _, err := s.client.PutItem(input); err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return ErrExecutionTerminal
		}
		return fmt.Errorf("failed to put execution: %w", err)
	}

	return nil
}

// CreateExecution persists a new execution record
func (s *DynamoDBExecutionStore) CreateExecution(execution models.Execution) error {
	record, err := json.Marshal(execution)
	if err != nil {
		return fmt.Errorf("failed to marshal execution: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]*dynamodb.AttributeValue{
			"ID":              {S: aws.String(execution.ID)},
			"ReviewRequestID": {S: aws.String(execution.ReviewRequestID)},
			"StartedAt":       {N: aws.String(strconv.FormatInt(execution.StartedAt.UnixNano(), 10))},
			"Status":          {S: aws.String(string(execution.Status))},
			"Record":          {S: aws.String(string(record))},
		},
		ConditionExpression: aws.String("attribute_not_exists(ID)"),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return ErrExecutionExists
		}
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// GetExecution retrieves an execution record
func (s *DynamoDBExecutionStore) GetExecution(executionID string) (models.Execution, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(executionID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.Execution{}, fmt.Errorf("failed to get execution: %w", err)
	}

	if result.Item == nil {
		return models.Execution{}, ErrExecutionNotFound
	}

	return unmarshalExecutionItem(result.Item)
}

// UpdateExecution applies a field-level update to an execution record.
// The write is conditioned on the record still being in progress, so terminal
// records stay immutable.
func (s *DynamoDBExecutionStore) UpdateExecution(executionID string, update ExecutionUpdate) error {
	execution, err := s.GetExecution(executionID)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return ErrExecutionTerminal
	}

	applyExecutionUpdate(&execution, update)

	return s.putExecution(execution,
		aws.String("#status = :inprogress"),
		map[string]*dynamodb.AttributeValue{
			":inprogress": {S: aws.String(string(models.ExecutionInProgress))},
		})
}

// SaveDimensionResult writes through one settled dimension result
func (s *DynamoDBExecutionStore) SaveDimensionResult(executionID string, result models.DimensionResult) error {
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

	return s.putExecution(execution,
		aws.String("#status = :inprogress"),
		map[string]*dynamodb.AttributeValue{
			":inprogress": {S: aws.String(string(models.ExecutionInProgress))},
		})
}

// ListExecutions returns all executions for a review request, newest first
func (s *DynamoDBExecutionStore) ListExecutions(reviewRequestID string) ([]models.Execution, error) {
	result, err := s.client.Query(&dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String("ReviewRequestIndex"),
		KeyConditionExpression: aws.String("ReviewRequestID = :rid"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":rid": {S: aws.String(reviewRequestID)},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}

	executions := make([]models.Execution, 0, len(result.Items))
	for _, item := range result.Items {
		execution, err := unmarshalExecutionItem(item)
		if err != nil {
			return nil, err
		}
		executions = append(executions, execution)
	}

	return executions, nil
}

// unmarshalExecutionItem decodes the JSON record attribute of an executions table item
func unmarshalExecutionItem(item map[string]*dynamodb.AttributeValue) (models.Execution, error) {
	recordAttr, ok := item["Record"]
	if !ok || recordAttr.S == nil {
		return models.Execution{}, fmt.Errorf("execution item missing record attribute")
	}

	var execution models.Execution
	if err := json.Unmarshal([]byte(*recordAttr.S), &execution); err != nil {
		return models.Execution{}, fmt.Errorf("failed to unmarshal execution: %w", err)
	}

	return execution, nil
}

// applyExecutionUpdate merges a partial update into an execution record
func applyExecutionUpdate(execution *models.Execution, update ExecutionUpdate) {
	if update.Status != nil {
		execution.Status = *update.Status
	}
	if update.Results != nil {
		execution.Results = update.Results
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
}

// DynamoDBConfigStore implements the ConfigStore interface using DynamoDB.
//
// The "deactivate all, then activate one" append sequence is a read-then-
// write-many with no cross-row transaction; concurrent appends to the same key
// can transiently leave zero or two active versions. Readers must tolerate
// that window.
type DynamoDBConfigStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBConfigStore creates a new DynamoDB config store
func NewDynamoDBConfigStore(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBConfigStore {
	return &DynamoDBConfigStore{
		client:    client,
		tableName: tablePrefix + "config_versions",
	}
}

// Initialize creates the config versions table if it doesn't exist
func (s *DynamoDBConfigStore) Initialize() error {
	return ensureTable(s.client, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ConfigKey"),
				AttributeType: aws.String("S"),
			},
			{
				AttributeName: aws.String("ID"),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ConfigKey"),
				KeyType:       aws.String("HASH"),
			},
			{
				AttributeName: aws.String("ID"),
				KeyType:       aws.String("RANGE"),
			},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	})
}

// putConfigVersion writes a version row
func (s *DynamoDBConfigStore) putConfigVersion(version models.ConfigVersion) error {
	record, err := json.Marshal(version)
	if err != nil {
		return fmt.Errorf("failed to marshal config version: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]*dynamodb.AttributeValue{
			"ConfigKey": {S: aws.String(version.Key)},
			"ID":        {S: aws.String(version.ID)},
			"CreatedAt": {N: aws.String(strconv.FormatInt(version.CreatedAt.UnixNano(), 10))},
			"Record":    {S: aws.String(string(record))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put config version: %w", err)
	}

	return nil
}

// SaveConfigVersion inserts a new version row
func (s *DynamoDBConfigStore) SaveConfigVersion(version models.ConfigVersion) error {
	return s.putConfigVersion(version)
}

// UpdateConfigVersion rewrites an existing version row
func (s *DynamoDBConfigStore) UpdateConfigVersion(version models.ConfigVersion) error {
	return s.putConfigVersion(version)
}

// GetConfigVersions returns all versions for a key, most recent first
func (s *DynamoDBConfigStore) GetConfigVersions(key string) ([]models.ConfigVersion, error) {
	result, err := s.client.Query(&dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("ConfigKey = :key"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":key": {S: aws.String(key)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query config versions: %w", err)
	}

	versions := make([]models.ConfigVersion, 0, len(result.Items))
	for _, item := range result.Items {
		recordAttr, ok := item["Record"]
		if !ok || recordAttr.S == nil {
			return nil, fmt.Errorf("config version item missing record attribute")
		}

		var version models.ConfigVersion
		if err := json.Unmarshal([]byte(*recordAttr.S), &version); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config version: %w", err)
		}
		versions = append(versions, version)
	}

	sortConfigVersions(versions)
	return versions, nil
}

// ListConfigKeys returns every key that has at least one version
func (s *DynamoDBConfigStore) ListConfigKeys() ([]string, error) {
	seen := make(map[string]bool)

	input := &dynamodb.ScanInput{
		TableName:            aws.String(s.tableName),
		ProjectionExpression: aws.String("ConfigKey"),
	}

	for {
		result, err := s.client.Scan(input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config keys: %w", err)
		}

		for _, item := range result.Items {
			if attr, ok := item["ConfigKey"]; ok && attr.S != nil {
				seen[*attr.S] = true
			}
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}

// DynamoDBReviewRequestStore implements the ReviewRequestStore interface using DynamoDB
type DynamoDBReviewRequestStore struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
}

// NewDynamoDBReviewRequestStore creates a new DynamoDB review request store
func NewDynamoDBReviewRequestStore(client dynamodbiface.DynamoDBAPI, tablePrefix string) *DynamoDBReviewRequestStore {
	return &DynamoDBReviewRequestStore{
		client:    client,
		tableName: tablePrefix + "review_requests",
	}
}

// Initialize creates the review requests table if it doesn't exist
func (s *DynamoDBReviewRequestStore) Initialize() error {
	return ensureTable(s.client, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("ID"),
				AttributeType: aws.String("S"),
			},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("ID"),
				KeyType:       aws.String("HASH"),
			},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	})
}

// SaveReviewRequest persists a review request
func (s *DynamoDBReviewRequestStore) SaveReviewRequest(request models.ReviewRequest) error {
	record, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal review request: %w", err)
	}

	_, err = s.client.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]*dynamodb.AttributeValue{
			"ID":     {S: aws.String(request.ID)},
			"Record": {S: aws.String(string(record))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put review request: %w", err)
	}

	return nil
}

// GetReviewRequest retrieves a review request
func (s *DynamoDBReviewRequestStore) GetReviewRequest(id string) (models.ReviewRequest, error) {
	result, err := s.client.GetItem(&dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"ID": {S: aws.String(id)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return models.ReviewRequest{}, fmt.Errorf("failed to get review request: %w", err)
	}

	if result.Item == nil {
		return models.ReviewRequest{}, ErrReviewRequestNotFound
	}

	recordAttr, ok := result.Item["Record"]
	if !ok || recordAttr.S == nil {
		return models.ReviewRequest{}, fmt.Errorf("review request item missing record attribute")
	}

	var request models.ReviewRequest
	if err := json.Unmarshal([]byte(*recordAttr.S), &request); err != nil {
		return models.ReviewRequest{}, fmt.Errorf("failed to unmarshal review request: %w", err)
	}

	return request, nil
}

// UpdateReviewRequestStatus records the outcome of an execution on the request
func (s *DynamoDBReviewRequestStore) UpdateReviewRequestStatus(id string, status models.ReviewRequestStatus, executionID string) error {
	request, err := s.GetReviewRequest(id)
	if err != nil {
		return err
	}

	request.Status = status
	request.ExecutionID = executionID
	request.UpdatedAt = nowFunc()

	return s.SaveReviewRequest(request)
}
