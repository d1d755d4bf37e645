// Package config provides configuration handling for archlens.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config represents the application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Documents configuration
	Documents DocumentsConfig `json:"documents"`

	// Analysis configuration
	Analysis AnalysisConfig `json:"analysis"`

	// Auth configuration
	Auth AuthConfig `json:"auth"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	// Host to bind to
	Host string `json:"host"`

	// Port to listen on
	Port int `json:"port"`

	// TLS configuration
	TLS TLSConfig `json:"tls"`
}

// TLSConfig contains TLS settings
type TLSConfig struct {
	// Enabled indicates whether TLS is enabled
	Enabled bool `json:"enabled"`

	// CertFile is the path to the certificate file
	CertFile string `json:"cert_file"`

	// KeyFile is the path to the key file
	KeyFile string `json:"key_file"`
}

// StorageConfig contains storage settings
type StorageConfig struct {
	// Type of storage to use
	Type string `json:"type"` // "memory", "dynamodb", "postgres"

	// DynamoDB configuration
	DynamoDB DynamoDBConfig `json:"dynamodb"`

	// PostgreSQL configuration
	Postgres PostgresConfig `json:"postgres"`
}

// DynamoDBConfig contains DynamoDB settings
type DynamoDBConfig struct {
	// Region is the AWS region
	Region string `json:"region"`

	// Endpoint is the DynamoDB endpoint (for local development)
	Endpoint string `json:"endpoint"`

	// TablePrefix is the prefix for all tables
	TablePrefix string `json:"table_prefix"`
}

// PostgresConfig contains PostgreSQL settings
type PostgresConfig struct {
	// Host is the database host
	Host string `json:"host"`

	// Port is the database port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// User is the database user
	User string `json:"user"`

	// Password is the database password
	Password string `json:"password"`

	// SSLMode is the SSL mode
	SSLMode string `json:"ssl_mode"`
}

// DocumentsConfig contains document source settings
type DocumentsConfig struct {
	// Type of document source
	Type string `json:"type"` // "memory", "s3"

	// S3 configuration
	S3 S3Config `json:"s3"`
}

// S3Config contains S3 document source settings
type S3Config struct {
	// Region is the AWS region
	Region string `json:"region"`

	// Endpoint is the S3 endpoint (for local development)
	Endpoint string `json:"endpoint"`

	// Bucket holds the document objects
	Bucket string `json:"bucket"`

	// KeyPrefix is prepended to every object key
	KeyPrefix string `json:"key_prefix"`
}

// AnalysisConfig contains model provider settings
type AnalysisConfig struct {
	// Provider is the model provider
	Provider string `json:"provider"` // "openai", "anthropic", "generic"

	// APIKey authenticates against the provider
	APIKey string `json:"api_key"`

	// BaseURL overrides the provider's default endpoint
	BaseURL string `json:"base_url"`

	// Model is the default model when a configuration version names none
	Model string `json:"model"`

	// Temperature is the default sampling temperature
	Temperature float64 `json:"temperature"`

	// MaxTokens is the default completion budget
	MaxTokens int `json:"max_tokens"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	// JWTSecret is the secret for signing JWT tokens
	JWTSecret string `json:"jwt_secret"`

	// TokenExpiration is the token expiration time in hours
	TokenExpiration int `json:"token_expiration"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	// Level is the logging level
	Level string `json:"level"` // "debug", "info", "warn", "error"

	// Format is the log format
	Format string `json:"format"` // "json", "text"
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvOverrides()

	return config, nil
}

// FromEnv returns the default configuration with environment overrides applied
func FromEnv() *Config {
	config := DefaultConfig()
	config.applyEnvOverrides()
	return config
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
			TLS: TLSConfig{
				Enabled: false,
			},
		},
		Storage: StorageConfig{
			Type: "memory",
			DynamoDB: DynamoDBConfig{
				Region:      "us-west-2",
				TablePrefix: "archlens_",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "archlens",
				User:     "archlens",
				SSLMode:  "disable",
			},
		},
		Documents: DocumentsConfig{
			Type: "memory",
			S3: S3Config{
				Region: "us-west-2",
				Bucket: "archlens-documents",
			},
		},
		Analysis: AnalysisConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		Auth: AuthConfig{
			TokenExpiration: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides overlays environment variables onto the configuration.
// Secrets and deployment-specific endpoints usually arrive this way.
func (c *Config) applyEnvOverrides() {
	setString(&c.Server.Host, "ARCHLENS_HOST")
	setInt(&c.Server.Port, "ARCHLENS_PORT")

	setString(&c.Storage.Type, "ARCHLENS_STORAGE_TYPE")
	setString(&c.Storage.DynamoDB.Region, "ARCHLENS_DYNAMODB_REGION")
	setString(&c.Storage.DynamoDB.Endpoint, "ARCHLENS_DYNAMODB_ENDPOINT")
	setString(&c.Storage.DynamoDB.TablePrefix, "ARCHLENS_DYNAMODB_TABLE_PREFIX")
	setString(&c.Storage.Postgres.Host, "ARCHLENS_POSTGRES_HOST")
	setInt(&c.Storage.Postgres.Port, "ARCHLENS_POSTGRES_PORT")
	setString(&c.Storage.Postgres.Database, "ARCHLENS_POSTGRES_DATABASE")
	setString(&c.Storage.Postgres.User, "ARCHLENS_POSTGRES_USER")
	setString(&c.Storage.Postgres.Password, "ARCHLENS_POSTGRES_PASSWORD")
	setString(&c.Storage.Postgres.SSLMode, "ARCHLENS_POSTGRES_SSL_MODE")

	setString(&c.Documents.Type, "ARCHLENS_DOCUMENTS_TYPE")
	setString(&c.Documents.S3.Region, "ARCHLENS_S3_REGION")
	setString(&c.Documents.S3.Endpoint, "ARCHLENS_S3_ENDPOINT")
	setString(&c.Documents.S3.Bucket, "ARCHLENS_S3_BUCKET")
	setString(&c.Documents.S3.KeyPrefix, "ARCHLENS_S3_KEY_PREFIX")

	setString(&c.Analysis.Provider, "ARCHLENS_LLM_PROVIDER")
	setString(&c.Analysis.APIKey, "ARCHLENS_LLM_API_KEY")
	setString(&c.Analysis.BaseURL, "ARCHLENS_LLM_BASE_URL")
	setString(&c.Analysis.Model, "ARCHLENS_LLM_MODEL")
	setInt(&c.Analysis.MaxTokens, "ARCHLENS_LLM_MAX_TOKENS")

	setString(&c.Auth.JWTSecret, "ARCHLENS_JWT_SECRET")
	setInt(&c.Auth.TokenExpiration, "ARCHLENS_TOKEN_EXPIRATION")

	setString(&c.Logging.Level, "ARCHLENS_LOG_LEVEL")
	setString(&c.Logging.Format, "ARCHLENS_LOG_FORMAT")
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func setInt(target *int, key string) {
	value := os.Getenv(key)
	if value == "" {
		return
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		*target = parsed
	}
}

// ConnectionString builds the lib/pq connection string
func (c *PostgresConfig) ConnectionString() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, port, c.Database, c.User, c.Password, sslMode)
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
