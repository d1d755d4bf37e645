// Package main is the entry point for the archlens server.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/archlens/archlens/pkg/analysis"
	"github.com/archlens/archlens/pkg/api"
	"github.com/archlens/archlens/pkg/config"
	"github.com/archlens/archlens/pkg/documents"
	"github.com/archlens/archlens/pkg/logging"
	"github.com/archlens/archlens/pkg/orchestrator"
	"github.com/archlens/archlens/pkg/services"
	"github.com/archlens/archlens/pkg/storage"
	"github.com/archlens/archlens/pkg/utils"
)

var (
	// Command-line flags
	configPath = flag.String("config", "", "Path to config file")
	version    = flag.Bool("version", false, "Print version information")
)

// Version information
const (
	AppVersion = "0.1.0"
	AppName    = "archlens"
)

func main() {
	// Load environment variables from .env file
	_ = godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", AppName, AppVersion)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Handle graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Application failed: %v", err)
		}
	case <-stop:
		log.Println("Shutting down gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			log.Fatalf("Error during shutdown: %v", err)
		}
	}
}

// loadConfig loads the configuration from the specified path or creates a default one
func loadConfig() (*config.Config, error) {
	var cfg *config.Config

	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", *configPath, err)
		}
	} else {
		// Look for a config file in standard locations
		locations := []string{
			"./config.json",
			"./configs/config.json",
			filepath.Join(os.Getenv("HOME"), ".archlens", "config.json"),
			"/etc/archlens/config.json",
		}

		for _, path := range locations {
			if loadedCfg, err := config.LoadConfig(path); err == nil {
				cfg = loadedCfg
				break
			}
		}

		// If no config file is found, create a default one
		if cfg == nil {
			cfg = config.FromEnv()

			defaultPath := filepath.Join(os.Getenv("HOME"), ".archlens", "config.json")
			if err := config.SaveConfig(cfg, defaultPath); err != nil {
				return nil, fmt.Errorf("failed to save default config: %w", err)
			}

			fmt.Printf("Created default configuration at %s\n", defaultPath)
		}
	}

	// Generate a random JWT secret if none is configured
	if cfg.Auth.JWTSecret == "" {
		secret, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.Auth.JWTSecret = secret
	}

	return cfg, nil
}

// generateRandomKey generates a random key of the specified length
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// App represents the archlens application
type App struct {
	config          *config.Config
	server          *api.Server
	storageProvider storage.StorageProvider
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config) (*App, error) {
	storageProvider, err := buildStorageProvider(cfg)
	if err != nil {
		return nil, err
	}

	if err := storageProvider.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	documentProvider, err := buildDocumentProvider(cfg)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	// Analysis units share one model client
	llmClient := utils.NewLLMClient(
		utils.LLMProvider(cfg.Analysis.Provider),
		cfg.Analysis.APIKey,
		cfg.Analysis.BaseURL,
	)
	registry := analysis.NewLLMRegistry(llmClient)

	configService := services.NewConfigService(storageProvider.GetConfigStore())
	reviewService := services.NewReviewService(storageProvider.GetReviewRequestStore(), logger)
	jwtService := services.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiration)

	statusReporter := orchestrator.NewStatusReporter(storageProvider.GetExecutionStore())
	wsManager := api.NewWebSocketManager(statusReporter)

	orch := orchestrator.NewOrchestrator(
		storageProvider.GetExecutionStore(),
		documentProvider,
		configService,
		registry,
		orchestrator.WithLogger(logger),
		orchestrator.WithListener(reviewService),
		orchestrator.WithBroadcaster(wsManager),
	)

	server := api.NewServer(cfg, orch, statusReporter, reviewService, configService, jwtService, wsManager)

	return &App{
		config:          cfg,
		server:          server,
		storageProvider: storageProvider,
	}, nil
}

// buildStorageProvider creates the configured storage backend
func buildStorageProvider(cfg *config.Config) (storage.StorageProvider, error) {
	switch cfg.Storage.Type {
	case "memory":
		log.Println("Using in-memory storage provider")
		return storage.NewMemoryProvider(), nil

	case "dynamodb":
		log.Printf("Initializing DynamoDB storage provider with region: %s, endpoint: %s",
			cfg.Storage.DynamoDB.Region, cfg.Storage.DynamoDB.Endpoint)
		return storage.NewProvider(storage.ProviderConfig{
			Type: storage.DynamoDBProviderType,
			DynamoDB: &storage.DynamoDBProviderConfig{
				Region:      cfg.Storage.DynamoDB.Region,
				Endpoint:    cfg.Storage.DynamoDB.Endpoint,
				TablePrefix: cfg.Storage.DynamoDB.TablePrefix,
			},
		})

	case "postgres", "postgresql":
		log.Printf("Initializing PostgreSQL storage provider with host: %s, port: %d, database: %s",
			cfg.Storage.Postgres.Host, cfg.Storage.Postgres.Port, cfg.Storage.Postgres.Database)
		return storage.NewProvider(storage.ProviderConfig{
			Type: storage.PostgreSQLProviderType,
			PostgreSQL: &storage.PostgreSQLProviderConfig{
				ConnectionString: cfg.Storage.Postgres.ConnectionString(),
			},
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}

// buildDocumentProvider creates the configured document source
func buildDocumentProvider(cfg *config.Config) (documents.Provider, error) {
	switch cfg.Documents.Type {
	case "memory":
		log.Println("Using in-memory document provider")
		return documents.NewMemoryProvider(), nil

	case "s3":
		log.Printf("Initializing S3 document provider with bucket: %s", cfg.Documents.S3.Bucket)
		return documents.NewS3Provider(documents.S3ProviderConfig{
			Region:   cfg.Documents.S3.Region,
			Bucket:   cfg.Documents.S3.Bucket,
			Prefix:   cfg.Documents.S3.KeyPrefix,
			Endpoint: cfg.Documents.S3.Endpoint,
		})

	default:
		return nil, fmt.Errorf("unsupported document provider type: %s", cfg.Documents.Type)
	}
}

// Start starts the application
func (a *App) Start() error {
	fmt.Printf("Starting %s version %s\n", AppName, AppVersion)
	return a.server.Start()
}

// Stop stops the application gracefully
func (a *App) Stop(ctx context.Context) error {
	if err := a.server.Stop(ctx); err != nil {
		return err
	}

	if err := a.storageProvider.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	return nil
}
