// Package api exposes the review execution core over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/archlens/archlens/pkg/config"
	"github.com/archlens/archlens/pkg/middleware"
	"github.com/archlens/archlens/pkg/orchestrator"
	"github.com/archlens/archlens/pkg/services"
)

// Server represents the HTTP API server
type Server struct {
	config         *config.Config
	router         *mux.Router
	server         *http.Server
	orchestrator   *orchestrator.Orchestrator
	statusReporter *orchestrator.StatusReporter
	reviewService  *services.ReviewService
	configService  *services.ConfigService
	jwtService     *services.JWTService
	wsManager      *WebSocketManager
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	orch *orchestrator.Orchestrator,
	statusReporter *orchestrator.StatusReporter,
	reviewService *services.ReviewService,
	configService *services.ConfigService,
	jwtService *services.JWTService,
	wsManager *WebSocketManager,
) *Server {
	s := &Server{
		config:         cfg,
		router:         mux.NewRouter(),
		orchestrator:   orch,
		statusReporter: statusReporter,
		reviewService:  reviewService,
		configService:  configService,
		jwtService:     jwtService,
		wsManager:      wsManager,
	}

	s.setupRoutes()
	return s
}

// Router returns the configured handler, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)

	var err error
	if s.config.Server.TLS.Enabled {
		err = s.server.ListenAndServeTLS(
			s.config.Server.TLS.CertFile,
			s.config.Server.TLS.KeyFile,
		)
	} else {
		err = s.server.ListenAndServe()
	}

	// If the server was shut down gracefully, this error is expected
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	authMiddleware := middleware.NewAuthMiddleware(s.jwtService)

	// API router with version prefix
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Public routes (no authentication required)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)

	// Authenticated routes
	authenticated := api.PathPrefix("").Subrouter()
	authenticated.Use(authMiddleware.Authenticate)

	// Review request routes
	reviews := authenticated.PathPrefix("/review-requests").Subrouter()
	reviews.HandleFunc("", s.handleSubmitReviewRequest).Methods(http.MethodPost, http.MethodOptions)
	reviews.HandleFunc("/{id}", s.handleGetReviewRequest).Methods(http.MethodGet, http.MethodOptions)
	reviews.HandleFunc("/{id}/executions", s.handleListReviewRequestExecutions).Methods(http.MethodGet, http.MethodOptions)

	// Execution routes
	executions := authenticated.PathPrefix("/executions").Subrouter()
	executions.HandleFunc("", s.handleStartExecution).Methods(http.MethodPost, http.MethodOptions)
	executions.HandleFunc("/{id}/status", s.handleGetExecutionStatus).Methods(http.MethodGet, http.MethodOptions)
	executions.HandleFunc("/{id}/result", s.handleGetExecutionResult).Methods(http.MethodGet, http.MethodOptions)

	// Configuration routes
	configs := authenticated.PathPrefix("/configurations").Subrouter()
	configs.HandleFunc("", s.handleListConfigKeys).Methods(http.MethodGet, http.MethodOptions)
	configs.HandleFunc("/{key}", s.handleGetActiveConfig).Methods(http.MethodGet, http.MethodOptions)
	configs.HandleFunc("/{key}", s.handlePutConfig).Methods(http.MethodPut, http.MethodOptions)
	configs.HandleFunc("/{key}/history", s.handleGetConfigHistory).Methods(http.MethodGet, http.MethodOptions)

	// WebSocket endpoint for live execution status
	if s.wsManager != nil {
		s.router.Handle("/ws/executions", authMiddleware.Authenticate(http.HandlerFunc(s.handleWebSocket)))
	}

	// CORS middleware for all routes
	s.router.Use(corsMiddleware)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleWebSocket upgrades the connection and hands it to the manager
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}
	s.wsManager.HandleWebSocket(w, r, userID)
}

// corsMiddleware adds permissive CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
