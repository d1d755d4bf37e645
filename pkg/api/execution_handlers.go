package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archlens/archlens/pkg/models"
)

// handleStartExecution accepts a review execution request, starts it detached
// and answers 202 with the execution id. Pollers use the status endpoint.
func (s *Server) handleStartExecution(w http.ResponseWriter, r *http.Request) {
	var req models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	executionID, err := s.orchestrator.Start(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"execution_id": executionID,
	})
}

// handleGetExecutionStatus returns the current state of an execution,
// including any per-dimension results already settled
func (s *Server) handleGetExecutionStatus(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]

	execution, err := s.statusReporter.GetStatus(executionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(execution)
}

// handleGetExecutionResult returns the full report of a completed execution
func (s *Server) handleGetExecutionResult(w http.ResponseWriter, r *http.Request) {
	executionID := mux.Vars(r)["id"]

	execution, err := s.statusReporter.GetResult(executionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(execution)
}

// writeError maps domain errors onto HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case models.IsValidation(err):
		status = http.StatusBadRequest
	case models.IsNotFound(err):
		status = http.StatusNotFound
	case models.IsUnauthorized(err):
		status = http.StatusUnauthorized
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
	})
}
