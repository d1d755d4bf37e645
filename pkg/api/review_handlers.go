package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archlens/archlens/pkg/middleware"
	"github.com/archlens/archlens/pkg/models"
)

// handleSubmitReviewRequest records a review request for a document version
func (s *Server) handleSubmitReviewRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		DocumentID      string `json:"document_id"`
		DocumentVersion string `json:"document_version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := s.reviewService.Submit(req.DocumentID, req.DocumentVersion, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(request)
}

// handleGetReviewRequest returns a review request record
func (s *Server) handleGetReviewRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	request, err := s.reviewService.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(request)
}

// handleListReviewRequestExecutions returns every execution recorded for a
// review request, newest first
func (s *Server) handleListReviewRequestExecutions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := s.reviewService.Get(id); err != nil {
		writeError(w, err)
		return
	}

	executions, err := s.statusReporter.ListExecutions(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if executions == nil {
		executions = []models.Execution{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(executions)
}
