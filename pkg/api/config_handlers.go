package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/archlens/archlens/pkg/middleware"
	"github.com/archlens/archlens/pkg/models"
)

// handleListConfigKeys lists every configuration key with at least one version
func (s *Server) handleListConfigKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.configService.Keys()
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string][]string{
		"keys": keys,
	})
}

// handleGetActiveConfig returns the active version for a key
func (s *Server) handleGetActiveConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	version, err := s.configService.GetActive(key)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version)
}

// handlePutConfig appends a new active version for a key. Existing versions
// are never modified; the previous active version is deactivated.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	userID, ok := middleware.GetUserID(r)
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var payload models.ConfigPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	version, err := s.configService.Append(key, payload, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(version)
}

// handleGetConfigHistory returns all versions for a key, most recent first
func (s *Server) handleGetConfigHistory(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	versions, err := s.configService.History(key)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(versions)
}
