// Package services implements the application services around the review core.
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/storage"
)

// ConfigService manages the append-only configuration version log.
//
// Append is a read-then-write-many sequence: every currently-active version is
// deactivated, then the new version is inserted active. There is no cross-row
// atomicity, so concurrent appends to the same key can transiently leave zero
// or two active versions; readers must tolerate that window.
type ConfigService struct {
	store storage.ConfigStore
}

// NewConfigService creates a new config service with the given storage backend
func NewConfigService(store storage.ConfigStore) *ConfigService {
	return &ConfigService{store: store}
}

// GetActive returns the current active version for a key. Absence of any
// active version is reported as models.NotFoundError; callers that can fall
// back to compiled-in defaults treat that as a normal condition.
func (s *ConfigService) GetActive(key string) (models.ConfigVersion, error) {
	versions, err := s.store.GetConfigVersions(key)
	if err != nil {
		return models.ConfigVersion{}, fmt.Errorf("failed to read config versions for %s: %w", key, err)
	}

	for _, v := range versions {
		if v.Active {
			return v, nil
		}
	}

	return models.ConfigVersion{}, models.NewNotFoundError("active config", key)
}

// Append deactivates every active version for the key and inserts a new
// active version created by actor
func (s *ConfigService) Append(key string, payload models.ConfigPayload, actor string) (models.ConfigVersion, error) {
	if key == "" {
		return models.ConfigVersion{}, models.NewValidationError("config key is required")
	}
	if actor == "" {
		return models.ConfigVersion{}, models.NewValidationError("actor is required")
	}

	versions, err := s.store.GetConfigVersions(key)
	if err != nil {
		return models.ConfigVersion{}, fmt.Errorf("failed to read config versions for %s: %w", key, err)
	}

	for _, v := range versions {
		if !v.Active {
			continue
		}
		v.Active = false
		if err := s.store.UpdateConfigVersion(v); err != nil {
			return models.ConfigVersion{}, fmt.Errorf("failed to deactivate config version %s: %w", v.ID, err)
		}
	}

	version := models.ConfigVersion{
		ID:        uuid.New().String(),
		Key:       key,
		Payload:   payload,
		CreatedBy: actor,
		CreatedAt: time.Now(),
		Active:    true,
	}

	if err := s.store.SaveConfigVersion(version); err != nil {
		return models.ConfigVersion{}, fmt.Errorf("failed to save config version: %w", err)
	}

	return version, nil
}

// History returns all versions for a key, most recent first
func (s *ConfigService) History(key string) ([]models.ConfigVersion, error) {
	versions, err := s.store.GetConfigVersions(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read config versions for %s: %w", key, err)
	}

	return versions, nil
}

// Keys returns every configuration key with at least one version
func (s *ConfigService) Keys() ([]string, error) {
	keys, err := s.store.ListConfigKeys()
	if err != nil {
		return nil, fmt.Errorf("failed to list config keys: %w", err)
	}

	return keys, nil
}
