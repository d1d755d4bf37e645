package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/pkg/models"
	"github.com/archlens/archlens/pkg/storage"
)

func securityPayload(prompt string) models.ConfigPayload {
	return models.ConfigPayload{
		SystemPrompt:   prompt,
		PromptTemplate: "Review this document:\n{{.Content}}",
		Model:          "gpt-4o",
		Temperature:    0.2,
		MaxTokens:      2048,
	}
}

func TestAppendActivatesNewVersion(t *testing.T) {
	service := NewConfigService(storage.NewMemoryConfigStore())

	version, err := service.Append("security", securityPayload("v1"), "alice")
	require.NoError(t, err)
	assert.True(t, version.Active)
	assert.NotEmpty(t, version.ID)
	assert.Equal(t, "alice", version.CreatedBy)

	active, err := service.GetActive("security")
	require.NoError(t, err)
	assert.Equal(t, version.ID, active.ID)
	assert.Equal(t, "v1", active.Payload.SystemPrompt)
}

func TestAppendKeepsSingleActiveVersion(t *testing.T) {
	service := NewConfigService(storage.NewMemoryConfigStore())

	_, err := service.Append("security", securityPayload("v1"), "alice")
	require.NoError(t, err)
	v2, err := service.Append("security", securityPayload("v2"), "bob")
	require.NoError(t, err)
	v3, err := service.Append("security", securityPayload("v3"), "alice")
	require.NoError(t, err)

	history, err := service.History("security")
	require.NoError(t, err)
	require.Len(t, history, 3)

	activeCount := 0
	for _, v := range history {
		if v.Active {
			activeCount++
			assert.Equal(t, v3.ID, v.ID)
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one version is active after any number of appends")

	active, err := service.GetActive("security")
	require.NoError(t, err)
	assert.Equal(t, "v3", active.Payload.SystemPrompt)
	assert.NotEqual(t, v2.ID, active.ID)
}

func TestHistoryIsNewestFirst(t *testing.T) {
	service := NewConfigService(storage.NewMemoryConfigStore())

	v1, err := service.Append("reliability", securityPayload("v1"), "alice")
	require.NoError(t, err)
	v2, err := service.Append("reliability", securityPayload("v2"), "alice")
	require.NoError(t, err)

	history, err := service.History("reliability")
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, v2.ID, history[0].ID)
	assert.True(t, history[0].Active)
	assert.Equal(t, v1.ID, history[1].ID)
	assert.False(t, history[1].Active)
}

func TestGetActiveMissingKey(t *testing.T) {
	service := NewConfigService(storage.NewMemoryConfigStore())

	_, err := service.GetActive("security")
	assert.True(t, models.IsNotFound(err), "expected not found, got %v", err)
}

func TestAppendValidation(t *testing.T) {
	service := NewConfigService(storage.NewMemoryConfigStore())

	_, err := service.Append("", securityPayload("v1"), "alice")
	assert.True(t, models.IsValidation(err))

	_, err = service.Append("security", securityPayload("v1"), "")
	assert.True(t, models.IsValidation(err))
}

func TestKeysListsEveryConfiguredKey(t *testing.T) {
	service := NewConfigService(storage.NewMemoryConfigStore())

	_, err := service.Append("security", securityPayload("v1"), "alice")
	require.NoError(t, err)
	_, err = service.Append("governance", securityPayload("v1"), "alice")
	require.NoError(t, err)

	keys, err := service.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"security", "governance"}, keys)
}

func TestKeysAreIndependent(t *testing.T) {
	service := NewConfigService(storage.NewMemoryConfigStore())

	_, err := service.Append("security", securityPayload("sec"), "alice")
	require.NoError(t, err)
	_, err = service.Append("cost_optimization", securityPayload("cost"), "alice")
	require.NoError(t, err)

	// A new version under one key never deactivates another key's version
	_, err = service.Append("security", securityPayload("sec-2"), "alice")
	require.NoError(t, err)

	active, err := service.GetActive("cost_optimization")
	require.NoError(t, err)
	assert.True(t, active.Active)
	assert.Equal(t, "cost", active.Payload.SystemPrompt)
}
