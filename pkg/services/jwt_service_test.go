package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archlens/archlens/pkg/models"
)

func TestGenerateAndValidateToken(t *testing.T) {
	service := NewJWTService("test-secret", 24)

	token, err := service.GenerateToken("user-1", "reviewer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "reviewer", claims.Role)
	assert.Equal(t, "archlens", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", 24)
	verifier := NewJWTService("secret-b", 24)

	token, err := issuer.GenerateToken("user-1", "reviewer")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.True(t, models.IsUnauthorized(err), "expected unauthorized, got %v", err)
}

func TestValidateTokenGarbage(t *testing.T) {
	service := NewJWTService("test-secret", 24)

	_, err := service.ValidateToken("not-a-token")
	assert.True(t, models.IsUnauthorized(err))
}
