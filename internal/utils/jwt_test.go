// internal/utils/jwt_test.go
package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, time.Hour)
	id := uuid.New()

	token, err := m.GenerateAccessToken(id, "Erin", "erin@example.com", "Engineer")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, "Erin", claims.Name)
	assert.Equal(t, "Engineer", claims.Role)
}

func TestAccessTokenRejectsOtherSecretAndExpiry(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, time.Hour)
	token, err := m.GenerateAccessToken(uuid.New(), "Erin", "erin@example.com", "Engineer")
	require.NoError(t, err)

	_, err = NewJWTManager("other-secret", time.Minute, time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)

	expired := NewJWTManager("test-secret", -time.Minute, time.Hour)
	token, err = expired.GenerateAccessToken(uuid.New(), "Erin", "erin@example.com", "Engineer")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestRefreshAndAccessTokensAreNotInterchangeable(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, time.Hour)
	id := uuid.New()

	refresh, jti, expiresAt, err := m.GenerateRefreshToken(id)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, id.String(), claims.Subject)

	_, err = m.ValidateAccessToken(refresh)
	assert.Error(t, err)

	access, err := m.GenerateAccessToken(id, "Erin", "erin@example.com", "Engineer")
	require.NoError(t, err)
	_, err = m.ValidateRefreshToken(access)
	assert.Error(t, err)
}
