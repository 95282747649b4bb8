package auth

import (
	"testing"

	"livedocs-server/config"
	"livedocs-server/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRoundTrip(t *testing.T) {
	service := NewService(&config.Config{JWTSecret: "test-secret"})

	token, err := service.CreateSession(&core.User{
		Subject:   "github:42",
		Login:     "alice",
		Email:     "a@x.com",
		AvatarURL: "https://example.com/a.png",
		Name:      "Alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ParseSession(token)
	require.NoError(t, err)
	assert.Equal(t, "github:42", claims.Subject)
	assert.Equal(t, "alice", claims.Login)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "Alice", claims.Name)
}

func TestParseSessionRejectsForgedToken(t *testing.T) {
	service := NewService(&config.Config{JWTSecret: "test-secret"})
	other := NewService(&config.Config{JWTSecret: "different-secret"})

	token, err := other.CreateSession(&core.User{Subject: "u1"})
	require.NoError(t, err)

	_, err = service.ParseSession(token)
	assert.Error(t, err)
}

func TestParseSessionRejectsGarbage(t *testing.T) {
	service := NewService(&config.Config{JWTSecret: "test-secret"})
	_, err := service.ParseSession("not-a-token")
	assert.Error(t, err)
}

func TestProviderDefaultsToNone(t *testing.T) {
	service := NewService(&config.Config{JWTSecret: "test-secret"})
	assert.Equal(t, "none", service.Provider())
}
