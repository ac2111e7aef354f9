package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "docs-agent")

	token, err := m.GenerateToken("u-1", TokenTypeAccess, time.Minute)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.Type)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", "docs-agent")

	expired, err := m.GenerateToken("u-1", TokenTypeAccess, -time.Minute)
	require.NoError(t, err)
	_, err = m.ParseToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	foreign, err := NewJWTManager("secret", "other").GenerateToken("u-1", TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	_, err = m.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey, err := NewJWTManager("nope", "docs-agent").GenerateToken("u-1", TokenTypeAccess, time.Minute)
	require.NoError(t, err)
	_, err = m.ParseToken(wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
