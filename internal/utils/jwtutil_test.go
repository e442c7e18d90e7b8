package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndParseToken(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	token, exp, err := m.GenerateToken(7, "cashier")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserId)
	assert.Equal(t, "cashier", claims.Username)
}

func TestParseTokenRejectsOtherSecret(t *testing.T) {
	token, _, err := NewJWTManager(testSecret, time.Hour).GenerateToken(1, "admin")
	require.NoError(t, err)

	_, err = NewJWTManager("another-secret-another-secret-xx", time.Hour).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	m.ttl = -time.Minute

	token, _, err := m.GenerateToken(1, "admin")
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := NewJWTManager(testSecret, time.Hour).ParseToken("not-a-token")
	assert.Error(t, err)
}
