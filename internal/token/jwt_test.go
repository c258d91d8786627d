package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_AccessToken_Roundtrip(t *testing.T) {
	j := NewJWT("secret")

	access, err := j.GenerateAccessToken("user-1")
	require.NoError(t, err)
	got, err := j.ParseAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, "user-1", got)
}

func TestJWT_WrongSecret(t *testing.T) {
	access, err := NewJWT("secret").GenerateAccessToken("user-1")
	require.NoError(t, err)

	_, err = NewJWT("other").ParseAccessToken(access)
	require.Error(t, err)
}

func TestJWT_TokenType_Mismatch(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		TokenType:        "refresh",
	})
	s, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewJWT("secret").ParseAccessToken(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token type mismatch")
}

func TestJWT_Expired(t *testing.T) {
	j := NewJWTWithTTL("secret", -time.Minute)

	access, err := j.GenerateAccessToken("user-1")
	require.NoError(t, err)

	_, err = j.ParseAccessToken(access)
	require.Error(t, err)
	assert.True(t, Expired(access, time.Now()))
}

func TestExpiresAt(t *testing.T) {
	access, err := NewJWTWithTTL("secret", time.Hour).GenerateAccessToken("user-1")
	require.NoError(t, err)

	exp, ok := ExpiresAt(access)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
	assert.False(t, Expired(access, time.Now()))

	_, ok = ExpiresAt("opaque-session-token")
	assert.False(t, ok)
	assert.False(t, Expired("opaque-session-token", time.Now()))
}
