package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewAccessTokenClaims(t *testing.T) {
    tok, err := NewAccessToken("secret", 7, "ADMIN", 10)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().UTC().Add(10*time.Minute), tok.Exp, 2*time.Second)

    parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
        return []byte("secret"), nil
    })
    require.NoError(t, err)
    claims := parsed.Claims.(jwt.MapClaims)
    assert.Equal(t, float64(7), claims["sub"])
    assert.Equal(t, "ADMIN", claims["role"])
}

func TestNewRefreshTokenIsUnique(t *testing.T) {
    a, err := NewRefreshToken(7)
    require.NoError(t, err)
    b, err := NewRefreshToken(7)
    require.NoError(t, err)
    assert.Len(t, a.Raw, 96)
    assert.NotEqual(t, a.Raw, b.Raw)
}

func TestHashRefreshRawIsStable(t *testing.T) {
    h1 := HashRefreshRaw("token")
    h2 := HashRefreshRaw("token")
    assert.Equal(t, h1, h2)
    assert.Len(t, h1, 64) // hex-encoded SHA-256
    assert.NotEqual(t, h1, HashRefreshRaw("other"))
}

func TestPasswordRoundTrip(t *testing.T) {
    hash, err := HashPassword("hunter22", 4) // min cost keeps the test fast
    require.NoError(t, err)
    assert.True(t, VerifyPassword(hash, "hunter22"))
    assert.False(t, VerifyPassword(hash, "hunter23"))
}
