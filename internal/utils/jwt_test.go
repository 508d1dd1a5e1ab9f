package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorTokenRoundTrip(t *testing.T) {
	token, err := NewOperatorToken("secret", "station-1", 5)
	require.NoError(t, err)

	ok, err := VerifyOperatorToken("secret", token)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyOperatorTokenRejections(t *testing.T) {
	token, err := NewOperatorToken("secret", "station-1", 5)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		ok, _ := VerifyOperatorToken("other", token)
		assert.False(t, ok)
	})

	t.Run("garbage", func(t *testing.T) {
		ok, _ := VerifyOperatorToken("secret", "definitely.not.jwt")
		assert.False(t, ok)
	})

	t.Run("expired", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub":  "station-1",
			"role": RoleOperator,
			"exp":  time.Now().Add(-time.Minute).Unix(),
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		ok, _ := VerifyOperatorToken("secret", expired)
		assert.False(t, ok)
	})

	t.Run("missing role", func(t *testing.T) {
		claims := jwt.MapClaims{
			"sub": "station-1",
			"exp": time.Now().Add(time.Minute).Unix(),
		}
		noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		ok, err := VerifyOperatorToken("secret", noRole)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
