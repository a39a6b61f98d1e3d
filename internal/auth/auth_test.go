package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	j := NewJWT("s3cret")
	token, err := j.Issue("user-42", time.Hour)
	require.NoError(t, err)

	id, err := j.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)
}

func TestJWT_Rejects(t *testing.T) {
	j := NewJWT("s3cret")
	sign := func(method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	other, err := NewJWT("other").Issue("user-42", time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":       "not-a-token",
		"wrong secret":  other,
		"expired":       sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.MapClaims{"userId": "u", "exp": time.Now().Add(-time.Minute).Unix()}),
		"missing claim": sign(jwt.SigningMethodHS256, []byte("s3cret"), jwt.MapClaims{"sub": "u"}),
		"wrong method":  sign(jwt.SigningMethodHS512, []byte("s3cret"), jwt.MapClaims{"userId": "u"}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := j.VerifyToken(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWT_NumericUserID(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": 17}).SignedString([]byte("k"))
	require.NoError(t, err)

	id, err := NewJWT("k").VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "17", id)
}

func TestUserContext(t *testing.T) {
	assert.Empty(t, UserFrom(context.Background()))
	assert.Equal(t, "u1", UserFrom(WithUser(context.Background(), "u1")))
}
