package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(issuer string) Claims {
	return Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "subject-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	secret := []byte("secret")
	v := NewVerifier(secret, "auth")

	claims, err := v.Verify(sign(t, jwt.SigningMethodHS256, secret, validClaims("auth")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Requester())
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	secret := []byte("secret")
	c := validClaims("")
	c.UserID = ""

	claims, err := NewVerifier(secret, "").Verify(sign(t, jwt.SigningMethodHS256, secret, c))
	require.NoError(t, err)
	assert.Equal(t, "subject-1", claims.Requester())
}

func TestVerifyRejects(t *testing.T) {
	secret := []byte("secret")
	v := NewVerifier(secret, "auth")

	expired := validClaims("auth")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err := v.Verify(sign(t, jwt.SigningMethodHS256, secret, expired))
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("auth")))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, secret, validClaims("someone-else")))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(sign(t, jwt.SigningMethodHS512, secret, validClaims("auth")))
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous := validClaims("auth")
	anonymous.UserID = ""
	anonymous.Subject = ""
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, secret, anonymous))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
