package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(12, "admin", "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	require.Equal(t, uint(12), claims.UserID)
	require.Equal(t, "admin", claims.Role)

	_, err = ParseJWT(token, "other")
	require.Error(t, err)
}

func TestJWTRejectsMissingSubject(t *testing.T) {
	token, err := GenerateJWT(0, "user", "secret")
	require.NoError(t, err)
	_, err = ParseJWT(token, "secret")
	require.Error(t, err)
}
