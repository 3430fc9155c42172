package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewKeysRejectsEmptyKey(t *testing.T) {
	_, err := NewKeys("")
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestTokenRoundTrip(t *testing.T) {
	keys, err := NewKeys("test-signing-key")
	require.NoError(t, err)

	token, err := keys.GenerateToken("usr-1", "alice@example.com", RoleUser)
	require.NoError(t, err)

	claims, err := keys.VerifyToken("Bearer " + token)
	require.NoError(t, err)
	require.Equal(t, "usr-1", claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, RoleUser, claims.Role)
	require.Empty(t, claims.Scope)
}

func TestResetTokenCarriesScope(t *testing.T) {
	keys, err := NewKeys("test-signing-key")
	require.NoError(t, err)

	token, err := keys.GenerateResetToken("usr-1", "alice@example.com")
	require.NoError(t, err)

	claims, err := keys.VerifyToken("Bearer " + token)
	require.NoError(t, err)
	require.Equal(t, ScopePasswordReset, claims.Scope)
}

func TestVerifyTokenRejectsMalformedHeader(t *testing.T) {
	keys, err := NewKeys("test-signing-key")
	require.NoError(t, err)

	token, err := keys.GenerateToken("usr-1", "alice@example.com", RoleUser)
	require.NoError(t, err)

	for _, header := range []string{"", token, "Basic " + token, "Bearer", "Bearer a b"} {
		_, err := keys.VerifyToken(header)
		require.ErrorIs(t, err, ErrInvalidToken, "header %q", header)
	}
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	keys, err := NewKeys("test-signing-key")
	require.NoError(t, err)
	otherKeys, err := NewKeys("other-signing-key")
	require.NoError(t, err)

	token, err := keys.GenerateToken("usr-1", "alice@example.com", RoleUser)
	require.NoError(t, err)

	_, err = otherKeys.VerifyToken("Bearer " + token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
