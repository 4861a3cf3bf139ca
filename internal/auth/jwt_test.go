package auth

import (
	"testing"

	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJWTSecretMissing(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Error(t, InitJWTSecret())
}

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, InitJWTSecret())

	claims := types.Claims{
		Role:             types.RoleProjectManager,
		AssignedModules:  []string{types.ModuleProjects, types.ModuleDailyReport},
		AssignedProjects: []string{"7"},
	}

	tokenString, err := GenerateJWT("uid-1", "pm@x.com", claims)
	require.NoError(t, err)

	token, err := VerifyJWT(tokenString)
	require.NoError(t, err)

	uid, email, extracted, err := ExtractClaims(token)
	require.NoError(t, err)

	assert.Equal(t, "uid-1", uid)
	assert.Equal(t, "pm@x.com", email)
	assert.Equal(t, types.RoleProjectManager, extracted.Role)
	assert.ElementsMatch(t, claims.AssignedModules, extracted.AssignedModules)
	assert.ElementsMatch(t, claims.AssignedProjects, extracted.AssignedProjects)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	require.NoError(t, InitJWTSecret())

	tokenString, err := GenerateJWT("uid-1", "a@x.com", types.Claims{Role: types.RoleViewer})
	require.NoError(t, err)

	_, err = VerifyJWT(tokenString + "x")
	assert.Error(t, err)
}

func TestVerifyRejectsTokenFromOtherSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-a")
	require.NoError(t, InitJWTSecret())

	tokenString, err := GenerateJWT("uid-1", "a@x.com", types.Claims{Role: types.RoleViewer})
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "secret-b")
	require.NoError(t, InitJWTSecret())

	_, err = VerifyJWT(tokenString)
	assert.Error(t, err)
}
