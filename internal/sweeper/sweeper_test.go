package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubProfiles struct {
	profiles []models.UserProfile
	err      error
}

func (s *stubProfiles) RegisterSignup(context.Context) (bool, error) { return false, nil }
func (s *stubProfiles) SaveProfile(context.Context, *models.UserProfile) error {
	return nil
}
func (s *stubProfiles) RemoveProfile(context.Context, string) error { return nil }
func (s *stubProfiles) Profiles(context.Context) ([]models.UserProfile, error) {
	return s.profiles, s.err
}

type stubClaims struct {
	mu       sync.Mutex
	stored   map[string]types.Claims
	setCalls int
	readErr  error
}

func (s *stubClaims) CustomClaims(_ context.Context, uid string) (types.Claims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return types.Claims{}, s.readErr
	}
	if claims, ok := s.stored[uid]; ok {
		return claims, nil
	}
	return types.Claims{
		Role:             types.RoleViewer,
		AssignedModules:  []string{},
		AssignedProjects: []string{},
	}, nil
}

func (s *stubClaims) SetCustomClaims(_ context.Context, uid string, claims types.Claims) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	s.stored[uid] = claims
	return nil
}

func TestSweepReconcilesDriftedClaims(t *testing.T) {
	// Admin profile whose claims write never landed: stored claims still say
	// viewer with no grants.
	profile := models.UserProfile{
		UID:              "uid-1",
		Role:             types.RoleAdmin,
		AssignedModules:  types.DefaultAdminModules(),
		AssignedProjects: []string{},
	}

	store := &stubProfiles{profiles: []models.UserProfile{profile}}
	claims := &stubClaims{stored: make(map[string]types.Claims)}

	s := New(store, claims, 0, zaptest.NewLogger(t))
	s.SweepOnce(context.Background())

	require.Equal(t, 1, claims.setCalls)
	reconciled := claims.stored["uid-1"]
	assert.Equal(t, types.RoleAdmin, reconciled.Role)
	assert.ElementsMatch(t, types.DefaultAdminModules(), reconciled.AssignedModules)
}

func TestSweepSkipsMatchingClaims(t *testing.T) {
	profile := models.UserProfile{
		UID:              "uid-1",
		Role:             types.RoleViewer,
		AssignedModules:  []string{types.ModuleProjects, types.ModuleDashboard},
		AssignedProjects: []string{},
	}

	claims := &stubClaims{stored: map[string]types.Claims{
		// Same membership, different order: not drift.
		"uid-1": {
			Role:             types.RoleViewer,
			AssignedModules:  []string{types.ModuleDashboard, types.ModuleProjects},
			AssignedProjects: []string{},
		},
	}}

	s := New(&stubProfiles{profiles: []models.UserProfile{profile}}, claims, 0, zaptest.NewLogger(t))
	s.SweepOnce(context.Background())

	assert.Equal(t, 0, claims.setCalls, "matching claims must not be re-written")
}

func TestSweepContinuesPastReadErrors(t *testing.T) {
	profiles := []models.UserProfile{
		{UID: "uid-1", Role: types.RoleAdmin},
		{UID: "uid-2", Role: types.RoleAdmin},
	}

	claims := &stubClaims{stored: make(map[string]types.Claims), readErr: errors.New("identity unavailable")}

	s := New(&stubProfiles{profiles: profiles}, claims, 0, zaptest.NewLogger(t))
	s.SweepOnce(context.Background())

	assert.Equal(t, 0, claims.setCalls)
}

func TestSweepConvergesDerivedClaims(t *testing.T) {
	profile := models.UserProfile{UID: "uid-1", Role: types.RoleProjectManager}
	claims := &stubClaims{stored: make(map[string]types.Claims)}

	s := New(&stubProfiles{profiles: []models.UserProfile{profile}}, claims, 0, zaptest.NewLogger(t))
	s.SweepOnce(context.Background())
	firstPass := claims.setCalls

	s.SweepOnce(context.Background())

	assert.Equal(t, 1, firstPass)
	assert.Equal(t, 1, claims.setCalls, "a second sweep over converged state writes nothing")
}
