package triggers

import (
	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
)

// DeriveClaims builds the complete claim set for a profile. Missing fields
// fall back to the least-privileged defaults so a partially written profile
// never grants access it shouldn't.
func DeriveClaims(profile models.UserProfile) types.Claims {
	role := profile.Role
	if role == "" {
		role = types.RoleViewer
	}

	return types.Claims{
		Role:             role,
		AssignedModules:  nonNil(profile.AssignedModules),
		AssignedProjects: nonNil(profile.AssignedProjects),
	}
}

// SameClaims reports whether two claim sets grant the same access. The slice
// fields are compared as sets, so reordering a grant list is not a change.
func SameClaims(a, b types.Claims) bool {
	if a.Role != b.Role {
		return false
	}
	return sameStringSet(a.AssignedModules, b.AssignedModules) &&
		sameStringSet(a.AssignedProjects, b.AssignedProjects)
}

func sameStringSet(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}

	seen := make(map[string]bool, len(b))
	for _, v := range b {
		if !set[v] {
			return false
		}
		seen[v] = true
	}

	return len(set) == len(seen)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
