package handlers

import (
	"github.com/buildsite-dev/buildsite/internal/events"
	"github.com/buildsite-dev/buildsite/internal/identity"
	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
)

var (
	identitySvc *identity.Service
	bus         *events.Bus
)

// Configure wires the handler package to the identity service and event bus.
// Called once from main before the router starts.
func Configure(svc *identity.Service, b *events.Bus) {
	identitySvc = svc
	bus = b
}

func profileResponse(profile models.UserProfile) types.UserResponse {
	return types.UserResponse{
		UID:              profile.UID,
		FirstName:        profile.FirstName,
		LastName:         profile.LastName,
		Email:            profile.Email,
		Role:             profile.Role,
		Status:           profile.Status,
		AssignedModules:  profile.AssignedModules,
		AssignedProjects: profile.AssignedProjects,
	}
}
