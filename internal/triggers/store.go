package triggers

import (
	"context"

	"github.com/buildsite-dev/buildsite/internal/models"
	"github.com/buildsite-dev/buildsite/internal/types"
)

// ProfileStore is the slice of the document store the trigger pipeline needs.
type ProfileStore interface {
	// RegisterSignup atomically increments the user counter and reports
	// whether this signup is the first ever. Implementations must use a real
	// transaction: under concurrent calls exactly one may return true.
	RegisterSignup(ctx context.Context) (bool, error)

	// SaveProfile merge-writes the profile at its UID, preserving any fields
	// an existing partial document already carries.
	SaveProfile(ctx context.Context, profile *models.UserProfile) error

	// RemoveProfile deletes the profile and decrements the user counter in a
	// single atomic batch: both happen or neither does.
	RemoveProfile(ctx context.Context, uid string) error

	// Profiles lists every profile. Used by the reconciliation sweep.
	Profiles(ctx context.Context) ([]models.UserProfile, error)
}

// ClaimsSetter overwrites the full custom claim set attached to an identity.
type ClaimsSetter interface {
	SetCustomClaims(ctx context.Context, uid string, claims types.Claims) error
}
