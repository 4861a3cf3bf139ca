package events

import "github.com/buildsite-dev/buildsite/internal/models"

// IdentityCreated fires when the identity service registers a new account.
type IdentityCreated struct {
	UID         string
	Email       string
	DisplayName string
}

// IdentityDeleted fires when an account is removed from the identity service.
type IdentityDeleted struct {
	UID string
}

// ProfileUpdated fires on every write to an existing user profile document and
// carries the before and after snapshots for change detection.
type ProfileUpdated struct {
	Before models.UserProfile
	After  models.UserProfile
}
