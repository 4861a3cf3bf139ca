package models

import (
	"time"

	"gorm.io/datatypes"
)

// Identity is an account in the identity service. CustomClaims is the
// provider-side storage behind SetCustomClaims; its contents are copied into
// every token minted for this identity.
type Identity struct {
	UID          string         `gorm:"primaryKey"`
	Email        string         `gorm:"uniqueIndex;not null"`
	PasswordHash string         `gorm:"not null"`
	DisplayName  string
	CustomClaims datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
