package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserProfile is the application-level record for one identity. The UID is
// issued by the identity service and never changes.
type UserProfile struct {
	UID              string                      `gorm:"primaryKey" json:"uid"`
	FirstName        string                      `gorm:"not null" json:"first_name"`
	LastName         string                      `gorm:"not null" json:"last_name"`
	Email            string                      `gorm:"not null;index" json:"email"`
	Role             string                      `gorm:"not null;default:viewer" json:"role"`
	Status           string                      `gorm:"not null;default:pending" json:"status"`
	AssignedModules  datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"assigned_modules"`
	AssignedProjects datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"assigned_projects"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}
