package models

import "time"

// MetadataKey is the primary key of the singleton SystemMetadata row.
const MetadataKey = "system/metadata"

// SystemMetadata holds the monotonic user counter consulted by the signup
// trigger to decide first-user status. The row must only be read and written
// inside the store's counter transaction.
type SystemMetadata struct {
	Key       string    `gorm:"primaryKey"`
	UserCount int       `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
