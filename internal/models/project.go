package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	gorm.Model

	Name      string `gorm:"not null"`
	Location  string
	Status    string `gorm:"not null;default:planning"` // "planning", "active", "on_hold", "completed"
	StartDate *time.Time
	OwnerUID  string `gorm:"not null;index"`
}
