package models

import "time"

// Genre represents a game genre (e.g., "RPG", "Shooter").
// Names are unique as stored; lookups are case-sensitive.
type Genre struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:50;uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
