package models

import "time"

// User represents a person known to the identity provider.
// SubjectID is the only identity key; Username and Email are display data.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	SubjectID string `gorm:"size:120;uniqueIndex;not null"`
	Username  string `gorm:"size:64;index;not null"`
	Email     string `gorm:"size:120;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
