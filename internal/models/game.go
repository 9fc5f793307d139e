package models

import "time"

// Game represents a catalog entry, optionally linked to an IGDB record.
type Game struct {
	ID          uint   `gorm:"primaryKey"`
	IGDBID      *int64 `gorm:"column:igdb_id;uniqueIndex"`
	Title       string `gorm:"size:100;not null"`
	Description string `gorm:"type:text"`
	CoverArtURL string `gorm:"size:255"`
	Franchise   string `gorm:"size:255"`
	Studio      string `gorm:"size:255"`
	ReleaseDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Genres   []*Genre  `gorm:"many2many:game_genres;constraint:OnDelete:CASCADE;"`
	Comments []Comment `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE;"`
}
