package models

import "time"

// Comment is an immutable note a user left on a game.
type Comment struct {
	ID        uint      `gorm:"primaryKey"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_comments_game_created,priority:2"`
	UserID    uint      `gorm:"not null;index"`
	GameID    uint      `gorm:"not null;index:idx_comments_game_created,priority:1"`

	User User `gorm:"foreignKey:UserID"`
}

// AllModels lists every model handled by AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Genre{},
		&Game{},
		&OwnedGame{},
		&NowPlayingGame{},
		&Comment{},
	}
}
