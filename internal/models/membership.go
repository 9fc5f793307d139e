package models

import "time"

// OwnedGame marks a game as part of a user's library.
// The primary key is a composite of (UserID, GameID) so a pair can only exist once.
type OwnedGame struct {
	UserID    uint `gorm:"primaryKey"`
	GameID    uint `gorm:"primaryKey;index"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Game Game `gorm:"foreignKey:GameID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// NowPlayingGame marks a game as currently being played by a user.
// It is tracked independently of OwnedGame.
type NowPlayingGame struct {
	UserID    uint `gorm:"primaryKey"`
	GameID    uint `gorm:"primaryKey;index"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Game Game `gorm:"foreignKey:GameID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// TableName overrides the default table name.
func (OwnedGame) TableName() string { return "user_owned_games" }

// TableName overrides the default table name.
func (NowPlayingGame) TableName() string { return "user_now_playing" }
