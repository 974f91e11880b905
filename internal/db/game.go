package db

import (
	"time"

	"gorm.io/gorm"
)

type Game struct {
	ID          uint           `gorm:"primaryKey"`
	Title       string         `gorm:"size:120;not null"`
	Slug        string         `gorm:"size:140;uniqueIndex;not null"`
	Description string         `gorm:"size:2000"`
	Image       string         `gorm:"size:255"`
	UserID      string         `gorm:"size:36;index;not null"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
	Versions    []GameVersion
}

type GameVersion struct {
	ID        uint      `gorm:"primaryKey"`
	Version   string    `gorm:"size:16;not null;uniqueIndex:idx_game_versions_game_version"`
	Path      string    `gorm:"size:255;not null"`
	GameID    uint      `gorm:"index;not null;uniqueIndex:idx_game_versions_game_version"`
	CreatedAt time.Time `gorm:"not null"`
	Game      *Game
	Scores    []Score
}
