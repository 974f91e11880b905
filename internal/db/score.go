package db

import "time"

type Score struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        string    `gorm:"size:36;not null;uniqueIndex:idx_scores_version_user"`
	GameVersionID uint      `gorm:"index;not null;uniqueIndex:idx_scores_version_user"`
	Score         int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	User          *User
}
