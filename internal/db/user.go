package db

import "time"

const (
	ProviderCredential = "credential"
)

type User struct {
	ID            string `gorm:"primaryKey;size:36"`
	Name          string `gorm:"size:64;not null"`
	Email         string `gorm:"size:255;uniqueIndex;not null"`
	EmailVerified bool   `gorm:"not null;default:false"`
	Image         string `gorm:"size:255"`
	Role          string `gorm:"size:16;not null;default:user"`
	Banned        bool   `gorm:"not null;default:false"`
	BanReason     string `gorm:"size:280"`
	LastLoginAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	Accounts      []Account
	Sessions      []Session
	Games         []Game
	Scores        []Score
}

type Account struct {
	ID         string    `gorm:"primaryKey;size:36"`
	ProviderID string    `gorm:"size:32;not null;uniqueIndex:idx_accounts_user_provider"`
	UserID     string    `gorm:"size:36;not null;index;uniqueIndex:idx_accounts_user_provider"`
	Password   string    `gorm:"size:128"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}
