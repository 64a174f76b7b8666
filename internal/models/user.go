package models

import (
	"time"
)

// Stored role names. "user" is accepted on input as an alias for player.
const (
	RoleAdmin     = "admin"
	RoleDeveloper = "developer"
	RolePlayer    = "player"
)

// User is a marketplace account.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:150;not null;uniqueIndex"`
	Email        string `gorm:"size:254;not null;index"`
	PasswordHash string `gorm:"size:100;not null"`
	Role         string `gorm:"size:20;not null;default:player;index"`
	ProfileImage string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session backs a login token. Deleting the row revokes the token.
type Session struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    uint64    `gorm:"not null;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Session
func (Session) TableName() string {
	return "sessions"
}
