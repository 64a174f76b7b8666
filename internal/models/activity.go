package models

import (
	"time"
)

// Review is a rating of a game. (GameID, UserID) is unique.
type Review struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	GameID    uint64 `gorm:"not null;uniqueIndex:idx_reviews_game_user"`
	Game      Game   `gorm:"constraint:OnDelete:CASCADE"`
	UserID    uint64 `gorm:"not null;uniqueIndex:idx_reviews_game_user;index"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Rating    int    `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5"`
	Comment   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LibraryEntry records that a user saved a game. (UserID, GameID) is unique.
type LibraryEntry struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;uniqueIndex:idx_library_user_game"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	GameID    uint64 `gorm:"not null;uniqueIndex:idx_library_user_game;index"`
	Game      Game   `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// DownloadEvent is an append-only usage record. UserID is nil for anonymous downloads.
type DownloadEvent struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	GameID     uint64  `gorm:"not null;index"`
	Game       Game    `gorm:"constraint:OnDelete:CASCADE"`
	UserID     *uint64 `gorm:"index"`
	User       *User   `gorm:"constraint:OnDelete:SET NULL"`
	IPAddress  string  `gorm:"size:45"`
	DeviceInfo string  `gorm:"size:255"`
	UserAgent  string  `gorm:"size:512"`
	Client     JSON
	CreatedAt  time.Time `gorm:"index"`
}

// TableName overrides the table name for Review
func (Review) TableName() string {
	return "reviews"
}

// TableName overrides the table name for LibraryEntry
func (LibraryEntry) TableName() string {
	return "library_entries"
}

// TableName overrides the table name for DownloadEvent
func (DownloadEvent) TableName() string {
	return "download_events"
}

// All lists every model in dependency order, for migrations and schema tools.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&Category{},
		&Game{},
		&Screenshot{},
		&Review{},
		&LibraryEntry{},
		&DownloadEvent{},
	}
}
