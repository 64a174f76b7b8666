package models

import (
	"time"
)

// Game moderation states.
const (
	GameStatusPending  = "pending"
	GameStatusApproved = "approved"
	GameStatusRejected = "rejected"
)

// Category is static reference data for tagging games.
type Category struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"size:100;not null;uniqueIndex"`
	NameAr        string `gorm:"size:100"`
	Description   string `gorm:"type:text"`
	DescriptionAr string `gorm:"type:text"`
	CreatedAt     time.Time
}

// Game is a developer submission. Only approved games are public.
type Game struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	Title           string `gorm:"size:200;not null"`
	TitleAr         string `gorm:"size:200"`
	Description     string `gorm:"type:text"`
	DescriptionAr   string `gorm:"type:text"`
	FileKey         string `gorm:"size:255"`
	FileName        string `gorm:"size:255"`
	DeveloperID     uint64 `gorm:"not null;index"`
	Developer       User   `gorm:"constraint:OnDelete:CASCADE"`
	Status          string `gorm:"size:20;not null;default:pending;index"`
	RejectionReason string `gorm:"type:text"`
	Categories      []Category   `gorm:"many2many:game_categories;constraint:OnDelete:CASCADE"`
	Screenshots     []Screenshot `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time    `gorm:"index"`
	UpdatedAt       time.Time
}

// Screenshot is an image of a game. At most one per game has IsBase set;
// the database enforces it with the unique_base_screenshot_per_game index.
type Screenshot struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	GameID    uint64 `gorm:"not null;index"`
	ImageKey  string `gorm:"size:255;not null"`
	IsBase    bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// BaseScreenshotIndex names the partial unique index over base screenshots.
const BaseScreenshotIndex = "unique_base_screenshot_per_game"

// IsApproved reports whether the game is publicly visible.
func (g *Game) IsApproved() bool {
	return g.Status == GameStatusApproved
}

// BaseScreenshot returns the loaded base screenshot, if any.
func (g *Game) BaseScreenshot() *Screenshot {
	for i := range g.Screenshots {
		if g.Screenshots[i].IsBase {
			return &g.Screenshots[i]
		}
	}
	return nil
}

// TableName overrides the table name for Category
func (Category) TableName() string {
	return "categories"
}

// TableName overrides the table name for Game
func (Game) TableName() string {
	return "games"
}

// TableName overrides the table name for Screenshot
func (Screenshot) TableName() string {
	return "screenshots"
}
