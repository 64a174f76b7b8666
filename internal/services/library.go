package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

const libraryConflict = "This game is already in your library."

// ListLibrary lists the library of userID, or of actor when userID is 0.
// Only admins may read another user's library.
func ListLibrary(db *gorm.DB, az *authz.Engine, actor authz.Actor, userID uint64, page PageRequest) (Page[models.LibraryEntry], error) {
	if userID == 0 {
		userID = actor.ID
	}
	if err := az.Authorize(actor, authz.ActionList, authz.Resource{Kind: authz.KindLibraryEntry, OwnerID: userID}); err != nil {
		return Page[models.LibraryEntry]{}, err
	}

	q := db.Model(&models.LibraryEntry{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.LibraryEntry]{}, fmt.Errorf("count library: %w", err)
	}
	var entries []models.LibraryEntry
	err := q.Preload("Game").
		Preload("Game.Screenshots", "is_base = ?", true).
		Preload("Game.Categories").
		Preload("Game.Developer").
		Order("created_at DESC, id DESC").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&entries).Error
	if err != nil {
		return Page[models.LibraryEntry]{}, fmt.Errorf("list library: %w", err)
	}
	return newPage(page, total, entries), nil
}

// AddToLibrary saves an approved game to the actor's library.
func AddToLibrary(db *gorm.DB, az *authz.Engine, actor authz.Actor, gameID uint64) (*models.LibraryEntry, error) {
	if err := az.Authorize(actor, authz.ActionCreate, authz.Resource{Kind: authz.KindLibraryEntry}); err != nil {
		return nil, err
	}
	if gameID == 0 {
		return nil, types.FieldError("game", "This field is required.")
	}
	game, err := loadVisibleGame(db, actor, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsApproved() {
		return nil, types.ValidationError("Only approved games can be added to a library.")
	}

	entry := &models.LibraryEntry{UserID: actor.ID, GameID: game.ID}
	if err := db.Create(entry).Error; err != nil {
		return nil, conflict(err, libraryConflict)
	}
	entry.Game = *game
	return entry, nil
}

// RemoveFromLibrary deletes a library entry. Owner or admin.
func RemoveFromLibrary(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64) error {
	var entry models.LibraryEntry
	if err := db.First(&entry, id).Error; err != nil {
		return notFound(err, "Library entry")
	}
	if err := az.Authorize(actor, authz.ActionDelete, authz.Resource{Kind: authz.KindLibraryEntry, OwnerID: entry.UserID}); err != nil {
		return err
	}
	if err := db.Delete(&models.LibraryEntry{}, entry.ID).Error; err != nil {
		return fmt.Errorf("delete library entry %d: %w", id, err)
	}
	return nil
}
