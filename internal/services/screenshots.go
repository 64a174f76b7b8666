package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/types"
)

const baseScreenshotConflict = "This game already has a base screenshot."

func screenshotResource(game *models.Game) authz.Resource {
	return authz.Resource{Kind: authz.KindScreenshot, OwnerID: game.DeveloperID, Public: game.IsApproved()}
}

// ListScreenshots lists screenshots of the games visible to actor,
// optionally of one game.
func ListScreenshots(db *gorm.DB, actor authz.Actor, gameID uint64, page PageRequest) (Page[models.Screenshot], error) {
	q := db.Model(&models.Screenshot{}).
		Joins("JOIN games ON games.id = screenshots.game_id")
	q = scopeGames(q, authz.GameScope(actor))
	if gameID != 0 {
		q = q.Where("screenshots.game_id = ?", gameID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.Screenshot]{}, fmt.Errorf("count screenshots: %w", err)
	}
	var shots []models.Screenshot
	err := q.Select("screenshots.*").
		Order("screenshots.game_id ASC, screenshots.is_base DESC, screenshots.id ASC").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&shots).Error
	if err != nil {
		return Page[models.Screenshot]{}, fmt.Errorf("list screenshots: %w", err)
	}
	return newPage(page, total, shots), nil
}

// CreateScreenshot stores an image for a game owned by actor.
func CreateScreenshot(ctx context.Context, db *gorm.DB, az *authz.Engine, store *objstore.Store, actor authz.Actor, gameID uint64, isBase bool, image *Upload) (*models.Screenshot, error) {
	if gameID == 0 {
		return nil, types.FieldError("game", "This field is required.")
	}
	game, err := loadVisibleGame(db, actor, gameID)
	if err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionCreate, screenshotResource(game)); err != nil {
		return nil, err
	}
	if image == nil || image.Body == nil {
		return nil, types.FieldError("image", "No file was submitted.")
	}
	if err := objstore.CheckExtension("image", image.Filename, objstore.ImageExtensions); err != nil {
		return nil, err
	}

	shot := &models.Screenshot{
		GameID:   game.ID,
		ImageKey: objstore.NewKey(objstore.PrefixScreenshots, image.Filename),
		IsBase:   isBase,
	}
	if err := store.Put(ctx, shot.ImageKey, image.Body, image.ContentType); err != nil {
		return nil, err
	}
	if err := db.Create(shot).Error; err != nil {
		if derr := store.Delete(ctx, shot.ImageKey); derr != nil {
			log.WithError(derr).WithField("key", shot.ImageKey).Warn("failed to remove orphaned screenshot")
		}
		return nil, conflict(err, baseScreenshotConflict)
	}
	touchGame(db, game.ID)
	return shot, nil
}

// loadScreenshot returns a screenshot and its game when the game is visible.
func loadScreenshot(db *gorm.DB, actor authz.Actor, id uint64) (*models.Screenshot, *models.Game, error) {
	var shot models.Screenshot
	if err := db.First(&shot, id).Error; err != nil {
		return nil, nil, notFound(err, "Screenshot")
	}
	game, err := loadVisibleGame(db, actor, shot.GameID)
	if err != nil {
		return nil, nil, types.NotFoundError("Screenshot not found.")
	}
	return &shot, game, nil
}

// GetScreenshot returns a screenshot of a visible game.
func GetScreenshot(db *gorm.DB, actor authz.Actor, id uint64) (*models.Screenshot, error) {
	shot, _, err := loadScreenshot(db, actor, id)
	return shot, err
}

// SetBaseScreenshot flags or unflags a screenshot as the game's base image.
func SetBaseScreenshot(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64, isBase bool) (*models.Screenshot, error) {
	shot, game, err := loadScreenshot(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionUpdate, screenshotResource(game)); err != nil {
		return nil, err
	}
	if shot.IsBase == isBase {
		return shot, nil
	}
	if err := db.Model(shot).Update("is_base", isBase).Error; err != nil {
		return nil, conflict(err, baseScreenshotConflict)
	}
	shot.IsBase = isBase
	touchGame(db, game.ID)
	return shot, nil
}

// DeleteScreenshot removes a screenshot and its image.
func DeleteScreenshot(ctx context.Context, db *gorm.DB, az *authz.Engine, store *objstore.Store, actor authz.Actor, id uint64) error {
	shot, game, err := loadScreenshot(db, actor, id)
	if err != nil {
		return err
	}
	if err := az.Authorize(actor, authz.ActionDelete, screenshotResource(game)); err != nil {
		return err
	}
	if err := db.Delete(shot).Error; err != nil {
		return fmt.Errorf("delete screenshot %d: %w", id, err)
	}
	if err := store.Delete(ctx, shot.ImageKey); err != nil {
		log.WithError(err).WithField("key", shot.ImageKey).Warn("failed to remove screenshot image")
	}
	touchGame(db, game.ID)
	return nil
}

// touchGame bumps updated_at after a change to a game's dependents.
func touchGame(db *gorm.DB, id uint64) {
	if err := db.Model(&models.Game{}).Where("id = ?", id).Update("updated_at", db.NowFunc()).Error; err != nil {
		log.WithError(err).WithField("game", id).Warn("failed to touch game")
	}
}
