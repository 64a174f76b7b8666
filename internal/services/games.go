// games.go
//
// Game distribution marketplace service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of gamestore.
// gamestore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// gamestore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with gamestore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/types"
)

// Upload is a file received with a request.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// GameInput is a game write payload. Nil fields are left unchanged.
// Keys lists every key present in the request payload, so protected
// fields are rejected even when their value would be a no-op.
type GameInput struct {
	Title           *string
	TitleAr         *string
	Description     *string
	DescriptionAr   *string
	CategoryIDs     []uint64
	SetCategories   bool
	Status          *string
	RejectionReason *string
	Keys            []string
}

func (in GameInput) validate(create bool) error {
	fields := map[string]string{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		switch {
		case t == "":
			fields["title"] = "This field may not be blank."
		case utf8.RuneCountInString(t) > 200:
			fields["title"] = "Ensure this field has no more than 200 characters."
		}
	} else if create {
		fields["title"] = "This field is required."
	}
	if in.TitleAr != nil && utf8.RuneCountInString(*in.TitleAr) > 200 {
		fields["title_ar"] = "Ensure this field has no more than 200 characters."
	}
	if in.Status != nil {
		switch *in.Status {
		case models.GameStatusPending, models.GameStatusApproved, models.GameStatusRejected:
		default:
			fields["status"] = fmt.Sprintf("%q is not a valid choice.", *in.Status)
		}
	}
	if len(fields) > 0 {
		return types.FieldsError(fields)
	}
	return nil
}

// loadCategories fetches categories by id and fails on any unknown id.
func loadCategories(db *gorm.DB, ids []uint64) ([]models.Category, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	var cats []models.Category
	if err := db.Where("id IN ?", ids).Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if len(cats) != len(ids) {
		return nil, types.FieldError("categories", "Invalid category id.")
	}
	return cats, nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// GetGame returns a game visible to actor. Hidden games are not found.
func GetGame(db *gorm.DB, actor authz.Actor, id uint64) (*models.Game, error) {
	game, err := loadVisibleGame(preloadGame(db), actor, id)
	if err != nil {
		return nil, err
	}
	return game, nil
}

// CreateGame stores the binary and inserts a pending game owned by actor.
func CreateGame(ctx context.Context, db *gorm.DB, az *authz.Engine, store *objstore.Store, actor authz.Actor, in GameInput, file *Upload) (*models.Game, error) {
	if err := authz.CheckProtectedFields(actor, in.Keys, authz.GameProtectedFields...); err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionCreate, authz.Resource{Kind: authz.KindGame}); err != nil {
		return nil, err
	}
	if err := in.validate(true); err != nil {
		return nil, err
	}
	if file == nil || file.Body == nil {
		return nil, types.FieldError("file", "No file was submitted.")
	}
	if err := objstore.CheckExtension("file", file.Filename, objstore.GameExtensions); err != nil {
		return nil, err
	}
	cats, err := loadCategories(db, in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	game := &models.Game{
		Title:       strings.TrimSpace(*in.Title),
		FileName:    file.Filename,
		DeveloperID: actor.ID,
		Status:      models.GameStatusPending,
		Categories:  cats,
	}
	applyText(game, in)
	if actor.IsAdmin() {
		applyModeration(game, in)
	}

	game.FileKey = objstore.NewKey(objstore.PrefixGames, file.Filename)
	if err := store.Put(ctx, game.FileKey, file.Body, file.ContentType); err != nil {
		return nil, err
	}

	if err := db.Create(game).Error; err != nil {
		if derr := store.Delete(ctx, game.FileKey); derr != nil {
			log.WithError(derr).WithField("key", game.FileKey).Warn("failed to remove orphaned game file")
		}
		return nil, fmt.Errorf("create game: %w", err)
	}

	log.WithFields(log.Fields{"game": game.ID, "developer": actor.ID}).Info("game submitted")
	return GetGame(db, actor, game.ID)
}

// UpdateGame applies a partial update. Only admins may touch status and
// rejection_reason; the payload is rejected whole when a non-admin sends them.
func UpdateGame(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64, in GameInput) (*models.Game, error) {
	if err := authz.CheckProtectedFields(actor, in.Keys, authz.GameProtectedFields...); err != nil {
		return nil, err
	}
	game, err := loadVisibleGame(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionUpdate, authz.GameResource(game)); err != nil {
		return nil, err
	}
	if err := in.validate(false); err != nil {
		return nil, err
	}

	var cats []models.Category
	if in.SetCategories {
		if cats, err = loadCategories(db, in.CategoryIDs); err != nil {
			return nil, err
		}
	}

	if in.Title != nil {
		game.Title = strings.TrimSpace(*in.Title)
	}
	applyText(game, in)
	if actor.IsAdmin() {
		applyModeration(game, in)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(game).Error; err != nil {
			return err
		}
		if in.SetCategories {
			return tx.Model(game).Association("Categories").Replace(cats)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update game %d: %w", id, err)
	}
	return GetGame(db, actor, id)
}

func applyText(game *models.Game, in GameInput) {
	if in.TitleAr != nil {
		game.TitleAr = strings.TrimSpace(*in.TitleAr)
	}
	if in.Description != nil {
		game.Description = *in.Description
	}
	if in.DescriptionAr != nil {
		game.DescriptionAr = *in.DescriptionAr
	}
}

// applyModeration sets status and reason. A reason only survives on a
// rejected game.
func applyModeration(game *models.Game, in GameInput) {
	if in.Status != nil {
		game.Status = *in.Status
	}
	if in.RejectionReason != nil {
		game.RejectionReason = strings.TrimSpace(*in.RejectionReason)
	}
	if game.Status != models.GameStatusRejected {
		game.RejectionReason = ""
	}
}

// ModerateGame moves a game to approved or rejected.
func ModerateGame(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64, status, reason string) (*models.Game, error) {
	var game models.Game
	if err := db.First(&game, id).Error; err != nil {
		return nil, notFound(err, "Game")
	}
	if err := az.Authorize(actor, authz.ActionModerate, authz.GameResource(&game)); err != nil {
		return nil, err
	}
	switch status {
	case models.GameStatusApproved, models.GameStatusRejected, models.GameStatusPending:
	default:
		return nil, types.FieldError("status", fmt.Sprintf("%q is not a valid choice.", status))
	}

	applyModeration(&game, GameInput{Status: &status, RejectionReason: &reason})
	if err := db.Model(&game).Select("Status", "RejectionReason", "UpdatedAt").Updates(&game).Error; err != nil {
		return nil, fmt.Errorf("moderate game %d: %w", id, err)
	}

	log.WithFields(log.Fields{"game": id, "status": status, "admin": actor.ID}).Info("game moderated")
	return GetGame(db, actor, id)
}

// ReplaceGameFile swaps the binary of a game and removes the old blob.
func ReplaceGameFile(ctx context.Context, db *gorm.DB, az *authz.Engine, store *objstore.Store, actor authz.Actor, id uint64, file *Upload) (*models.Game, error) {
	game, err := loadVisibleGame(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionUpdate, authz.GameResource(game)); err != nil {
		return nil, err
	}
	if file == nil || file.Body == nil {
		return nil, types.FieldError("file", "No file was submitted.")
	}
	if err := objstore.CheckExtension("file", file.Filename, objstore.GameExtensions); err != nil {
		return nil, err
	}

	oldKey := game.FileKey
	newKey := objstore.NewKey(objstore.PrefixGames, file.Filename)
	if err := store.Put(ctx, newKey, file.Body, file.ContentType); err != nil {
		return nil, err
	}
	if err := db.Model(game).Updates(map[string]any{"file_key": newKey, "file_name": file.Filename}).Error; err != nil {
		_ = store.Delete(ctx, newKey)
		return nil, fmt.Errorf("replace game file %d: %w", id, err)
	}
	if oldKey != "" {
		if err := store.Delete(ctx, oldKey); err != nil {
			log.WithError(err).WithField("key", oldKey).Warn("failed to remove replaced game file")
		}
	}
	return GetGame(db, actor, id)
}

// DeleteGame removes a game with its dependent rows and blobs.
func DeleteGame(ctx context.Context, db *gorm.DB, az *authz.Engine, store *objstore.Store, actor authz.Actor, id uint64) error {
	game, err := loadVisibleGame(db, actor, id, "Screenshots")
	if err != nil {
		return err
	}
	if err := az.Authorize(actor, authz.ActionDelete, authz.GameResource(game)); err != nil {
		return err
	}

	keys := []string{game.FileKey}
	for _, s := range game.Screenshots {
		keys = append(keys, s.ImageKey)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(game).Association("Categories").Clear(); err != nil {
			return err
		}
		return tx.Select("Screenshots").Delete(game).Error
	})
	if err != nil {
		return fmt.Errorf("delete game %d: %w", id, err)
	}

	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := store.Delete(ctx, key); err != nil {
			log.WithError(err).WithField("key", key).Warn("failed to remove game blob")
		}
	}
	log.WithFields(log.Fields{"game": id, "actor": actor.ID}).Info("game deleted")
	return nil
}
