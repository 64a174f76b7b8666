package services

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

const reviewConflict = "You have already reviewed this game."

// ReviewFilters narrow a review listing.
type ReviewFilters struct {
	GameID uint64
	UserID uint64
}

func checkRating(rating int) error {
	if rating < 1 || rating > 5 {
		return types.FieldError("rating", "Ensure this value is between 1 and 5.")
	}
	return nil
}

func reviewResource(review *models.Review, game *models.Game) authz.Resource {
	return authz.Resource{Kind: authz.KindReview, OwnerID: review.UserID, Public: game.IsApproved()}
}

// RecordReview creates the actor's single review of a game.
func RecordReview(db *gorm.DB, az *authz.Engine, actor authz.Actor, gameID uint64, rating int, comment string) (*models.Review, error) {
	if err := az.Authorize(actor, authz.ActionCreate, authz.Resource{Kind: authz.KindReview}); err != nil {
		return nil, err
	}
	if gameID == 0 {
		return nil, types.FieldError("game", "This field is required.")
	}
	if err := checkRating(rating); err != nil {
		return nil, err
	}
	game, err := loadVisibleGame(db, actor, gameID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{GameID: game.ID, UserID: actor.ID, Rating: rating, Comment: comment}
	if err := db.Create(review).Error; err != nil {
		return nil, conflict(err, reviewConflict)
	}
	log.WithFields(log.Fields{"game": game.ID, "user": actor.ID, "rating": rating}).Debug("review recorded")
	return GetReview(db, actor, review.ID)
}

// ListReviews lists reviews of the games visible to actor, newest first.
func ListReviews(db *gorm.DB, actor authz.Actor, filters ReviewFilters, page PageRequest) (Page[models.Review], error) {
	q := db.Model(&models.Review{}).
		Joins("JOIN games ON games.id = reviews.game_id")
	q = scopeGames(q, authz.GameScope(actor))
	if filters.GameID != 0 {
		q = q.Where("reviews.game_id = ?", filters.GameID)
	}
	if filters.UserID != 0 {
		q = q.Where("reviews.user_id = ?", filters.UserID)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.Review]{}, fmt.Errorf("count reviews: %w", err)
	}
	var reviews []models.Review
	err := q.Preload("User").
		Select("reviews.*").
		Order("reviews.created_at DESC, reviews.id DESC").
		Limit(page.PageSize).Offset(page.Offset()).
		Find(&reviews).Error
	if err != nil {
		return Page[models.Review]{}, fmt.Errorf("list reviews: %w", err)
	}
	return newPage(page, total, reviews), nil
}

// loadReview returns a review and its game when the game is visible to actor.
func loadReview(db *gorm.DB, actor authz.Actor, id uint64) (*models.Review, *models.Game, error) {
	var review models.Review
	if err := db.Preload("User").First(&review, id).Error; err != nil {
		return nil, nil, notFound(err, "Review")
	}
	game, err := loadVisibleGame(db, actor, review.GameID)
	if err != nil {
		return nil, nil, types.NotFoundError("Review not found.")
	}
	return &review, game, nil
}

// GetReview returns a review of a visible game.
func GetReview(db *gorm.DB, actor authz.Actor, id uint64) (*models.Review, error) {
	review, _, err := loadReview(db, actor, id)
	return review, err
}

// UpdateReview changes the rating and/or comment of a review. Author or admin.
func UpdateReview(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64, rating *int, comment *string) (*models.Review, error) {
	review, game, err := loadReview(db, actor, id)
	if err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionUpdate, reviewResource(review, game)); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if rating != nil {
		if err := checkRating(*rating); err != nil {
			return nil, err
		}
		updates["rating"] = *rating
	}
	if comment != nil {
		updates["comment"] = *comment
	}
	if len(updates) > 0 {
		if err := db.Model(review).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update review %d: %w", id, err)
		}
	}
	return GetReview(db, actor, id)
}

// DeleteReview removes a review. Author or admin.
func DeleteReview(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64) error {
	review, game, err := loadReview(db, actor, id)
	if err != nil {
		return err
	}
	if err := az.Authorize(actor, authz.ActionDelete, reviewResource(review, game)); err != nil {
		return err
	}
	if err := db.Delete(&models.Review{}, review.ID).Error; err != nil {
		return fmt.Errorf("delete review %d: %w", id, err)
	}
	return nil
}
