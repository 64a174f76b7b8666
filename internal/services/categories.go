package services

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/types"
)

const categoryConflict = "A category with this name already exists."

// CategoryInput is a category write payload. Nil fields are left unchanged.
type CategoryInput struct {
	Name          *string
	NameAr        *string
	Description   *string
	DescriptionAr *string
}

// ListCategories returns every category ordered by name.
func ListCategories(db *gorm.DB) ([]models.Category, error) {
	var cats []models.Category
	if err := db.Order("name ASC").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetCategory returns one category.
func GetCategory(db *gorm.DB, id uint64) (*models.Category, error) {
	var cat models.Category
	if err := db.First(&cat, id).Error; err != nil {
		return nil, notFound(err, "Category")
	}
	return &cat, nil
}

// CreateCategory inserts a category. Admin only.
func CreateCategory(db *gorm.DB, az *authz.Engine, actor authz.Actor, in CategoryInput) (*models.Category, error) {
	if err := az.Authorize(actor, authz.ActionCreate, authz.Resource{Kind: authz.KindCategory}); err != nil {
		return nil, err
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, types.FieldError("name", "This field is required.")
	}
	cat := &models.Category{}
	applyCategory(cat, in)
	if err := db.Create(cat).Error; err != nil {
		return nil, conflict(err, categoryConflict)
	}
	return cat, nil
}

// UpdateCategory applies a partial update. Admin only.
func UpdateCategory(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64, in CategoryInput) (*models.Category, error) {
	if err := az.Authorize(actor, authz.ActionUpdate, authz.Resource{Kind: authz.KindCategory}); err != nil {
		return nil, err
	}
	cat, err := GetCategory(db, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, types.FieldError("name", "This field may not be blank.")
	}
	applyCategory(cat, in)
	if err := db.Save(cat).Error; err != nil {
		return nil, conflict(err, categoryConflict)
	}
	return cat, nil
}

// DeleteCategory removes a category and its game links. Admin only.
func DeleteCategory(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64) error {
	if err := az.Authorize(actor, authz.ActionDelete, authz.Resource{Kind: authz.KindCategory}); err != nil {
		return err
	}
	cat, err := GetCategory(db, id)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM game_categories WHERE category_id = ?", cat.ID).Error; err != nil {
			return err
		}
		return tx.Delete(cat).Error
	})
}

func applyCategory(cat *models.Category, in CategoryInput) {
	if in.Name != nil {
		cat.Name = strings.TrimSpace(*in.Name)
	}
	if in.NameAr != nil {
		cat.NameAr = strings.TrimSpace(*in.NameAr)
	}
	if in.Description != nil {
		cat.Description = *in.Description
	}
	if in.DescriptionAr != nil {
		cat.DescriptionAr = *in.DescriptionAr
	}
}
