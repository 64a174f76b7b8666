// users.go
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
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/types"
)

const userConflict = "A user with that username already exists."

// RegisterInput is a registration payload.
type RegisterInput struct {
	Username string `json:"username" form:"username" validate:"required,max=150,username"`
	Email    string `json:"email" form:"email" validate:"required,email,max=254"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" form:"role"`
}

// UserInput is a user update payload. Nil fields are left unchanged.
type UserInput struct {
	Email    *string  `json:"email" validate:"omitempty,email,max=254"`
	Password *string  `json:"password" validate:"omitempty,min=8,max=128"`
	Role     *string  `json:"role"`
	Keys     []string `json:"-"`
}

func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// storedRole normalizes a submitted role name. Empty means player.
func storedRole(name string) (authz.Role, error) {
	if strings.TrimSpace(name) == "" {
		return authz.Player, nil
	}
	role, err := authz.ParseRole(name)
	if err != nil {
		return authz.Anonymous, types.FieldError("role", fmt.Sprintf("%q is not a valid choice.", name))
	}
	return role, nil
}

// Register creates an account. Only an admin actor may create admins.
func Register(db *gorm.DB, actor authz.Actor, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := Validate(in); err != nil {
		return nil, err
	}
	role, err := storedRole(in.Role)
	if err != nil {
		return nil, err
	}
	if role == authz.Admin && !actor.IsAdmin() {
		return nil, types.FieldError("role", "Only administrators can create admin users.")
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role.String(),
	}
	if err := db.Create(user).Error; err != nil {
		return nil, conflict(err, userConflict)
	}
	log.WithFields(log.Fields{"user": user.ID, "role": user.Role}).Info("user registered")
	return user, nil
}

func userResource(id uint64) authz.Resource {
	return authz.Resource{Kind: authz.KindUser, OwnerID: id}
}

// GetUser returns a user. Self or admin.
func GetUser(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64) (*models.User, error) {
	if err := az.Authorize(actor, authz.ActionRead, userResource(id)); err != nil {
		return nil, err
	}
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, notFound(err, "User")
	}
	return &user, nil
}

// ListUsers lists every account. Admin only.
func ListUsers(db *gorm.DB, az *authz.Engine, actor authz.Actor, role string, page PageRequest) (Page[models.User], error) {
	if err := az.Authorize(actor, authz.ActionList, authz.Resource{Kind: authz.KindUser}); err != nil {
		return Page[models.User]{}, err
	}
	q := db.Model(&models.User{})
	if role != "" {
		r, err := storedRole(role)
		if err != nil {
			return Page[models.User]{}, err
		}
		q = q.Where("role = ?", r.String())
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[models.User]{}, fmt.Errorf("count users: %w", err)
	}
	var users []models.User
	if err := q.Order("id ASC").Limit(page.PageSize).Offset(page.Offset()).Find(&users).Error; err != nil {
		return Page[models.User]{}, fmt.Errorf("list users: %w", err)
	}
	return newPage(page, total, users), nil
}

// UpdateUser applies a partial update. Self or admin; only admins change roles.
func UpdateUser(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64, in UserInput) (*models.User, error) {
	if err := authz.CheckProtectedFields(actor, in.Keys, "role"); err != nil {
		return nil, err
	}
	user, err := GetUser(db, az, actor, id)
	if err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionUpdate, userResource(id)); err != nil {
		return nil, err
	}
	if err := Validate(in); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Email != nil {
		updates["email"] = strings.TrimSpace(*in.Email)
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if in.Role != nil {
		role, err := storedRole(*in.Role)
		if err != nil {
			return nil, err
		}
		updates["role"] = role.String()
	}
	if len(updates) == 0 {
		return user, nil
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return GetUser(db, az, actor, id)
}

// DeleteUser removes an account and everything it owns. Admin only.
func DeleteUser(db *gorm.DB, az *authz.Engine, actor authz.Actor, id uint64) error {
	if err := az.Authorize(actor, authz.ActionDelete, userResource(id)); err != nil {
		return err
	}
	res := db.Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NotFoundError("User not found.")
	}
	log.WithFields(log.Fields{"user": id, "admin": actor.ID}).Info("user deleted")
	return nil
}

// SetProfileImage stores a new profile image and removes the previous one.
func SetProfileImage(ctx context.Context, db *gorm.DB, az *authz.Engine, store *objstore.Store, actor authz.Actor, id uint64, image *Upload) (*models.User, error) {
	user, err := GetUser(db, az, actor, id)
	if err != nil {
		return nil, err
	}
	if err := az.Authorize(actor, authz.ActionUpdate, userResource(id)); err != nil {
		return nil, err
	}
	if image == nil || image.Body == nil {
		return nil, types.FieldError("image", "No file was submitted.")
	}
	if err := objstore.CheckExtension("image", image.Filename, objstore.ImageExtensions); err != nil {
		return nil, err
	}

	oldKey := user.ProfileImage
	key := objstore.NewKey(objstore.PrefixProfiles, image.Filename)
	if err := store.Put(ctx, key, image.Body, image.ContentType); err != nil {
		return nil, err
	}
	if err := db.Model(user).Update("profile_image", key).Error; err != nil {
		_ = store.Delete(ctx, key)
		return nil, fmt.Errorf("set profile image %d: %w", id, err)
	}
	if oldKey != "" {
		if err := store.Delete(ctx, oldKey); err != nil {
			log.WithError(err).WithField("key", oldKey).Warn("failed to remove previous profile image")
		}
	}
	user.ProfileImage = key
	return user, nil
}

// CreateAdmin creates an administrator outside any request.
func CreateAdmin(db *gorm.DB, username, email, password string) (*models.User, error) {
	return Register(db, authz.Actor{Role: authz.Admin}, RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
}

// SetRole changes the role of a user by username outside any request.
func SetRole(db *gorm.DB, username, role string) (*models.User, error) {
	r, err := authz.ParseRole(role)
	if err != nil {
		return nil, types.FieldError("role", err.Error())
	}
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err, "User")
	}
	if err := db.Model(&user).Update("role", r.String()).Error; err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	user.Role = r.String()
	return &user, nil
}
