package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// UserHandler handles account, session and user routes
type UserHandler struct {
	*Deps
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// Register handles POST /api/users/register
// @Summary Register an account
// @Description Create a player or developer account. Admin accounts can only be created by an admin.
// @Tags Users
// @Accept json,mpfd
// @Produce json
// @Param payload body services.RegisterInput true "Account"
// @Success 201 {object} UserView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Router /users/register [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if isMultipart(c) || len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return types.ValidationError("Malformed request body.")
		}
	}

	user, err := services.Register(h.DB, middleware.ActorFrom(c), in)
	if err != nil {
		return err
	}

	upload, closeFn, err := formUpload(c, "profile_image")
	if err != nil {
		return err
	}
	defer closeFn()
	if upload != nil {
		// The new account uploads its own image unless an admin registered it.
		actor := middleware.ActorFrom(c)
		if !actor.IsAuthenticated() {
			if actor, err = authz.ActorFor(user); err != nil {
				return err
			}
		}
		if user, err = services.SetProfileImage(c.UserContext(), h.DB, h.Authz, h.Store, actor, user.ID, upload); err != nil {
			return err
		}
	}

	return utils.SuccessResponse(c, h.userView(user), fiber.StatusCreated)
}

// Login handles POST /api/users/login
// @Summary Log in
// @Description Exchange credentials for a bearer token
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body LoginRequest true "Credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 429 {object} utils.ErrorResponseStruct
// @Router /users/login [post]
func (h *UserHandler) Login(c *fiber.Ctx) error {
	var in LoginRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return types.ValidationError("Malformed request body.")
		}
	}

	token, user, err := services.Login(h.DB, h.Tokens, in.Username, in.Password)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, LoginResponse{Token: token, User: h.userView(user)}, fiber.StatusOK)
}

// Logout handles POST /api/users/logout
// @Summary Log out
// @Description Revoke the session behind the bearer token
// @Tags Users
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /users/logout [post]
func (h *UserHandler) Logout(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if session == nil {
		return types.AuthenticationError("Authentication credentials were not provided.")
	}
	if err := services.Logout(h.DB, session.ID); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}

// Me handles GET /api/users/me
// @Summary Current user
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} UserView
// @Failure 401 {object} utils.ErrorResponseStruct
// @Router /users/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user := middleware.UserFrom(c)
	if user == nil {
		return types.AuthenticationError("Authentication credentials were not provided.")
	}
	return utils.SuccessResponse(c, h.userView(user), fiber.StatusOK)
}

// List handles GET /api/users
// @Summary List users
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Param role query string false "Role filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} PageView[UserView]
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}
	result, err := services.ListUsers(h.DB, h.Authz, middleware.ActorFrom(c), c.Query("role"), page)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pageView(result, h.userView), fiber.StatusOK)
}

// Get handles GET /api/users/:id
// @Summary Retrieve a user
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, err := services.GetUser(h.DB, h.Authz, middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.userView(user), fiber.StatusOK)
}

// Update handles PATCH /api/users/:id
// @Summary Update a user
// @Description Only admins may change a role
// @Tags Users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param payload body services.UserInput true "Changes"
// @Success 200 {object} UserView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in services.UserInput
	keys, err := decodeJSON(c, &in)
	if err != nil {
		return err
	}
	in.Keys = keys

	user, err := services.UpdateUser(h.DB, h.Authz, middleware.ActorFrom(c), id, in)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.userView(user), fiber.StatusOK)
}

// Delete handles DELETE /api/users/:id
// @Summary Delete a user
// @Tags Users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteUser(h.DB, h.Authz, middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}

// ProfileImage handles POST /api/users/:id/profile-image
// @Summary Upload a profile image
// @Tags Users
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param id path int true "User ID"
// @Param image formData file true "Image"
// @Success 200 {object} UserView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /users/{id}/profile-image [post]
func (h *UserHandler) ProfileImage(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	upload, closeFn, err := formUpload(c, "image")
	if err != nil {
		return err
	}
	defer closeFn()

	user, err := services.SetProfileImage(c.UserContext(), h.DB, h.Authz, h.Store, middleware.ActorFrom(c), id, upload)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.userView(user), fiber.StatusOK)
}
