package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// ScreenshotHandler handles screenshot routes
type ScreenshotHandler struct {
	*Deps
}

// ScreenshotRequest is the screenshot update payload.
type ScreenshotRequest struct {
	IsBase *bool `json:"is_base"`
}

// List handles GET /api/screenshots
// @Summary List screenshots
// @Tags Screenshots
// @Produce json
// @Param game query int false "Game id"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} PageView[ScreenshotView]
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /screenshots [get]
func (h *ScreenshotHandler) List(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}
	gameID, err := services.ParseID("game", c.Query("game"), true)
	if err != nil {
		return err
	}
	result, err := services.ListScreenshots(h.DB, middleware.ActorFrom(c), gameID, page)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pageView(result, h.screenshotView), fiber.StatusOK)
}

// Get handles GET /api/screenshots/:id
// @Summary Retrieve a screenshot
// @Tags Screenshots
// @Produce json
// @Param id path int true "Screenshot ID"
// @Success 200 {object} ScreenshotView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /screenshots/{id} [get]
func (h *ScreenshotHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	shot, err := services.GetScreenshot(h.DB, middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.screenshotView(shot), fiber.StatusOK)
}

// Create handles POST /api/screenshots
// @Summary Upload a screenshot
// @Tags Screenshots
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param game formData int true "Game id"
// @Param is_base formData bool false "Use as the cover image"
// @Param image formData file true "Image (jpg, jpeg, png, gif, webp)"
// @Success 201 {object} ScreenshotView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /screenshots [post]
func (h *ScreenshotHandler) Create(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return types.ValidationError("Screenshots must be uploaded as multipart/form-data.")
	}
	gameID, err := services.ParseID("game", c.FormValue("game"), false)
	if err != nil {
		return err
	}
	isBase, err := parseBool("is_base", c.FormValue("is_base"))
	if err != nil {
		return err
	}
	upload, closeFn, err := formUpload(c, "image")
	if err != nil {
		return err
	}
	defer closeFn()

	shot, err := services.CreateScreenshot(c.UserContext(), h.DB, h.Authz, h.Store, middleware.ActorFrom(c), gameID, isBase, upload)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.screenshotView(shot), fiber.StatusCreated)
}

// Update handles PATCH /api/screenshots/:id
// @Summary Change the cover flag
// @Tags Screenshots
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Screenshot ID"
// @Param payload body ScreenshotRequest true "Changes"
// @Success 200 {object} ScreenshotView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /screenshots/{id} [patch]
func (h *ScreenshotHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ScreenshotRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	if req.IsBase == nil {
		return types.FieldError("is_base", "This field is required.")
	}
	shot, err := services.SetBaseScreenshot(h.DB, h.Authz, middleware.ActorFrom(c), id, *req.IsBase)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.screenshotView(shot), fiber.StatusOK)
}

// Delete handles DELETE /api/screenshots/:id
// @Summary Delete a screenshot
// @Tags Screenshots
// @Security BearerAuth
// @Param id path int true "Screenshot ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /screenshots/{id} [delete]
func (h *ScreenshotHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteScreenshot(c.UserContext(), h.DB, h.Authz, h.Store, middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}
