package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// DownloadHandler handles the download history routes
type DownloadHandler struct {
	*Deps
}

// List handles GET /api/downloads
// @Summary List download events
// @Tags Downloads
// @Security BearerAuth
// @Produce json
// @Param game query int false "Game id"
// @Param user query int false "User id"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} PageView[DownloadView]
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /downloads [get]
func (h *DownloadHandler) List(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}
	var filters services.DownloadFilters
	if filters.GameID, err = services.ParseID("game", c.Query("game"), true); err != nil {
		return err
	}
	if filters.UserID, err = services.ParseID("user", c.Query("user"), true); err != nil {
		return err
	}
	result, err := services.ListDownloads(h.DB, h.Authz, middleware.ActorFrom(c), filters, page)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pageView(result, downloadView), fiber.StatusOK)
}

// Get handles GET /api/downloads/:id
// @Summary Retrieve a download event
// @Tags Downloads
// @Security BearerAuth
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} DownloadView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /downloads/{id} [get]
func (h *DownloadHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	event, err := services.GetDownload(h.DB, h.Authz, middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, downloadView(event), fiber.StatusOK)
}

// Create handles POST /api/downloads
// @Summary Record a download
// @Description Records a download event without streaming the file. Anonymous callers may record approved games.
// @Tags Downloads
// @Accept json
// @Produce json
// @Param payload body DownloadRequest true "Event"
// @Success 201 {object} DownloadView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /downloads [post]
func (h *DownloadHandler) Create(c *fiber.Ctx) error {
	var req DownloadRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	if req.Game.Uint64() == 0 {
		return types.FieldError("game", "This field is required.")
	}

	event, game, err := services.Download(h.DB, h.Authz, middleware.ActorFrom(c), req.Game.Uint64(), downloadMeta(c, req))
	if err != nil {
		return err
	}
	services.PublishDownload(c.UserContext(), h.Queue, event)

	event.Game = *game
	return utils.SuccessResponse(c, downloadView(event), fiber.StatusCreated)
}

// Delete handles DELETE /api/downloads/:id
// @Summary Delete a download event
// @Tags Downloads
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /downloads/{id} [delete]
func (h *DownloadHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteDownload(h.DB, h.Authz, middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}
