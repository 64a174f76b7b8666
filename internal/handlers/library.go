package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// LibraryHandler handles library routes
type LibraryHandler struct {
	*Deps
}

// LibraryRequest adds a game to the caller's library.
type LibraryRequest struct {
	Game types.FlexUint64 `json:"game"`
}

// List handles GET /api/library/entries
// @Summary List library entries
// @Description The caller's library. Admins may pass user to read another library.
// @Tags Library
// @Security BearerAuth
// @Produce json
// @Param user query int false "User id (admin)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} PageView[LibraryEntryView]
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /library/entries [get]
func (h *LibraryHandler) List(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}
	userID, err := services.ParseID("user", c.Query("user"), true)
	if err != nil {
		return err
	}
	result, err := services.ListLibrary(h.DB, h.Authz, middleware.ActorFrom(c), userID, page)
	if err != nil {
		return err
	}

	ids := make([]uint64, 0, len(result.Results))
	for _, e := range result.Results {
		ids = append(ids, e.GameID)
	}
	stats, err := services.GameStats(h.reader(), ids, h.now())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pageView(result, func(e *models.LibraryEntry) LibraryEntryView {
		return h.libraryView(e, stats[e.GameID])
	}), fiber.StatusOK)
}

// Create handles POST /api/library/entries
// @Summary Add a game to the library
// @Tags Library
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body LibraryRequest true "Game"
// @Success 201 {object} LibraryEntryView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /library/entries [post]
func (h *LibraryHandler) Create(c *fiber.Ctx) error {
	var req LibraryRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	entry, err := services.AddToLibrary(h.DB, h.Authz, middleware.ActorFrom(c), req.Game.Uint64())
	if err != nil {
		return err
	}
	game, err := services.GetGame(h.DB, middleware.ActorFrom(c), entry.GameID)
	if err != nil {
		return err
	}
	entry.Game = *game
	stats, err := services.GameStats(h.reader(), []uint64{entry.GameID}, h.now())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.libraryView(entry, stats[entry.GameID]), fiber.StatusCreated)
}

// Delete handles DELETE /api/library/entries/:id
// @Summary Remove a library entry
// @Tags Library
// @Security BearerAuth
// @Param id path int true "Entry ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /library/entries/{id} [delete]
func (h *LibraryHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := services.RemoveFromLibrary(h.DB, h.Authz, middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}
