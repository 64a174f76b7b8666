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

package handlers

import (
	"fmt"
	"mime/multipart"
	"slices"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/ranking"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// GameHandler handles game catalog, moderation and download routes
type GameHandler struct {
	*Deps
}

// GameRequest is the JSON game write payload.
type GameRequest struct {
	Title           *string       `json:"title"`
	TitleAr         *string       `json:"title_ar"`
	Description     *string       `json:"description"`
	DescriptionAr   *string       `json:"description_ar"`
	Categories      *types.IDList `json:"categories"`
	Status          *string       `json:"status"`
	RejectionReason *string       `json:"rejection_reason"`
}

// RejectRequest carries the reason of a rejection.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// DownloadRequest is the optional client metadata sent with a download.
type DownloadRequest struct {
	Game       types.FlexUint64 `json:"game"`
	DeviceInfo string           `json:"device_info"`
	Client     map[string]any   `json:"client"`
}

// HomeSectionsResponse maps each home section to its games.
type HomeSectionsResponse map[ranking.View][]GameView

// gameInput reads a game payload from a multipart form or a JSON body.
func gameInput(c *fiber.Ctx) (services.GameInput, error) {
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return services.GameInput{}, types.ValidationError("Malformed multipart form.")
		}
		return gameInputFromForm(form)
	}

	var req GameRequest
	keys, err := decodeJSON(c, &req)
	if err != nil {
		return services.GameInput{}, err
	}
	in := services.GameInput{
		Title:           req.Title,
		TitleAr:         req.TitleAr,
		Description:     req.Description,
		DescriptionAr:   req.DescriptionAr,
		Status:          req.Status,
		RejectionReason: req.RejectionReason,
		SetCategories:   slices.Contains(keys, "categories"),
		Keys:            keys,
	}
	if req.Categories != nil {
		in.CategoryIDs = types.Uint64s(*req.Categories)
	}
	return in, nil
}

func gameInputFromForm(form *multipart.Form) (services.GameInput, error) {
	in := services.GameInput{
		Title:           formValue(form, "title"),
		TitleAr:         formValue(form, "title_ar"),
		Description:     formValue(form, "description"),
		DescriptionAr:   formValue(form, "description_ar"),
		Status:          formValue(form, "status"),
		RejectionReason: formValue(form, "rejection_reason"),
		Keys:            formKeys(form),
	}
	if values, ok := form.Value["categories"]; ok {
		ids, err := types.ParseIDList(values)
		if err != nil {
			return in, types.FieldError("categories", "A valid integer is required.")
		}
		in.CategoryIDs = types.Uint64s(ids)
		in.SetCategories = true
	}
	return in, nil
}

// view renders one game with its current aggregates.
func (h *GameHandler) view(game *models.Game) (GameView, error) {
	stats, err := services.GameStats(h.reader(), []uint64{game.ID}, h.now())
	if err != nil {
		return GameView{}, err
	}
	return h.gameView(game, stats[game.ID]), nil
}

// List handles GET /api/games
// @Summary List games
// @Description Games visible to the caller, optionally ranked with sort
// @Tags Games
// @Produce json
// @Param sort query string false "popular, top-rated, trending or gems"
// @Param status query string false "pending, approved or rejected"
// @Param category query []int false "Category ids" collectionFormat(multi)
// @Param developer query int false "Developer id"
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} PageView[GameView]
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /games [get]
func (h *GameHandler) List(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}
	filters := services.GameFilters{
		Sort:   c.Query("sort"),
		Status: strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if filters.Categories, err = parseIDs(c, "category"); err != nil {
		return err
	}
	if filters.DeveloperID, err = services.ParseID("developer", c.Query("developer"), true); err != nil {
		return err
	}

	result, err := services.ListGames(h.reader(), middleware.ActorFrom(c), filters, page, h.now())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, PageView[GameView]{
		Count:    result.Count,
		Page:     result.Page,
		PageSize: result.PageSize,
		Results:  h.rankedViews(result.Results),
	}, fiber.StatusOK)
}

// HomeSections handles GET /api/games/home-sections
// @Summary Home page sections
// @Description The five curated rankings, ten approved games each
// @Tags Games
// @Produce json
// @Success 200 {object} HomeSectionsResponse
// @Router /games/home-sections [get]
func (h *GameHandler) HomeSections(c *fiber.Ctx) error {
	sections, err := services.HomeSections(h.reader(), middleware.ActorFrom(c), h.now())
	if err != nil {
		return err
	}
	out := make(HomeSectionsResponse, len(sections))
	for view, games := range sections {
		out[view] = h.rankedViews(games)
	}
	return utils.SuccessResponse(c, out, fiber.StatusOK)
}

// Popular handles GET /api/games/popular
// @Summary Most downloaded games
// @Tags Games
// @Produce json
// @Param limit query int false "Number of games, 1 to 50" default(10)
// @Success 200 {array} GameView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /games/popular [get]
func (h *GameHandler) Popular(c *fiber.Ctx) error {
	limit := ranking.SectionLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return types.FieldError("limit", "A valid integer is required.")
		}
		limit = n
	}
	games, err := services.PopularGames(h.reader(), middleware.ActorFrom(c), limit, h.now())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, h.rankedViews(games), fiber.StatusOK)
}

// Get handles GET /api/games/:id
// @Summary Retrieve a game
// @Tags Games
// @Produce json
// @Param id path int true "Game ID"
// @Success 200 {object} GameView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /games/{id} [get]
func (h *GameHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	game, err := services.GetGame(h.DB, middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	view, err := h.view(game)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, view, fiber.StatusOK)
}

// Create handles POST /api/games
// @Summary Submit a game
// @Description Developers submit games for moderation. Only admins may set status.
// @Tags Games
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param title formData string true "Title"
// @Param title_ar formData string false "Arabic title"
// @Param description formData string false "Description"
// @Param description_ar formData string false "Arabic description"
// @Param categories formData []int false "Category ids" collectionFormat(multi)
// @Param file formData file true "Game binary (zip, rar, 7z, exe)"
// @Success 201 {object} GameView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Router /games [post]
func (h *GameHandler) Create(c *fiber.Ctx) error {
	in, err := gameInput(c)
	if err != nil {
		return err
	}
	upload, closeFn, err := formUpload(c, "file")
	if err != nil {
		return err
	}
	defer closeFn()

	game, err := services.CreateGame(c.UserContext(), h.DB, h.Authz, h.Store, middleware.ActorFrom(c), in, upload)
	if err != nil {
		return err
	}
	view, err := h.view(game)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, view, fiber.StatusCreated)
}

// Update handles PATCH /api/games/:id
// @Summary Update a game
// @Description Owner or admin. Non-admin payloads containing status or rejection_reason are rejected.
// @Tags Games
// @Security BearerAuth
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Game ID"
// @Param payload body GameRequest true "Changes"
// @Success 200 {object} GameView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /games/{id} [patch]
func (h *GameHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	in, err := gameInput(c)
	if err != nil {
		return err
	}
	game, err := services.UpdateGame(h.DB, h.Authz, middleware.ActorFrom(c), id, in)
	if err != nil {
		return err
	}
	view, err := h.view(game)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, view, fiber.StatusOK)
}

// Delete handles DELETE /api/games/:id
// @Summary Delete a game
// @Tags Games
// @Security BearerAuth
// @Param id path int true "Game ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /games/{id} [delete]
func (h *GameHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteGame(c.UserContext(), h.DB, h.Authz, h.Store, middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}

// ReplaceFile handles POST /api/games/:id/file
// @Summary Replace the game binary
// @Tags Games
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param id path int true "Game ID"
// @Param file formData file true "Game binary (zip, rar, 7z, exe)"
// @Success 200 {object} GameView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /games/{id}/file [post]
func (h *GameHandler) ReplaceFile(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	upload, closeFn, err := formUpload(c, "file")
	if err != nil {
		return err
	}
	defer closeFn()

	game, err := services.ReplaceGameFile(c.UserContext(), h.DB, h.Authz, h.Store, middleware.ActorFrom(c), id, upload)
	if err != nil {
		return err
	}
	view, err := h.view(game)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, view, fiber.StatusOK)
}

// Approve handles POST /api/games/:id/approve
// @Summary Approve a game
// @Tags Moderation
// @Security BearerAuth
// @Produce json
// @Param id path int true "Game ID"
// @Success 200 {object} GameView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /games/{id}/approve [post]
func (h *GameHandler) Approve(c *fiber.Ctx) error {
	return h.moderate(c, models.GameStatusApproved, "")
}

// Reject handles POST /api/games/:id/reject
// @Summary Reject a game
// @Tags Moderation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Game ID"
// @Param payload body RejectRequest false "Reason"
// @Success 200 {object} GameView
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /games/{id}/reject [post]
func (h *GameHandler) Reject(c *fiber.Ctx) error {
	var req RejectRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	return h.moderate(c, models.GameStatusRejected, req.Reason)
}

func (h *GameHandler) moderate(c *fiber.Ctx, status, reason string) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	game, err := services.ModerateGame(h.DB, h.Authz, middleware.ActorFrom(c), id, status, reason)
	if err != nil {
		return err
	}
	view, err := h.view(game)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, view, fiber.StatusOK)
}

// Download handles POST /api/games/:id/download
// @Summary Download a game
// @Description Records a download event and streams the binary
// @Tags Games
// @Security BearerAuth
// @Accept json
// @Produce octet-stream
// @Param id path int true "Game ID"
// @Param payload body DownloadRequest false "Client metadata"
// @Success 200 {file} binary
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /games/{id}/download [post]
func (h *GameHandler) Download(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req DownloadRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	actor := middleware.ActorFrom(c)

	game, err := services.AuthorizeDownload(h.DB, h.Authz, actor, id)
	if err != nil {
		return err
	}
	obj, err := h.Store.Get(c.UserContext(), game.FileKey)
	if err != nil {
		return err
	}

	event, err := services.RecordDownload(h.DB, actor, game, downloadMeta(c, req))
	if err != nil {
		_ = obj.Body.Close()
		return err
	}
	services.PublishDownload(c.UserContext(), h.Queue, event)

	log.WithFields(log.Fields{
		"request_id": middleware.RequestIDFrom(c),
		"game":       game.ID,
		"event":      event.ID,
	}).Debug("streaming game file")

	contentType := obj.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", downloadName(game)))
	return c.SendStream(obj.Body, int(obj.Size))
}

// downloadMeta collects the client description of a download.
func downloadMeta(c *fiber.Ctx, req DownloadRequest) services.DownloadMeta {
	device := req.DeviceInfo
	if device == "" {
		device = c.Get("X-Device-Info")
	}
	return services.DownloadMeta{
		IPAddress:  c.IP(),
		DeviceInfo: device,
		UserAgent:  c.Get(fiber.HeaderUserAgent),
		Client:     req.Client,
	}
}

func downloadName(game *models.Game) string {
	if game.FileName != "" {
		return game.FileName
	}
	return fmt.Sprintf("game-%d", game.ID)
}
