package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// ReviewHandler handles review routes
type ReviewHandler struct {
	*Deps
}

// ReviewRequest is the review write payload.
type ReviewRequest struct {
	Game    types.FlexUint64 `json:"game"`
	Rating  *int             `json:"rating"`
	Comment *string          `json:"comment"`
}

// List handles GET /api/reviews
// @Summary List reviews
// @Tags Reviews
// @Produce json
// @Param game query int false "Game id"
// @Param user query int false "Author id"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} PageView[ReviewView]
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /reviews [get]
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	page, err := pageFrom(c)
	if err != nil {
		return err
	}
	var filters services.ReviewFilters
	if filters.GameID, err = services.ParseID("game", c.Query("game"), true); err != nil {
		return err
	}
	if filters.UserID, err = services.ParseID("user", c.Query("user"), true); err != nil {
		return err
	}
	result, err := services.ListReviews(h.DB, middleware.ActorFrom(c), filters, page)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, pageView(result, reviewView), fiber.StatusOK)
}

// Get handles GET /api/reviews/:id
// @Summary Retrieve a review
// @Tags Reviews
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} ReviewView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /reviews/{id} [get]
func (h *ReviewHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	review, err := services.GetReview(h.DB, middleware.ActorFrom(c), id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, reviewView(review), fiber.StatusOK)
}

// Create handles POST /api/reviews
// @Summary Review a game
// @Description One review per user and game
// @Tags Reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body ReviewRequest true "Review"
// @Success 201 {object} ReviewView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /reviews [post]
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	var req ReviewRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	if req.Rating == nil {
		return types.FieldError("rating", "This field is required.")
	}
	comment := ""
	if req.Comment != nil {
		comment = *req.Comment
	}

	review, err := services.RecordReview(h.DB, h.Authz, middleware.ActorFrom(c), req.Game.Uint64(), *req.Rating, comment)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, reviewView(review), fiber.StatusCreated)
}

// Update handles PATCH /api/reviews/:id
// @Summary Update a review
// @Tags Reviews
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param payload body ReviewRequest true "Changes"
// @Success 200 {object} ReviewView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /reviews/{id} [patch]
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req ReviewRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	review, err := services.UpdateReview(h.DB, h.Authz, middleware.ActorFrom(c), id, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, reviewView(review), fiber.StatusOK)
}

// Delete handles DELETE /api/reviews/:id
// @Summary Delete a review
// @Tags Reviews
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteReview(h.DB, h.Authz, middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}
