package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/utils"
)

// CategoryHandler handles category routes
type CategoryHandler struct {
	*Deps
}

// CategoryRequest is the category write payload.
type CategoryRequest struct {
	Name          *string `json:"name"`
	NameAr        *string `json:"name_ar"`
	Description   *string `json:"description"`
	DescriptionAr *string `json:"description_ar"`
}

func (r CategoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:          r.Name,
		NameAr:        r.NameAr,
		Description:   r.Description,
		DescriptionAr: r.DescriptionAr,
	}
}

// List handles GET /api/categories
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} CategoryView
// @Router /categories [get]
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	cats, err := services.ListCategories(h.DB)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, categoryViews(cats), fiber.StatusOK)
}

// Get handles GET /api/categories/:id
// @Summary Retrieve a category
// @Tags Categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} CategoryView
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	cat, err := services.GetCategory(h.DB, id)
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, categoryView(cat), fiber.StatusOK)
}

// Create handles POST /api/categories
// @Summary Create a category
// @Tags Categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body CategoryRequest true "Category"
// @Success 201 {object} CategoryView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /categories [post]
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req CategoryRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	cat, err := services.CreateCategory(h.DB, h.Authz, middleware.ActorFrom(c), req.input())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, categoryView(cat), fiber.StatusCreated)
}

// Update handles PATCH /api/categories/:id
// @Summary Update a category
// @Tags Categories
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Param payload body CategoryRequest true "Changes"
// @Success 200 {object} CategoryView
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /categories/{id} [patch]
func (h *CategoryHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req CategoryRequest
	if _, err := decodeJSON(c, &req); err != nil {
		return err
	}
	cat, err := services.UpdateCategory(h.DB, h.Authz, middleware.ActorFrom(c), id, req.input())
	if err != nil {
		return err
	}
	return utils.SuccessResponse(c, categoryView(cat), fiber.StatusOK)
}

// Delete handles DELETE /api/categories/:id
// @Summary Delete a category
// @Tags Categories
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := services.DeleteCategory(h.DB, h.Authz, middleware.ActorFrom(c), id); err != nil {
		return err
	}
	return utils.DeletedResponse(c)
}
