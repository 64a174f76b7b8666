package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// SystemHandler handles health and media routes
type SystemHandler struct {
	*Deps
}

// Health handles GET /api/health
// @Summary Service health
// @Description Database, blob storage and event broker reachability
// @Tags System
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	result := services.HealthCheck(ctx, h.Config, h.DB, h.Store)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return utils.SuccessResponse(c, result, status)
}

// Media handles GET /media/*
// Only screenshot and profile images are public; game binaries are
// served by the download route.
func (h *SystemHandler) Media(c *fiber.Ctx) error {
	key := c.Params("*")
	if !objstore.IsPublicKey(key) {
		return types.NotFoundError("File not found.")
	}
	obj, err := h.Store.Get(c.UserContext(), key)
	if err != nil {
		return err
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	return c.SendStream(obj.Body, int(obj.Size))
}
