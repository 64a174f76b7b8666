package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/mq"
	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
	"github.com/localnerve/gamestore/internal/utils"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Config *config.Config
	// DB takes writes and single record reads.
	DB *gorm.DB
	// ReadDB serves rankings and analytics. It may be the same pool as DB.
	ReadDB *gorm.DB
	Authz  *authz.Engine
	Store  *objstore.Store
	Queue  mq.Queue
	Tokens *services.TokenIssuer
	// Now is the clock used for trending windows.
	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) reader() *gorm.DB {
	if d.ReadDB != nil {
		return d.ReadDB
	}
	return d.DB
}

// FiberConfig is the fiber configuration for the gamestore app.
func FiberConfig(cfg *config.Config) fiber.Config {
	limit := 512
	if cfg != nil && cfg.MaxUploadMB > 0 {
		limit = cfg.MaxUploadMB
	}
	return fiber.Config{
		AppName:      "gamestore",
		ErrorHandler: ErrorHandler,
		BodyLimit:    limit * 1024 * 1024,
		// main logs the listen address.
		DisableStartupMessage: true,
	}
}

// ErrorHandler renders every error as the standard JSON error body.
// Business errors keep their status; anything else is a 500 and is logged.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if ce, ok := types.AsCustomError(err); ok {
		log.WithFields(log.Fields{
			"request_id": middleware.RequestIDFrom(c),
			"status":     ce.Code,
			"type":       ce.Type,
		}).Debug(ce.Message)
		return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type, ce.Fields)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return utils.ErrorResponse(c, fe.Message, fe.Code, fiberErrorType(fe.Code), nil)
	}

	log.WithFields(log.Fields{
		"request_id": middleware.RequestIDFrom(c),
		"method":     c.Method(),
		"path":       c.Path(),
	}).WithError(err).Error("request failed")
	return utils.ErrorResponse(c, "Internal server error", fiber.StatusInternalServerError, "server", nil)
}

func fiberErrorType(code int) string {
	switch code {
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
		return types.TypeValidation
	case fiber.StatusUnauthorized:
		return types.TypeAuthentication
	case fiber.StatusForbidden:
		return types.TypePermission
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		return types.TypeNotFound
	case fiber.StatusConflict:
		return types.TypeConflict
	case fiber.StatusTooManyRequests:
		return types.TypeRateLimit
	}
	return "server"
}

// NotFound answers any route that did not match.
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}
