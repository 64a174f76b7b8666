package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/models"
	"github.com/localnerve/gamestore/internal/services"
	"github.com/localnerve/gamestore/internal/types"
)

// Locals keys set by Authenticate.
const (
	LocalActor   = "actor"
	LocalUser    = "user"
	LocalSession = "session"
)

// Authenticate resolves the request's token into an actor. Requests
// without a token continue as the anonymous actor; a token that is
// malformed, expired or revoked fails with 401.
func Authenticate(db *gorm.DB, issuer *services.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			c.Locals(LocalActor, authz.AnonymousActor())
			return c.Next()
		}

		user, session, err := services.ValidateSession(db, issuer, token)
		if err != nil {
			return err
		}
		actor, err := authz.ActorFor(user)
		if err != nil {
			log.WithError(err).WithField("user", user.ID).Warn("user has an unknown role")
			return types.AuthenticationError("Invalid token.")
		}

		c.Locals(LocalActor, actor)
		c.Locals(LocalUser, user)
		c.Locals(LocalSession, session)
		return c.Next()
	}
}

// bearerToken extracts the token of a "Bearer <t>" or "Token <t>" header.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthUser requires an authenticated actor
func AuthUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !ActorFrom(c).IsAuthenticated() {
			return types.AuthenticationError("Authentication credentials were not provided.")
		}
		return c.Next()
	}
}

// AuthAdmin requires an admin actor
func AuthAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := ActorFrom(c)
		if !actor.IsAuthenticated() {
			return types.AuthenticationError("Authentication credentials were not provided.")
		}
		if !actor.IsAdmin() {
			return types.PermissionError("You do not have permission to perform this action.")
		}
		return c.Next()
	}
}

// ActorFrom returns the request actor, anonymous when none was resolved.
func ActorFrom(c *fiber.Ctx) authz.Actor {
	if actor, ok := c.Locals(LocalActor).(authz.Actor); ok {
		return actor
	}
	return authz.AnonymousActor()
}

// UserFrom returns the authenticated user, or nil.
func UserFrom(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}

// SessionFrom returns the session behind the request token, or nil.
func SessionFrom(c *fiber.Ctx) *models.Session {
	session, _ := c.Locals(LocalSession).(*models.Session)
	return session
}
