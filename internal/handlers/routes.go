// routes.go
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
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/types"
)

// throttle limits a route to perMinute requests per client IP.
func throttle(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return types.RateLimitError("Request was throttled.")
		},
	})
}

// SetupRoutes registers the API, media and fallback routes on app.
func SetupRoutes(app *fiber.App, d *Deps) {
	registerLimit, loginLimit := 5, 10
	if d.Config != nil {
		registerLimit, loginLimit = d.Config.RateLimitRegister, d.Config.RateLimitLogin
	}

	users := &UserHandler{Deps: d}
	categories := &CategoryHandler{Deps: d}
	games := &GameHandler{Deps: d}
	stats := &AnalyticsHandler{Deps: d}
	shots := &ScreenshotHandler{Deps: d}
	reviews := &ReviewHandler{Deps: d}
	library := &LibraryHandler{Deps: d}
	downloads := &DownloadHandler{Deps: d}
	system := &SystemHandler{Deps: d}

	// Public media (images only)
	app.Get("/media/*", system.Media)

	// API routes under /api resolve the caller first
	api := app.Group("/api", middleware.Authenticate(d.DB, d.Tokens))

	api.Get("/health", system.Health)

	// Users and sessions
	u := api.Group("/users")
	u.Post("/register", throttle(registerLimit), users.Register)
	u.Post("/login", throttle(loginLimit), users.Login)
	u.Post("/logout", middleware.AuthUser(), users.Logout)
	u.Get("/me", middleware.AuthUser(), users.Me)
	u.Get("/", middleware.AuthAdmin(), users.List)
	u.Get("/:id<int>", middleware.AuthUser(), users.Get)
	u.Patch("/:id<int>", middleware.AuthUser(), users.Update)
	u.Delete("/:id<int>", middleware.AuthAdmin(), users.Delete)
	u.Post("/:id<int>/profile-image", middleware.AuthUser(), users.ProfileImage)

	// Categories (public read, admin write)
	cat := api.Group("/categories")
	cat.Get("/", categories.List)
	cat.Get("/:id<int>", categories.Get)
	cat.Post("/", middleware.AuthAdmin(), categories.Create)
	cat.Patch("/:id<int>", middleware.AuthAdmin(), categories.Update)
	cat.Delete("/:id<int>", middleware.AuthAdmin(), categories.Delete)

	// Games. Fixed paths before the id routes.
	g := api.Group("/games")
	g.Get("/home-sections", games.HomeSections)
	g.Get("/popular", games.Popular)
	g.Get("/analytics/downloads", middleware.AuthUser(), stats.Downloads)
	g.Get("/analytics/ratings/average", middleware.AuthUser(), stats.AverageRating)
	g.Get("/analytics/ratings/distribution", middleware.AuthUser(), stats.RatingDistribution)
	g.Get("/", games.List)
	g.Post("/", middleware.AuthUser(), games.Create)
	g.Get("/:id<int>", games.Get)
	g.Patch("/:id<int>", middleware.AuthUser(), games.Update)
	g.Delete("/:id<int>", middleware.AuthUser(), games.Delete)
	g.Post("/:id<int>/file", middleware.AuthUser(), games.ReplaceFile)
	g.Post("/:id<int>/approve", middleware.AuthAdmin(), games.Approve)
	g.Post("/:id<int>/reject", middleware.AuthAdmin(), games.Reject)
	g.Post("/:id<int>/download", middleware.AuthUser(), games.Download)

	// Short aliases of the home and analytics views
	api.Get("/home-sections", games.HomeSections)
	api.Get("/analytics/downloads", middleware.AuthUser(), stats.Downloads)
	api.Get("/analytics/ratings/average", middleware.AuthUser(), stats.AverageRating)
	api.Get("/analytics/ratings/distribution", middleware.AuthUser(), stats.RatingDistribution)

	// Screenshots
	s := api.Group("/screenshots")
	s.Get("/", shots.List)
	s.Get("/:id<int>", shots.Get)
	s.Post("/", middleware.AuthUser(), shots.Create)
	s.Patch("/:id<int>", middleware.AuthUser(), shots.Update)
	s.Delete("/:id<int>", middleware.AuthUser(), shots.Delete)

	// Reviews
	r := api.Group("/reviews")
	r.Get("/", reviews.List)
	r.Get("/:id<int>", reviews.Get)
	r.Post("/", middleware.AuthUser(), reviews.Create)
	r.Patch("/:id<int>", middleware.AuthUser(), reviews.Update)
	r.Delete("/:id<int>", middleware.AuthUser(), reviews.Delete)

	// Library
	l := api.Group("/library/entries", middleware.AuthUser())
	l.Get("/", library.List)
	l.Post("/", library.Create)
	l.Delete("/:id<int>", library.Delete)

	// Download history
	dl := api.Group("/downloads")
	dl.Post("/", downloads.Create)
	dl.Get("/", middleware.AuthAdmin(), downloads.List)
	dl.Get("/:id<int>", middleware.AuthAdmin(), downloads.Get)
	dl.Delete("/:id<int>", middleware.AuthAdmin(), downloads.Delete)

	// 404 handler
	app.Use(NotFound)
}
