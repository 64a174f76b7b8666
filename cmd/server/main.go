// main.go
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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	log "github.com/sirupsen/logrus"

	"github.com/localnerve/gamestore/internal/authz"
	"github.com/localnerve/gamestore/internal/config"
	"github.com/localnerve/gamestore/internal/database"
	"github.com/localnerve/gamestore/internal/handlers"
	"github.com/localnerve/gamestore/internal/logging"
	"github.com/localnerve/gamestore/internal/middleware"
	"github.com/localnerve/gamestore/internal/mq"
	"github.com/localnerve/gamestore/internal/objstore"
	"github.com/localnerve/gamestore/internal/services"

	_ "github.com/localnerve/gamestore/docs/api" // Swagger docs
)

// @title Gamestore API
// @version 1.0.0
// @description Game distribution marketplace: catalog, moderation, reviews, libraries, downloads and developer analytics
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/gamestore
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token from /users/login, as "Bearer <token>"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	defer logging.Close(logging.Setup(cfg))

	// Connect to database (write pool)
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Connect to database (read pool for rankings and analytics)
	readDB, err := database.ConnectReader(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to read database: %v", err)
	}
	defer database.Close(readDB)

	if cfg.DBAutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	ctx := context.Background()
	store, err := objstore.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open blob storage: %v", err)
	}
	defer store.Close()

	queue := mq.New(cfg)
	defer queue.Close()

	deps := &handlers.Deps{
		Config: cfg,
		DB:     db,
		ReadDB: readDB,
		Authz:  authz.MustNewEngine(),
		Store:  store,
		Queue:  queue,
		Tokens: services.NewTokenIssuer(cfg),
	}

	// Create Fiber app
	app := fiber.New(handlers.FiberConfig(cfg))

	// Global middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID, X-Device-Info",
	}))

	// Prometheus metrics
	prometheus := fiberprometheus.New("gamestore")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	handlers.SetupRoutes(app, deps)

	// Graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigs
		log.Info("Gracefully shutting down...")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.WithError(err).Warn("shutdown did not complete")
		}
	}()

	log.WithFields(log.Fields{
		"port":    cfg.Port,
		"db":      cfg.DBType,
		"storage": store.Driver(),
		"mq":      cfg.MQType,
	}).Info("Starting server")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Info("Server stopped")
}
