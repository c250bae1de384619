/**
 * @description
 * Main entry point for the BlueWhale Terminal API.
 * Initializes the Fiber web server, loads configuration, and sets up routes.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: Web framework
 * - github.com/bluewhale-terminal/backend/internal/config: Config loader
 * - github.com/bluewhale-terminal/backend/internal/db: Database connections
 *
 * @notes
 * - Connects to Postgres and Redis on startup and migrates the schema.
 * - Bulk sync/scrape triggers run in this process through the shared Redis job guard.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluewhale-terminal/backend/internal/api"
	"github.com/bluewhale-terminal/backend/internal/api/handlers"
	"github.com/bluewhale-terminal/backend/internal/api/middleware"
	"github.com/bluewhale-terminal/backend/internal/app"
	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/db"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Env)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Database Connections
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres: %v", err)
	}
	defer db.ClosePostgres(pgDB)

	if err := db.Migrate(pgDB); err != nil {
		logger.Fatal("Migration failed: %v", err)
	}

	redisClient, err := db.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// 3. Services, manual job runner and price stream
	svc := app.Build(cfg, pgDB, redisClient)

	runner, err := svc.Scheduler(cfg, redisClient, "", "")
	if err != nil {
		logger.Fatal("Failed to build job runner: %v", err)
	}

	hub := services.NewPriceStreamHub(ctx, redisClient, services.PriceChannel)

	auth, err := middleware.NewAuth(svc.Auth.Secret(), cfg.Auth.JWKSURL, svc.Auth)
	if err != nil {
		logger.Fatal("Failed to init auth middleware: %v", err)
	}
	defer auth.Close()

	// 4. Initialize Fiber App
	server := fiber.New(fiber.Config{
		AppName:       "BlueWhale Terminal",
		CaseSensitive: true,
	})

	server.Use(recover.New())     // Panic recovery
	server.Use(fiberlogger.New()) // Request logging
	server.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.ClientURL,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PATCH, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// 5. Routes
	api.SetupRoutes(server, api.Handlers{
		Auth:      auth,
		Companies: handlers.NewCompanyHandler(svc.Companies, hub),
		Reports:   handlers.NewReportHandler(svc.Reports),
		Users:     handlers.NewAuthHandler(svc.Auth),
		Watchlist: handlers.NewWatchlistHandler(svc.Watchlists),
		AI:        handlers.NewAIHandler(svc.AI),
		Triggers:  handlers.NewTriggerHandler(svc.Sync, svc.Scraper, runner),
	})

	// 6. Start Server
	go func() {
		logger.Info("🚀 Starting BlueWhale API on port %s", cfg.Server.Port)
		if err := server.Listen(":" + cfg.Server.Port); err != nil {
			logger.Error("Server stopped: %v", err)
			cancel()
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down API...")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Error during server shutdown: %v", err)
	}
	cancel()
	runner.Stop()
	logger.Info("API exited.")
}
