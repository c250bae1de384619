/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 */

package api

import (
	"github.com/bluewhale-terminal/backend/internal/api/handlers"
	"github.com/bluewhale-terminal/backend/internal/api/middleware"
	"github.com/gofiber/fiber/v2"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Auth      *middleware.Auth
	Companies *handlers.CompanyHandler
	Reports   *handlers.ReportHandler
	Users     *handlers.AuthHandler
	Watchlist *handlers.WatchlistHandler
	AI        *handlers.AIHandler
	Triggers  *handlers.TriggerHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, h Handlers) {
	protected := h.Auth.Protected()

	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Public Routes
	v1.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	// Company Routes (Public). Static paths before /:id.
	companies := v1.Group("/companies")
	companies.Get("", h.Companies.Screen)
	companies.Get("/search", h.Companies.Search)
	companies.Get("/stream", h.Companies.StreamPrices)
	companies.Get("/ticker/:ticker", h.Companies.GetByTicker)
	companies.Get("/:id", h.Companies.GetByID)

	// Report Routes (mixed)
	reports := v1.Group("/reports")
	reports.Get("", h.Reports.List)
	reports.Post("", protected, h.Reports.Create)
	reports.Post("/save", protected, h.Reports.Save)
	reports.Get("/saved/me", protected, h.Reports.ListSaved)
	reports.Delete("/saved/:id", protected, h.Reports.Unsave)
	reports.Get("/:id", h.Reports.Get)

	// Auth Routes
	auth := v1.Group("/auth")
	auth.Post("/register", h.Users.Register)
	auth.Post("/login", h.Users.Login)
	auth.Get("/profile", protected, h.Users.Profile)
	auth.Post("/logout", protected, h.Users.Logout)

	// Watchlist Routes (Protected)
	watchlists := v1.Group("/watchlists", protected)
	watchlists.Get("", h.Watchlist.List)
	watchlists.Get("/default", h.Watchlist.GetDefault)
	watchlists.Post("/items", h.Watchlist.AddItem)
	watchlists.Patch("/items/:itemId", h.Watchlist.UpdateItem)
	watchlists.Delete("/items/:itemId", h.Watchlist.RemoveItem)

	// AI Routes (Protected)
	ai := v1.Group("/ai", protected)
	ai.Post("/sentiment", h.AI.Sentiment)
	ai.Post("/summarize", h.AI.Summarize)
	ai.Post("/dcf", h.AI.DCF)
	ai.Post("/ask", h.AI.Ask)

	// Manual job triggers (Protected)
	sync := v1.Group("/sync", protected)
	sync.Post("/company/:ticker", h.Triggers.SyncCompany)
	sync.Post("/all", h.Triggers.SyncAll)

	scraper := v1.Group("/scraper", protected)
	scraper.Post("/company/:ticker", h.Triggers.ScrapeCompany)
	scraper.Post("/all", h.Triggers.ScrapeAll)
}
