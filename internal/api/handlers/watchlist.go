/**
 * @description
 * Watchlist API Handlers.
 * All routes act on the authenticated user's own lists.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 * - backend/internal/api/middleware
 */

package handlers

import (
	"github.com/bluewhale-terminal/backend/internal/api/middleware"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WatchlistHandler handles watchlist-related requests
type WatchlistHandler struct {
	watchlistService *services.WatchlistService
}

// NewWatchlistHandler creates a new WatchlistHandler
func NewWatchlistHandler(watchlistService *services.WatchlistService) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService}
}

type addItemRequest struct {
	CompanyID   string   `json:"companyId" validate:"required,uuid"`
	WatchlistID string   `json:"watchlistId" validate:"omitempty,uuid"`
	TargetPrice *float64 `json:"targetPrice" validate:"omitempty,gt=0"`
	Notes       string   `json:"notes" validate:"max=1000"`
}

type updateItemRequest struct {
	TargetPrice *float64 `json:"targetPrice" validate:"omitempty,gt=0"`
	Notes       *string  `json:"notes" validate:"omitempty,max=1000"`
}

// List returns the user's watchlists
// GET /api/v1/watchlists
func (h *WatchlistHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	lists, err := h.watchlistService.List(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to fetch watchlists")
	}
	return ok(c, lists)
}

// GetDefault returns the user's default watchlist, creating it when missing
// GET /api/v1/watchlists/default
func (h *WatchlistHandler) GetDefault(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	list, err := h.watchlistService.GetDefault(c.Context(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to fetch watchlist")
	}
	return ok(c, list)
}

// AddItem puts a company on a watchlist
// POST /api/v1/watchlists/items
func (h *WatchlistHandler) AddItem(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req addItemRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	in := services.AddItemInput{
		CompanyID:   uuid.MustParse(req.CompanyID),
		TargetPrice: req.TargetPrice,
		Notes:       req.Notes,
	}
	if req.WatchlistID != "" {
		id := uuid.MustParse(req.WatchlistID)
		in.WatchlistID = &id
	}

	item, err := h.watchlistService.AddItem(c.Context(), userID, in)
	if err != nil {
		return serviceError(c, err, "Failed to add to watchlist")
	}
	return success(c, fiber.StatusCreated, item, "Added to watchlist")
}

// UpdateItem changes an item's target price or notes
// PATCH /api/v1/watchlists/items/:itemId
func (h *WatchlistHandler) UpdateItem(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	itemID, valid := paramUUID(c, "itemId")
	if !valid {
		return fail(c, fiber.StatusNotFound, "Watchlist item not found")
	}

	var req updateItemRequest
	if err := bind(c, &req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.watchlistService.UpdateItem(c.Context(), userID, itemID, services.UpdateItemInput{
		TargetPrice: req.TargetPrice,
		Notes:       req.Notes,
	})
	if err != nil {
		return serviceError(c, err, "Failed to update watchlist item")
	}
	return ok(c, item)
}

// RemoveItem deletes an item
// DELETE /api/v1/watchlists/items/:itemId
func (h *WatchlistHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	itemID, valid := paramUUID(c, "itemId")
	if !valid {
		return fail(c, fiber.StatusNotFound, "Watchlist item not found")
	}

	if err := h.watchlistService.RemoveItem(c.Context(), userID, itemID); err != nil {
		return serviceError(c, err, "Failed to remove watchlist item")
	}
	return success(c, fiber.StatusOK, nil, "Removed from watchlist")
}
