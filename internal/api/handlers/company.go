/**
 * @description
 * Company API Handlers.
 * Screener, search, detail lookups and the live price stream.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/services
 */

package handlers

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/bluewhale-terminal/backend/internal/models"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

const streamKeepAlive = 15 * time.Second

// PriceSubscriber fans out published price updates
type PriceSubscriber interface {
	Subscribe() (<-chan []byte, func())
}

type CompanyHandler struct {
	Service *services.CompanyService
	Prices  PriceSubscriber
}

func NewCompanyHandler(service *services.CompanyService, prices PriceSubscriber) *CompanyHandler {
	return &CompanyHandler{Service: service, Prices: prices}
}

// Screen filters, sorts and pages companies
// GET /api/v1/companies
func (h *CompanyHandler) Screen(c *fiber.Ctx) error {
	params := services.ScreenerParams{
		Sector:    models.Sector(strings.ToUpper(c.Query("sector"))),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy", "marketCap"),
		SortOrder: strings.ToLower(c.Query("sortOrder", "desc")),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", services.DefaultPageLimit),
	}

	if params.Sector != "" && !params.Sector.Valid() {
		return fail(c, fiber.StatusBadRequest, "Unknown sector")
	}
	if !services.IsSortable(params.SortBy) {
		return fail(c, fiber.StatusBadRequest, "Unsupported sortBy")
	}
	if params.SortOrder != "asc" && params.SortOrder != "desc" {
		return fail(c, fiber.StatusBadRequest, "sortOrder must be asc or desc")
	}

	var err error
	if params.IsActive, err = queryBool(c, "isActive"); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	bounds := []struct {
		key string
		dst **float64
	}{
		{"minMarketCap", &params.MinMarketCap},
		{"maxMarketCap", &params.MaxMarketCap},
		{"minPE", &params.MinPE},
		{"maxPE", &params.MaxPE},
		{"minDividendYield", &params.MinDividendYield},
		{"maxDividendYield", &params.MaxDividendYield},
	}
	for _, b := range bounds {
		if *b.dst, err = queryFloat(c, b.key); err != nil {
			return fail(c, fiber.StatusBadRequest, err.Error())
		}
	}

	result, err := h.Service.Screen(c.Context(), params)
	if err != nil {
		return serviceError(c, err, "Failed to fetch companies")
	}
	return ok(c, result)
}

// Search matches companies by name or ticker
// GET /api/v1/companies/search?q=
func (h *CompanyHandler) Search(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return fail(c, fiber.StatusBadRequest, "Search query is required")
	}
	companies, err := h.Service.Search(c.Context(), q)
	if err != nil {
		return serviceError(c, err, "Failed to search companies")
	}
	return ok(c, companies)
}

// GetByTicker returns company detail
// GET /api/v1/companies/ticker/:ticker
func (h *CompanyHandler) GetByTicker(c *fiber.Ctx) error {
	company, err := h.Service.GetByTicker(c.Context(), c.Params("ticker"))
	if err != nil {
		return serviceError(c, err, "Failed to fetch company")
	}
	return ok(c, company)
}

// GetByID returns company detail
// GET /api/v1/companies/:id
func (h *CompanyHandler) GetByID(c *fiber.Ctx) error {
	id, valid := paramUUID(c, "id")
	if !valid {
		return fail(c, fiber.StatusBadRequest, "Invalid company id")
	}
	company, err := h.Service.GetByID(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to fetch company")
	}
	return ok(c, company)
}

// StreamPrices streams live price updates over SSE
// GET /api/v1/companies/stream
func (h *CompanyHandler) StreamPrices(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	requestDone := c.Context().Done()

	// subscribe before the stream starts so nothing published after the handshake is missed
	updates, unsubscribe := h.Prices.Subscribe()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-requestDone:
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": ping\n\n")
			case payload, ok := <-updates:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: price\ndata: %s\n\n", payload)
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})

	return nil
}
