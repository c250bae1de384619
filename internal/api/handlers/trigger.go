package handlers

import (
	"github.com/bluewhale-terminal/backend/internal/jobs"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// JobRunner starts a bulk job in the background
type JobRunner interface {
	RunNow(name string) error
}

// TriggerHandler exposes manual sync and scrape runs
type TriggerHandler struct {
	Sync    *services.SyncService
	Scraper *services.ScraperService
	Jobs    JobRunner
}

func NewTriggerHandler(sync *services.SyncService, scraper *services.ScraperService, runner JobRunner) *TriggerHandler {
	return &TriggerHandler{Sync: sync, Scraper: scraper, Jobs: runner}
}

// SyncCompany syncs one ticker and waits for the result
// POST /api/v1/sync/company/:ticker
func (h *TriggerHandler) SyncCompany(c *fiber.Ctx) error {
	result := h.Sync.SyncOne(c.Context(), c.Params("ticker"))
	if !result.Success {
		return fail(c, fiber.StatusBadRequest, result.Message)
	}
	return success(c, fiber.StatusOK, result, result.Message)
}

// SyncAll starts a bulk sync
// POST /api/v1/sync/all
func (h *TriggerHandler) SyncAll(c *fiber.Ctx) error {
	return h.start(c, jobs.JobSync, "Sync started for all companies")
}

// ScrapeCompany scrapes one ticker and waits for the result
// POST /api/v1/scraper/company/:ticker
func (h *TriggerHandler) ScrapeCompany(c *fiber.Ctx) error {
	summary, err := h.Scraper.ScrapeCompany(c.Context(), c.Params("ticker"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, upperFirst(err.Error()))
	}
	return success(c, fiber.StatusOK, summary, "Scrape completed")
}

// ScrapeAll starts a bulk scrape
// POST /api/v1/scraper/all
func (h *TriggerHandler) ScrapeAll(c *fiber.Ctx) error {
	return h.start(c, jobs.JobScraper, "Scraping started for all companies")
}

func (h *TriggerHandler) start(c *fiber.Ctx, job, msg string) error {
	if err := h.Jobs.RunNow(job); err != nil {
		return serviceError(c, err, "Failed to start "+job)
	}
	return success(c, fiber.StatusAccepted, nil, msg)
}
