package jobs

import (
	"context"

	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/services"
)

type bulkSyncer interface {
	SyncAll(ctx context.Context) services.BulkResult
}

type bulkScraper interface {
	ScrapeAll(ctx context.Context) services.BulkResult
}

// SyncTask refreshes quotes, metrics and history for every company
func SyncTask(s bulkSyncer) Func {
	return func(ctx context.Context) error {
		res := s.SyncAll(ctx)
		logger.Info("[Jobs] sync: %d ok, %d failed of %d", res.Success, res.Failed, res.Total)
		return ctx.Err()
	}
}

// ScrapeTask scrapes every active company
func ScrapeTask(s bulkScraper) Func {
	return func(ctx context.Context) error {
		res := s.ScrapeAll(ctx)
		logger.Info("[Jobs] scrape: %d ok, %d failed of %d", res.Success, res.Failed, res.Total)
		return ctx.Err()
	}
}

// Register wires the two bulk jobs. Empty specs leave them manual-only.
func Register(s *Scheduler, syncer bulkSyncer, scraper bulkScraper, syncSpec, scrapeSpec string) error {
	if err := s.Register(JobSync, syncSpec, SyncTask(syncer)); err != nil {
		return err
	}
	return s.Register(JobScraper, scrapeSpec, ScrapeTask(scraper))
}
