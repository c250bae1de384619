/**
 * @description
 * Service graph shared by the API, worker and sync binaries.
 *
 * @notes
 * - The caller owns the DB and Redis handles and closes them.
 */

package app

import (
	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/httpclient"
	"github.com/bluewhale-terminal/backend/internal/integrations/fmp"
	"github.com/bluewhale-terminal/backend/internal/integrations/llm"
	"github.com/bluewhale-terminal/backend/internal/integrations/yahoo"
	"github.com/bluewhale-terminal/backend/internal/jobs"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/scraper"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Services struct {
	Companies  *services.CompanyService
	Reports    *services.ReportService
	Watchlists *services.WatchlistService
	Auth       *services.AuthService
	AI         *services.AIService
	Sync       *services.SyncService
	Scraper    *services.ScraperService
}

// Build wires every service over the given handles
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Services {
	fmpClient := fmp.NewClient(cfg)
	if !fmpClient.Configured() {
		logger.Warn("FMP_API_KEY not set; sync falls back to Yahoo and scraper fallback is disabled")
	}
	yahooClient := yahoo.NewClient(cfg)

	pages := httpclient.New(
		httpclient.WithTimeout(cfg.Scraper.RequestTimeout),
		httpclient.WithDelay(cfg.Scraper.RequestDelay),
		httpclient.WithUserAgent(cfg.Scraper.UserAgent),
	)
	pageScraper := scraper.New(pages, fmpClient, scraper.InvestorRelationsURLs)

	syncService := services.NewSyncService(db, rdb, fmpClient, yahooClient, cfg.Jobs.SyncDelay)

	return &Services{
		Companies:  services.NewCompanyService(db, rdb),
		Reports:    services.NewReportService(db, rdb),
		Watchlists: services.NewWatchlistService(db),
		Auth:       services.NewAuthService(db, rdb, cfg.Auth),
		AI:         services.NewAIService(llm.New(cfg)),
		Sync:       syncService,
		Scraper:    services.NewScraperService(db, rdb, pageScraper),
	}
}

// Scheduler registers the bulk jobs. Pass empty specs for a manual-only scheduler.
func (s *Services) Scheduler(cfg *config.Config, rdb *redis.Client, syncSpec, scrapeSpec string) (*jobs.Scheduler, error) {
	sched, err := jobs.NewScheduler(jobs.NewGuard(rdb, cfg.Jobs.LockTTL), cfg.Jobs)
	if err != nil {
		return nil, err
	}
	if err := jobs.Register(sched, s.Sync, s.Scraper, syncSpec, scrapeSpec); err != nil {
		return nil, err
	}
	return sched, nil
}
