/**
 * @description
 * Worker Service Entry Point.
 * Runs the scheduled jobs:
 * 1. Hourly quote / metrics / history sync (SYNC_CRON).
 * 2. Daily investor-relations scrape (SCRAPER_CRON).
 *
 * @dependencies
 * - backend/internal/config
 * - backend/internal/db
 * - backend/internal/app
 * - backend/internal/jobs
 */

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/bluewhale-terminal/backend/internal/app"
	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/db"
	"github.com/bluewhale-terminal/backend/internal/jobs"
	"github.com/bluewhale-terminal/backend/internal/logger"
)

func main() {
	runSync := flag.Bool("sync-now", false, "run the sync job once at startup")
	runScrape := flag.Bool("scrape-now", false, "run the scrape job once at startup")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Env)
	defer logger.Sync()
	logger.Info("🐋 Starting BlueWhale Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Connect DBs
	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("Postgres connection failed: %v", err)
	}
	defer db.ClosePostgres(pgDB)

	redisClient, err := db.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("Redis connection failed: %v", err)
	}
	defer redisClient.Close()

	// 3. Initialize Services and Scheduler
	svc := app.Build(cfg, pgDB, redisClient)
	scheduler, err := svc.Scheduler(cfg, redisClient, cfg.Jobs.SyncCron, cfg.Jobs.ScraperCron)
	if err != nil {
		logger.Fatal("Failed to build scheduler: %v", err)
	}
	scheduler.Start()

	if *runSync {
		if err := scheduler.RunNow(jobs.JobSync); err != nil {
			logger.Warn("Startup sync not started: %v", err)
		}
	}
	if *runScrape {
		if err := scheduler.RunNow(jobs.JobScraper); err != nil {
			logger.Warn("Startup scrape not started: %v", err)
		}
	}

	// 4. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	scheduler.Stop()
	logger.Info("Worker exited.")
}
