// Command sync runs a one-off sync or scrape from the command line.
//
//	go run ./cmd/sync                 sync every company
//	go run ./cmd/sync APN NPN         sync the listed tickers
//	go run ./cmd/sync -scrape APN     scrape instead of sync
//	go run ./cmd/sync -seed           seed the JSE universe first
//
// Redis is optional here: when REDIS_URL is unreachable an in-memory server stands in.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bluewhale-terminal/backend/internal/app"
	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/db"
	"github.com/bluewhale-terminal/backend/internal/jobs"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/redis/go-redis/v9"
)

func main() {
	scrape := flag.Bool("scrape", false, "scrape investor-relations pages instead of syncing market data")
	seed := flag.Bool("seed", false, "seed the company universe before running")
	migrate := flag.Bool("migrate", true, "auto-migrate the schema before running")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config: %v", err)
	}
	logger.Init(cfg.Server.Env)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgDB, err := db.ConnectPostgres(cfg)
	if err != nil {
		logger.Fatal("failed to connect to postgres: %v", err)
	}
	defer db.ClosePostgres(pgDB)

	if *migrate {
		if err := db.Migrate(pgDB); err != nil {
			logger.Fatal("migration failed: %v", err)
		}
	}

	redisClient, shared, closeRedis := connectRedis(ctx, cfg)
	defer closeRedis()

	if *seed {
		n, err := services.Seed(ctx, pgDB, services.JSEUniverse, time.Now())
		if err != nil {
			logger.Fatal("seed failed: %v", err)
		}
		logger.Info("🌱 Seeded %d companies", n)
	}

	svc := app.Build(cfg, pgDB, redisClient)
	tickers := flag.Args()

	guard := jobs.NewGuard(redisClient, cfg.Jobs.LockTTL)
	if !shared && len(tickers) == 0 {
		logger.Warn("in-memory redis: the job lock only covers this process, a worker run may overlap")
	}

	switch {
	case *scrape && len(tickers) == 0:
		runBulk(ctx, guard, jobs.JobScraper, func(ctx context.Context) {
			res := svc.Scraper.ScrapeAll(ctx)
			logger.Info("✅ Scrape finished: %d ok, %d failed of %d", res.Success, res.Failed, res.Total)
		})
	case *scrape:
		for _, t := range tickers {
			summary, err := svc.Scraper.ScrapeCompany(ctx, t)
			if err != nil {
				logger.Error("❌ %s: %v", t, err)
				continue
			}
			logger.Info("✅ %s scraped via %s, %d new reports", summary.Ticker, summary.Source, summary.NewReports)
		}
	case len(tickers) == 0:
		runBulk(ctx, guard, jobs.JobSync, func(ctx context.Context) {
			res := svc.Sync.SyncAll(ctx)
			logger.Info("✅ Sync finished: %d ok, %d failed of %d", res.Success, res.Failed, res.Total)
		})
	default:
		for _, t := range tickers {
			res := svc.Sync.SyncOne(ctx, t)
			if !res.Success {
				logger.Error("❌ %s: %s", res.Ticker, res.Message)
				continue
			}
			logger.Info("✅ %s", res.Message)
		}
	}
}

// runBulk runs fn under the same lock the worker's scheduled runs take.
func runBulk(ctx context.Context, guard *jobs.Guard, name string, fn func(context.Context)) {
	err := guard.Do(ctx, name, fn)
	switch {
	case errors.Is(err, jobs.ErrJobRunning):
		logger.Warn("⚠️ %s is already running elsewhere, skipping", name)
	case err != nil:
		logger.Fatal("%s: %v", name, err)
	}
}

// connectRedis prefers the configured server and falls back to an in-memory one,
// which keeps cache invalidation and price publishes harmless for one-off runs.
// shared is false for the in-memory fallback.
func connectRedis(ctx context.Context, cfg *config.Config) (client *redis.Client, shared bool, closeFn func()) {
	client, err := db.ConnectRedis(ctx, cfg)
	if err == nil {
		return client, true, func() { _ = client.Close() }
	}
	logger.Warn("Redis unavailable (%v); using in-memory redis", err)

	mr, err := miniredis.Run()
	if err != nil {
		logger.Fatal("failed to start in-memory redis: %v", err)
	}
	client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, false, func() {
		_ = client.Close()
		mr.Close()
	}
}
