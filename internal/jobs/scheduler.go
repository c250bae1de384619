/**
 * @description
 * Background job scheduler for the bulk scrape and sync runs.
 *
 * @dependencies
 * - github.com/robfig/cron/v3: cron expressions in the exchange's time zone
 * - backend/internal/jobs.Guard: one run per job across processes
 *
 * @notes
 * - A job registered with an empty spec can only be triggered through RunNow.
 *   The API process does this for its manual trigger endpoints.
 * - Every run gets its own timeout. Errors are logged, never returned to cron.
 */

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/logger"
	"github.com/robfig/cron/v3"
)

const (
	JobSync    = "sync"
	JobScraper = "scraper"
)

var ErrUnknownJob = errors.New("unknown job")

// Func is the body of a job
type Func func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	guard   *Guard
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]Func

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler builds a scheduler running in the configured time zone
func NewScheduler(guard *Guard, cfg config.JobsConfig) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", cfg.Timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{})),
		),
		guard:   guard,
		timeout: cfg.RunTimeout,
		jobs:    make(map[string]Func),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Register adds a job. An empty spec registers it for manual runs only.
func (s *Scheduler) Register(name, spec string, fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.runScheduled(name) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
		}
		logger.Info("[Jobs] %s scheduled at %q", name, spec)
	}
	s.jobs[name] = fn
	return nil
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop, cancels in-flight runs and waits for them to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	s.wg.Wait()
}

// RunNow triggers a job in the background. It fails fast with ErrJobRunning
// when a run is already in flight anywhere.
func (s *Scheduler) RunNow(name string) error {
	fn, err := s.lookup(name)
	if err != nil {
		return err
	}

	release, err := s.guard.Acquire(s.ctx, name)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		s.execute(name, fn)
	}()
	return nil
}

func (s *Scheduler) runScheduled(name string) {
	fn, err := s.lookup(name)
	if err != nil {
		logger.Error("[Jobs] %v", err)
		return
	}

	release, err := s.guard.Acquire(s.ctx, name)
	if errors.Is(err, ErrJobRunning) {
		logger.Warn("[Jobs] %s still running, skipping this tick", name)
		return
	}
	if err != nil {
		logger.Error("[Jobs] %s: %v", name, err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	defer release()
	s.execute(name, fn)
}

func (s *Scheduler) execute(name string, fn Func) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[Jobs] %s panicked: %v", name, r)
		}
	}()

	start := time.Now()
	logger.Info("[Jobs] %s started", name)
	if err := fn(ctx); err != nil {
		logger.Error("[Jobs] %s failed after %s: %v", name, time.Since(start).Round(time.Millisecond), err)
		return
	}
	logger.Info("[Jobs] %s finished in %s", name, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) lookup(name string) (Func, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return fn, nil
}

// cronLogger routes cron's own messages through the application logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
