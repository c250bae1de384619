package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bluewhale-terminal/backend/internal/config"
	"github.com/bluewhale-terminal/backend/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuard(t *testing.T) (*miniredis.Miniredis, *Guard) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewGuard(rdb, time.Minute)
}

func newScheduler(t *testing.T, g *Guard) *Scheduler {
	t.Helper()
	s, err := NewScheduler(g, config.JobsConfig{Timezone: "UTC", RunTimeout: time.Minute})
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestGuardRejectsOverlap(t *testing.T) {
	mr, g := newGuard(t)
	ctx := context.Background()

	release, err := g.Acquire(ctx, JobSync)
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockPrefix+JobSync))

	_, err = g.Acquire(ctx, JobSync)
	assert.ErrorIs(t, err, ErrJobRunning)

	other, err := g.Acquire(ctx, JobScraper)
	require.NoError(t, err, "locks are per job name")
	other()

	release()
	again, err := g.Acquire(ctx, JobSync)
	require.NoError(t, err)
	again()
}

func TestGuardDoSkipsWhileScheduledRunHoldsLock(t *testing.T) {
	mr, g := newGuard(t)
	ctx := context.Background()

	// a worker in another process holds the scrape lock
	held, err := g.Acquire(ctx, JobScraper)
	require.NoError(t, err)

	ran := false
	err = g.Do(ctx, JobScraper, func(context.Context) { ran = true })
	assert.ErrorIs(t, err, ErrJobRunning)
	assert.False(t, ran)

	held()
	err = g.Do(ctx, JobScraper, func(context.Context) {
		ran = true
		assert.True(t, mr.Exists(lockPrefix+JobScraper), "lock held while running")
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists(lockPrefix+JobScraper), "lock released afterwards")
}

func TestGuardReleaseKeepsForeignLock(t *testing.T) {
	mr, g := newGuard(t)
	ctx := context.Background()

	release, err := g.Acquire(ctx, JobSync)
	require.NoError(t, err)

	// lock expired and was taken by another process
	mr.FastForward(2 * time.Minute)
	_, err = g.Acquire(ctx, JobSync)
	require.NoError(t, err)

	release()
	running, err := g.Running(ctx, JobSync)
	require.NoError(t, err)
	assert.True(t, running)
}

func TestRunNowRejectsWhileRunning(t *testing.T) {
	_, g := newGuard(t)
	s := newScheduler(t, g)

	started := make(chan struct{})
	unblock := make(chan struct{})
	var runs int32
	require.NoError(t, s.Register(JobSync, "", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		close(started)
		<-unblock
		return nil
	}))

	require.NoError(t, s.RunNow(JobSync))
	<-started
	assert.ErrorIs(t, s.RunNow(JobSync), ErrJobRunning)

	close(unblock)
	require.Eventually(t, func() bool {
		running, err := g.Running(context.Background(), JobSync)
		return err == nil && !running
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestRunNowUnknownJob(t *testing.T) {
	_, g := newGuard(t)
	s := newScheduler(t, g)
	assert.ErrorIs(t, s.RunNow("reindex"), ErrUnknownJob)
}

func TestRegisterRejectsBadSpec(t *testing.T) {
	_, g := newGuard(t)
	s := newScheduler(t, g)
	assert.Error(t, s.Register(JobSync, "every hour", func(context.Context) error { return nil }))
}

func TestNewSchedulerRejectsBadTimezone(t *testing.T) {
	_, g := newGuard(t)
	_, err := NewScheduler(g, config.JobsConfig{Timezone: "Mars/Olympus_Mons"})
	assert.Error(t, err)
}

func TestRunRecoversPanics(t *testing.T) {
	_, g := newGuard(t)
	s := newScheduler(t, g)
	require.NoError(t, s.Register(JobScraper, "", func(context.Context) error { panic("bad page") }))

	require.NoError(t, s.RunNow(JobScraper))
	require.Eventually(t, func() bool {
		running, err := g.Running(context.Background(), JobScraper)
		return err == nil && !running
	}, 2*time.Second, 10*time.Millisecond, "lock is released after a panic")
}

type countingSyncer struct{ calls int32 }

func (c *countingSyncer) SyncAll(context.Context) services.BulkResult {
	atomic.AddInt32(&c.calls, 1)
	return services.BulkResult{Success: 2, Total: 2}
}

func (c *countingSyncer) ScrapeAll(context.Context) services.BulkResult {
	atomic.AddInt32(&c.calls, 1)
	return services.BulkResult{Success: 1, Failed: 1, Total: 2}
}

func TestRegisterWiresBulkTasks(t *testing.T) {
	_, g := newGuard(t)
	s := newScheduler(t, g)
	bulk := &countingSyncer{}

	require.NoError(t, Register(s, bulk, bulk, "", ""))
	require.NoError(t, s.RunNow(JobSync))
	require.NoError(t, s.RunNow(JobScraper))

	require.Eventually(t, func() bool { return atomic.LoadInt32(&bulk.calls) == 2 }, 2*time.Second, 10*time.Millisecond)
}
