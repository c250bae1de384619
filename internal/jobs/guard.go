package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "bluewhale:jobs:"

// ErrJobRunning is returned when another run of the same job holds the lock.
var ErrJobRunning = errors.New("job already running")

// releaseScript deletes the lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Guard is a single-slot lock per job name, shared by every process on the same Redis.
type Guard struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	return &Guard{Redis: rdb, TTL: ttl}
}

// Acquire takes the lock for name. The returned func releases it.
func (g *Guard) Acquire(ctx context.Context, name string) (func(), error) {
	token := uuid.NewString()
	key := lockPrefix + name

	ok, err := g.Redis.SetNX(ctx, key, token, g.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s lock: %w", name, err)
	}
	if !ok {
		return nil, ErrJobRunning
	}

	release := func() {
		// the run context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.Redis, []string{key}, token).Err()
	}
	return release, nil
}

// Running reports whether name is currently locked
func (g *Guard) Running(ctx context.Context, name string) (bool, error) {
	n, err := g.Redis.Exists(ctx, lockPrefix+name).Result()
	return n > 0, err
}

// Do runs fn while holding the lock for name, or returns ErrJobRunning without running it.
func (g *Guard) Do(ctx context.Context, name string, fn func(context.Context)) error {
	release, err := g.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()
	fn(ctx)
	return nil
}
