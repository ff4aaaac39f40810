package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
)

const (
	SweepShutdownTimeout = 10 * time.Second
	// SweepMaxRounds caps back-to-back full batches within one tick.
	SweepMaxRounds = 20
)

// ExpiredSessionFinalizer auto-submits overdue sessions.
type ExpiredSessionFinalizer interface {
	SweepExpired(ctx context.Context, limit int) (int, error)
}

// ExpirySweeper periodically finalizes sessions whose deadline has passed, so
// a student who closes the tab still gets a result. One instance sweeps at a
// time; the others skip the tick while the Redis lock is held.
type ExpirySweeper struct {
	finalizer ExpiredSessionFinalizer
	rdb       *redis.Client
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

func NewExpirySweeper(finalizer ExpiredSessionFinalizer, rdb *redis.Client, interval time.Duration, batchSize int, log zerolog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpirySweeper{
		finalizer: finalizer,
		rdb:       rdb,
		interval:  interval,
		batchSize: batchSize,
		log:       log.With().Str("component", "expiry_sweeper").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

func (w *ExpirySweeper) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Int("batch_size", w.batchSize).Msg("ExpirySweeper started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Running final sweep...")
			final, cancel := context.WithTimeout(context.Background(), SweepShutdownTimeout)
			w.RunOnce(final)
			cancel()
			return

		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps under the distributed lock and returns the number of
// sessions finalized. It returns 0 without sweeping when another instance
// holds the lock.
func (w *ExpirySweeper) RunOnce(ctx context.Context) int {
	token := uuid.New().String()
	ok, err := w.rdb.SetNX(ctx, config.WorkerKey.ExpirySweepLock, token, config.WorkerKey.ExpirySweepLockTTL).Result()
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Failed to acquire sweep lock")
		}
		return 0
	}
	if !ok {
		return 0
	}
	defer w.release(token)

	total := 0
	for round := 0; round < SweepMaxRounds; round++ {
		n, err := w.finalizer.SweepExpired(ctx, w.batchSize)
		total += n
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				w.log.Error().Err(err).Msg("Sweep failed")
			}
			break
		}
		if n < w.batchSize {
			break
		}
	}

	if total > 0 {
		w.log.Info().Int("finalized", total).Msg("Auto-submitted overdue sessions")
	}
	return total
}

// release drops the lock only if this instance still owns it.
func (w *ExpirySweeper) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseLock.Run(ctx, w.rdb, []string{config.WorkerKey.ExpirySweepLock}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		w.log.Warn().Err(err).Msg("Failed to release sweep lock")
	}
}

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
