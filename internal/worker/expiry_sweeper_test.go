package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFinalizer returns the queued batch sizes in order, then zero.
type scriptedFinalizer struct {
	mu      sync.Mutex
	batches []int
	err     error
	calls   int
	limits  []int
}

func (f *scriptedFinalizer) SweepExpired(_ context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

func (f *scriptedFinalizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestSweeper(t *testing.T, f ExpiredSessionFinalizer, batch int) (*ExpirySweeper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewExpirySweeper(f, rdb, time.Hour, batch, zerolog.Nop()), mr
}

func TestRunOnceDrainsFullBatches(t *testing.T) {
	f := &scriptedFinalizer{batches: []int{10, 10, 4}}
	sweeper, mr := newTestSweeper(t, f, 10)

	total := sweeper.RunOnce(context.Background())

	assert.Equal(t, 24, total)
	assert.Equal(t, 3, f.calls)
	assert.Equal(t, []int{10, 10, 10}, f.limits)
	assert.False(t, mr.Exists(config.WorkerKey.ExpirySweepLock), "lock released")
}

func TestRunOnceCapsRounds(t *testing.T) {
	batches := make([]int, SweepMaxRounds+5)
	for i := range batches {
		batches[i] = 2
	}
	f := &scriptedFinalizer{batches: batches}
	sweeper, _ := newTestSweeper(t, f, 2)

	total := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepMaxRounds*2, total)
	assert.Equal(t, SweepMaxRounds, f.calls)
}

func TestRunOnceSkipsWhenLocked(t *testing.T) {
	f := &scriptedFinalizer{batches: []int{3}}
	sweeper, mr := newTestSweeper(t, f, 10)
	require.NoError(t, mr.Set(config.WorkerKey.ExpirySweepLock, "other-instance"))

	assert.Zero(t, sweeper.RunOnce(context.Background()))
	assert.Zero(t, f.calls)

	owner, err := mr.Get(config.WorkerKey.ExpirySweepLock)
	require.NoError(t, err)
	assert.Equal(t, "other-instance", owner, "a foreign lock is left alone")
}

func TestRunOnceStopsOnError(t *testing.T) {
	f := &scriptedFinalizer{err: assert.AnError}
	sweeper, mr := newTestSweeper(t, f, 10)

	assert.Zero(t, sweeper.RunOnce(context.Background()))
	assert.Equal(t, 1, f.calls)
	assert.False(t, mr.Exists(config.WorkerKey.ExpirySweepLock))
}

func TestStartRunsFinalSweepOnShutdown(t *testing.T) {
	f := &scriptedFinalizer{}
	sweeper, _ := newTestSweeper(t, f, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.Equal(t, 1, f.callCount())
}

func TestNewExpirySweeperDefaults(t *testing.T) {
	sweeper := NewExpirySweeper(&scriptedFinalizer{}, nil, 0, 0, zerolog.Nop())
	assert.Equal(t, 15*time.Second, sweeper.interval)
	assert.Equal(t, 100, sweeper.batchSize)
}
