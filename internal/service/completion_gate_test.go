package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingResults struct{ *memStore }

func (failingResults) HasFinalizedResult(context.Context, model.SessionKey) (bool, error) {
	return false, errBoom
}

func TestCompletionGate(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	gate := NewCompletionGate(e.store)

	require.NoError(t, gate.Check(ctx, e.key()))

	e.startSession(pool(categoryID, 5), e.clock.Now().Add(time.Hour))
	require.NoError(t, gate.Check(ctx, e.key()), "an active session alone does not complete a category")

	_, err := e.finalizer.Finalize(ctx, e.key(), model.SubmissionManual)
	require.NoError(t, err)

	// Racing checks right after the finalize all see the result.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = gate.Check(ctx, e.key())
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	}

	other := e.key()
	other.CategoryID = 4
	assert.NoError(t, gate.Check(ctx, other))
}

func TestCompletionGateStorageFailure(t *testing.T) {
	gate := NewCompletionGate(failingResults{newMemStore()})

	err := gate.Check(context.Background(), model.SessionKey{StudentID: 1})
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrAlreadyCompleted)
}
