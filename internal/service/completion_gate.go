package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-assessment/internal/model"
)

// CompletionGate blocks entry into categories that already have a result.
type CompletionGate struct {
	results ResultStore
}

// NewCompletionGate creates a new CompletionGate.
func NewCompletionGate(results ResultStore) *CompletionGate {
	return &CompletionGate{results: results}
}

// Check returns ErrAlreadyCompleted when key has a finalized result,
// regardless of any session state.
func (g *CompletionGate) Check(ctx context.Context, key model.SessionKey) error {
	done, err := g.results.HasFinalizedResult(ctx, key)
	if err != nil {
		return fmt.Errorf("check completion: %w", err)
	}
	if done {
		return ErrAlreadyCompleted
	}
	return nil
}
