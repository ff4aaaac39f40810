package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// FinalizeOutcome is the result of a finalize call. AlreadyFinalized is set
// when another caller closed the session first; Result is then the record that
// caller wrote.
type FinalizeOutcome struct {
	Result           *model.ExamResult `json:"result"`
	AlreadyFinalized bool              `json:"already_finalized"`
}

// SubmissionFinalizer is the only path that closes a session.
type SubmissionFinalizer struct {
	store   SessionStore
	results ResultStore
	cache   SnapshotCache
	events  EventPublisher
	cfg     EngineConfig
	log     zerolog.Logger
}

// NewSubmissionFinalizer creates a new SubmissionFinalizer.
func NewSubmissionFinalizer(
	store SessionStore,
	results ResultStore,
	cache SnapshotCache,
	events EventPublisher,
	cfg EngineConfig,
	log zerolog.Logger,
) *SubmissionFinalizer {
	return &SubmissionFinalizer{
		store:   store,
		results: results,
		cache:   cache,
		events:  events,
		cfg:     cfg.withDefaults(),
		log:     log.With().Str("component", "submission_finalizer").Logger(),
	}
}

// Finalize closes the ACTIVE session of key. Exactly one concurrent caller
// writes the result; the others get it back with AlreadyFinalized set.
func (f *SubmissionFinalizer) Finalize(ctx context.Context, key model.SessionKey, kind model.SubmissionKind) (*FinalizeOutcome, error) {
	for attempt := 0; attempt < f.cfg.MaxCASAttempts; attempt++ {
		sess, err := f.store.GetActiveSession(ctx, key)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return f.existing(ctx, key)
		}
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}

		out, err := f.close(ctx, sess, kind)
		if errors.Is(err, repository.ErrSessionConflict) {
			continue
		}
		return out, err
	}
	return nil, ErrSessionBusy
}

// FinalizeSession closes an already loaded session, falling back to a keyed
// Finalize when the copy turns out to be stale.
func (f *SubmissionFinalizer) FinalizeSession(ctx context.Context, sess *model.ExamSession, kind model.SubmissionKind) (*FinalizeOutcome, error) {
	out, err := f.close(ctx, sess.Clone(), kind)
	if errors.Is(err, repository.ErrSessionConflict) {
		return f.Finalize(ctx, sess.Key, kind)
	}
	return out, err
}

func (f *SubmissionFinalizer) existing(ctx context.Context, key model.SessionKey) (*FinalizeOutcome, error) {
	res, err := f.results.GetResult(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load result: %w", err)
	}
	return &FinalizeOutcome{Result: res, AlreadyFinalized: true}, nil
}

func (f *SubmissionFinalizer) close(ctx context.Context, sess *model.ExamSession, kind model.SubmissionKind) (*FinalizeOutcome, error) {
	now := f.cfg.Now()

	// Past the deadline every close is a timeout, and time is capped at the deadline.
	end := now
	if now.After(sess.DeadlineAt) {
		kind = model.SubmissionAutoTimeout
		end = sess.DeadlineAt
	}
	taken := end.Sub(sess.StartedAt)
	if taken < 0 {
		taken = 0
	}

	status := model.SessionStatusSubmitted
	if kind == model.SubmissionAutoTimeout {
		status = model.SessionStatusExpired
	}

	answered, skipped := sess.Counts()
	result := &model.ExamResult{
		ID:                   uuid.New(),
		SessionID:            sess.ID,
		ExamID:               sess.Key.ExamID,
		StudentID:            sess.Key.StudentID,
		CategoryID:           sess.Key.CategoryID,
		AnsweredCount:        answered,
		SkippedCount:         skipped,
		TotalCount:           len(sess.Questions),
		TotalPoints:          sess.TotalPoints(),
		DurationTakenSeconds: int64(taken / time.Second),
		SubmissionKind:       kind,
		CreatedAt:            now,
	}

	if err := f.store.FinalizeSession(ctx, sess, status, result); err != nil {
		if errors.Is(err, repository.ErrCategoryCompleted) {
			// A result already existed; the session was closed without one.
			if cerr := f.cache.Set(ctx, sess, f.cfg.CacheGrace); cerr != nil {
				f.log.Warn().Err(cerr).Str("session_key", sess.Key.String()).Msg("Failed to cache finalized session")
			}
			f.log.Warn().Str("session_id", sess.ID.String()).Str("session_key", sess.Key.String()).Msg("Closed session of an already completed category")
			return f.existing(ctx, sess.Key)
		}
		if errors.Is(err, repository.ErrSessionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("finalize session: %w", err)
	}

	// The closed snapshot outranks any cached ACTIVE version.
	if err := f.cache.Set(ctx, sess, f.cfg.CacheGrace); err != nil {
		f.log.Warn().Err(err).Str("session_key", sess.Key.String()).Msg("Failed to cache finalized session")
	}

	if err := f.events.Publish(ctx, ResultFinalizedEvent(result)); err != nil {
		f.log.Warn().Err(err).Str("session_key", sess.Key.String()).Msg("Failed to publish finalize event")
	}

	f.log.Info().
		Str("session_id", sess.ID.String()).
		Int("student_id", result.StudentID).
		Int("category_id", result.CategoryID).
		Str("kind", string(kind)).
		Int("answered", answered).
		Int("skipped", skipped).
		Int("total", result.TotalCount).
		Msg("Session finalized")

	return &FinalizeOutcome{Result: result}, nil
}

// SweepExpired auto-submits up to limit ACTIVE sessions whose deadline has
// passed and returns how many it finalized itself. Sessions closed first by
// another caller are not counted.
func (f *SubmissionFinalizer) SweepExpired(ctx context.Context, limit int) (int, error) {
	expired, err := f.store.ListExpiredSessions(ctx, f.cfg.Now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list expired sessions: %w", err)
	}

	finalized := 0
	for i := range expired {
		if ctx.Err() != nil {
			return finalized, ctx.Err()
		}
		out, err := f.FinalizeSession(ctx, &expired[i], model.SubmissionAutoTimeout)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			f.log.Error().Err(err).Str("session_key", expired[i].Key.String()).Msg("Failed to finalize expired session")
			continue
		}
		if !out.AlreadyFinalized {
			finalized++
		}
	}
	return finalized, nil
}
