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

// QuestionQueue is the persisted, single-consumer queue of a session's
// selected questions. Every mutation is committed to the SessionStore before it
// returns; the cache only ever holds state the store has already accepted.
type QuestionQueue struct {
	store SessionStore
	cache SnapshotCache
	cfg   EngineConfig
	log   zerolog.Logger
}

// NewQuestionQueue creates a new QuestionQueue.
func NewQuestionQueue(store SessionStore, cache SnapshotCache, cfg EngineConfig, log zerolog.Logger) *QuestionQueue {
	return &QuestionQueue{
		store: store,
		cache: cache,
		cfg:   cfg.withDefaults(),
		log:   log.With().Str("component", "question_queue").Logger(),
	}
}

// QuestionProgress is one entry of the navigation grid.
type QuestionProgress struct {
	QuestionID uuid.UUID         `json:"question_id"`
	Position   int               `json:"position"`
	State      model.AnswerState `json:"state"`
	Current    bool              `json:"current"`
}

// SessionSnapshot is the student-facing view of a session.
type SessionSnapshot struct {
	SessionID        uuid.UUID                 `json:"session_id"`
	ExamID           uuid.UUID                 `json:"exam_id"`
	CategoryID       int                       `json:"category_id"`
	Status           model.SessionStatus       `json:"status"`
	CurrentQuestion  *model.QuestionForStudent `json:"current_question"`
	CurrentAnswer    *model.Answer             `json:"current_answer,omitempty"`
	AnsweredCount    int                       `json:"answered_count"`
	SkippedCount     int                       `json:"skipped_count"`
	RemainingCount   int                       `json:"remaining_count"`
	TotalCount       int                       `json:"total_count"`
	Questions        []QuestionProgress        `json:"questions"`
	StartedAt        time.Time                 `json:"started_at"`
	DeadlineAt       time.Time                 `json:"deadline_at"`
	RemainingSeconds int64                     `json:"remaining_seconds"`
}

// BuildSnapshot renders s as seen at now.
func BuildSnapshot(s *model.ExamSession, now time.Time) *SessionSnapshot {
	answered, skipped := s.Counts()
	snap := &SessionSnapshot{
		SessionID:      s.ID,
		ExamID:         s.Key.ExamID,
		CategoryID:     s.Key.CategoryID,
		Status:         s.Status,
		AnsweredCount:  answered,
		SkippedCount:   skipped,
		RemainingCount: len(s.Remaining()),
		TotalCount:     len(s.Questions),
		Questions:      make([]QuestionProgress, len(s.Questions)),
		StartedAt:      s.StartedAt,
		DeadlineAt:     s.DeadlineAt,
	}
	if left := s.DeadlineAt.Sub(now); left > 0 {
		snap.RemainingSeconds = int64(left / time.Second)
	}

	for i, q := range s.Questions {
		snap.Questions[i] = QuestionProgress{
			QuestionID: q.ID,
			Position:   i + 1,
			State:      s.AnswerState(q.ID),
			Current:    s.IsActive() && i == s.Cursor,
		}
	}

	if head := s.Current(); head != nil && s.IsActive() {
		snap.CurrentQuestion = &model.QuestionForStudent{
			ID:           head.ID,
			QuestionText: head.QuestionText,
			Points:       head.Points,
			Options:      head.Options,
			Position:     s.Cursor + 1,
		}
		if a, ok := s.Answers[head.ID.String()]; ok {
			snap.CurrentAnswer = &a
		}
	}
	return snap
}

// Create persists a new ACTIVE session holding selected in the given order.
// When the key already has an ACTIVE session that session is returned instead
// and created is false.
func (q *QuestionQueue) Create(ctx context.Context, key model.SessionKey, selected []model.QuestionPoolEntry, startedAt, deadline time.Time) (*model.ExamSession, bool, error) {
	sess, created, err := q.store.CreateSession(ctx, &model.ExamSession{
		ID:         uuid.New(),
		Key:        key,
		Status:     model.SessionStatusActive,
		Questions:  selected,
		Answers:    map[string]model.Answer{},
		StartedAt:  startedAt,
		DeadlineAt: deadline,
	})
	if err != nil {
		if errors.Is(err, repository.ErrCategoryCompleted) {
			return nil, false, ErrAlreadyCompleted
		}
		return nil, false, fmt.Errorf("create session: %w", err)
	}
	q.remember(ctx, sess)
	return sess, created, nil
}

// Load returns the authoritative ACTIVE session of key.
func (q *QuestionQueue) Load(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	sess, err := q.store.GetActiveSession(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// view serves reads from the cache, falling back to the store and refilling
// the cache on a miss.
func (q *QuestionQueue) view(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	if cached, err := q.cache.Get(ctx, key); err == nil {
		if !cached.IsActive() {
			return nil, ErrSessionNotFound
		}
		return cached, nil
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		q.log.Warn().Err(err).Str("session_key", key.String()).Msg("Session cache read failed")
	}

	sess, err := q.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	q.remember(ctx, sess)
	return sess, nil
}

// PeekCurrent returns the head of the queue without consuming it, or nil once
// every question has been passed.
func (q *QuestionQueue) PeekCurrent(ctx context.Context, key model.SessionKey) (*model.QuestionPoolEntry, error) {
	sess, err := q.view(ctx, key)
	if err != nil {
		return nil, err
	}
	if q.overdue(sess) {
		return nil, ErrTimeUp
	}
	return sess.Current(), nil
}

// Advance consumes the head of the queue and returns the new head. questionID
// names the head the caller has just answered; when the head has already moved
// past it Advance changes nothing and returns the current head, so a retried
// advance never skips an unseen question.
func (q *QuestionQueue) Advance(ctx context.Context, key model.SessionKey, questionID uuid.UUID) (*model.QuestionPoolEntry, error) {
	sess, err := q.advance(ctx, key, questionID)
	if err != nil {
		return nil, err
	}
	return sess.Current(), nil
}

func (q *QuestionQueue) advance(ctx context.Context, key model.SessionKey, questionID uuid.UUID) (*model.ExamSession, error) {
	return q.mutate(ctx, key, func(s *model.ExamSession) error {
		head := s.Current()
		if head == nil || head.ID != questionID {
			return errNoChange
		}
		if s.AnswerState(head.ID) == model.AnswerStateUnreached {
			return ErrQuestionUnanswered
		}
		s.Cursor++
		return nil
	})
}

// Snapshot returns the navigation view of the session.
func (q *QuestionQueue) Snapshot(ctx context.Context, key model.SessionKey) (*SessionSnapshot, error) {
	sess, err := q.view(ctx, key)
	if err != nil {
		return nil, err
	}
	if q.overdue(sess) {
		return nil, ErrTimeUp
	}
	return BuildSnapshot(sess, q.cfg.Now()), nil
}

// mutate applies fn to the latest committed session and persists the result
// with a compare-and-set, reloading and reapplying fn on conflict. fn returning
// errNoChange ends the mutation successfully without a write.
func (q *QuestionQueue) mutate(ctx context.Context, key model.SessionKey, fn func(*model.ExamSession) error) (*model.ExamSession, error) {
	for attempt := 0; attempt < q.cfg.MaxCASAttempts; attempt++ {
		sess, err := q.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if q.overdue(sess) {
			return nil, ErrTimeUp
		}

		if err := fn(sess); err != nil {
			if errors.Is(err, errNoChange) {
				return sess, nil
			}
			return nil, err
		}

		err = q.store.UpdateSession(ctx, sess)
		if err == nil {
			q.remember(ctx, sess)
			return sess, nil
		}
		if !errors.Is(err, repository.ErrSessionConflict) {
			return nil, fmt.Errorf("update session: %w", err)
		}
		q.log.Debug().Str("session_key", key.String()).Int("attempt", attempt+1).Msg("Session version conflict, retrying")
	}
	return nil, ErrSessionBusy
}

func (q *QuestionQueue) overdue(s *model.ExamSession) bool {
	return q.cfg.Now().After(s.DeadlineAt)
}

// remember writes committed state to the cache. Failures only cost a cache miss.
func (q *QuestionQueue) remember(ctx context.Context, s *model.ExamSession) {
	ttl := s.DeadlineAt.Sub(q.cfg.Now()) + q.cfg.CacheGrace
	if err := q.cache.Set(ctx, s, ttl); err != nil {
		q.log.Warn().Err(err).Str("session_key", s.Key.String()).Msg("Session cache write failed")
	}
}
