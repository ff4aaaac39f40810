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

// ExamSessionService drives a student through the categories of an exam:
// completion gate, access window, selection on first entry, answering, and
// finalization.
type ExamSessionService struct {
	gate      *CompletionGate
	queue     *QuestionQueue
	recorder  *AnswerRecorder
	finalizer *SubmissionFinalizer
	schedules ScheduleProvider
	budgets   BudgetProvider
	bank      QuestionBank
	results   ResultStore
	events    EventPublisher
	cfg       EngineConfig
	log       zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	gate *CompletionGate,
	queue *QuestionQueue,
	recorder *AnswerRecorder,
	finalizer *SubmissionFinalizer,
	schedules ScheduleProvider,
	budgets BudgetProvider,
	bank QuestionBank,
	results ResultStore,
	events EventPublisher,
	cfg EngineConfig,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		gate:      gate,
		queue:     queue,
		recorder:  recorder,
		finalizer: finalizer,
		schedules: schedules,
		budgets:   budgets,
		bank:      bank,
		results:   results,
		events:    events,
		cfg:       cfg.withDefaults(),
		log:       log.With().Str("component", "exam_session_service").Logger(),
	}
}

// LobbyStatus is the state of a category as shown in the student lobby.
type LobbyStatus string

const (
	LobbyStatusUpcoming   LobbyStatus = "UPCOMING"
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
	LobbyStatusClosed     LobbyStatus = "CLOSED"
)

// LobbyCategory is one category of the lobby.
type LobbyCategory struct {
	CategoryID  int         `json:"category_id"`
	Name        string      `json:"name"`
	TotalPoints int         `json:"total_points"`
	LobbyStatus LobbyStatus `json:"lobby_status"`
	DeadlineAt  *time.Time  `json:"deadline_at,omitempty"`
}

// Lobby is the exam overview a student lands on after login.
type Lobby struct {
	ExamID          uuid.UUID       `json:"exam_id"`
	Title           string          `json:"title"`
	WindowStart     time.Time       `json:"window_start"`
	WindowEnd       time.Time       `json:"window_end"`
	DurationMinutes int             `json:"duration_minutes"`
	Categories      []LobbyCategory `json:"categories"`
}

// GetLobby returns the categories of the student's exam with their status.
func (s *ExamSessionService) GetLobby(ctx context.Context, studentID int, examID uuid.UUID) (*Lobby, error) {
	schedule, err := s.schedule(ctx, examID)
	if err != nil {
		return nil, err
	}
	categories, err := s.budgets.ListCategoryBudgets(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	done, err := s.results.ListCompletedCategories(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("list completed categories: %w", err)
	}

	start, end := WindowBounds(*schedule, s.cfg.Location)
	window := EvaluateWindow(*schedule, s.cfg.Now(), s.cfg.Location)

	lobby := &Lobby{
		ExamID:          examID,
		Title:           schedule.Title,
		WindowStart:     start,
		WindowEnd:       end,
		DurationMinutes: schedule.DurationMinutes,
		Categories:      make([]LobbyCategory, 0, len(categories)),
	}
	for _, c := range categories {
		entry := LobbyCategory{CategoryID: c.CategoryID, Name: c.Name, TotalPoints: c.TotalPoints}

		if done[c.CategoryID] {
			entry.LobbyStatus = LobbyStatusCompleted
			lobby.Categories = append(lobby.Categories, entry)
			continue
		}

		key := model.SessionKey{StudentID: studentID, ExamID: examID, CategoryID: c.CategoryID}
		sess, err := s.queue.Load(ctx, key)
		switch {
		case err == nil:
			deadline := sess.DeadlineAt
			entry.LobbyStatus = LobbyStatusInProgress
			entry.DeadlineAt = &deadline
		case errors.Is(err, ErrSessionNotFound):
			switch window {
			case WindowNotYetOpen:
				entry.LobbyStatus = LobbyStatusUpcoming
			case WindowExpired:
				entry.LobbyStatus = LobbyStatusClosed
			default:
				entry.LobbyStatus = LobbyStatusAvailable
			}
		default:
			return nil, err
		}
		lobby.Categories = append(lobby.Categories, entry)
	}
	return lobby, nil
}

// Enter opens a category for a student. The first entry selects the questions
// and starts the clock; later entries resume the existing session unchanged.
func (s *ExamSessionService) Enter(ctx context.Context, key model.SessionKey) (*SessionSnapshot, error) {
	if err := s.gate.Check(ctx, key); err != nil {
		return nil, err
	}

	existing, err := s.queue.Load(ctx, key)
	if err == nil {
		if s.cfg.Now().After(existing.DeadlineAt) {
			return nil, s.settle(ctx, key, ErrTimeUp)
		}
		return BuildSnapshot(existing, s.cfg.Now()), nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	schedule, err := s.schedule(ctx, key.ExamID)
	if err != nil {
		return nil, err
	}
	now := s.cfg.Now()
	if err := EvaluateWindow(*schedule, now, s.cfg.Location).Err(); err != nil {
		return nil, err
	}

	budget, err := s.budgets.GetCategoryBudget(ctx, key.ExamID, key.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category budget: %w", err)
	}
	if budget.TotalPoints <= 0 {
		s.log.Warn().
			Str("exam_id", key.ExamID.String()).
			Int("category_id", key.CategoryID).
			Int("budget", budget.TotalPoints).
			Msg("Category cannot be started: no point budget configured")
		return nil, ErrEmptyBudget
	}

	pool, err := s.bank.GetEligibleQuestions(ctx, key.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("get question pool: %w", err)
	}
	selected, err := SelectQuestions(pool, budget.TotalPoints)
	if err == nil && len(selected) == 0 {
		err = ErrInsufficientQuestions
	}
	if err != nil {
		s.log.Error().
			Str("exam_id", key.ExamID.String()).
			Int("category_id", key.CategoryID).
			Int("budget", budget.TotalPoints).
			Int("pool_size", len(pool)).
			Msg("Category cannot be started: no question fits the budget")
		return nil, ErrInsufficientQuestions
	}
	s.cfg.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	sess, created, err := s.queue.Create(ctx, key, selected, now, sessionDeadline(*schedule, now, s.cfg.Location))
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info().
			Str("session_id", sess.ID.String()).
			Int("student_id", key.StudentID).
			Int("category_id", key.CategoryID).
			Int("questions", len(sess.Questions)).
			Time("deadline_at", sess.DeadlineAt).
			Msg("Session started")
		if err := s.events.Publish(ctx, SessionStartedEvent(sess)); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish session start event")
		}
	}
	return BuildSnapshot(sess, s.cfg.Now()), nil
}

// State returns the current snapshot of a session.
func (s *ExamSessionService) State(ctx context.Context, key model.SessionKey) (*SessionSnapshot, error) {
	snap, err := s.queue.Snapshot(ctx, key)
	if err != nil {
		return nil, s.settle(ctx, key, err)
	}
	return snap, nil
}

// Answer records optionID for the current question and moves to the next one.
func (s *ExamSessionService) Answer(ctx context.Context, key model.SessionKey, questionID uuid.UUID, optionID string) (*SessionSnapshot, error) {
	return s.respond(ctx, key, questionID, SelectOption(optionID))
}

// Skip marks the current question skipped and moves to the next one.
func (s *ExamSessionService) Skip(ctx context.Context, key model.SessionKey, questionID uuid.UUID) (*SessionSnapshot, error) {
	return s.respond(ctx, key, questionID, SkipQuestion())
}

// respond records and advances as two separately persisted steps; a crash in
// between leaves the answer committed on a head that a retry advances past.
func (s *ExamSessionService) respond(ctx context.Context, key model.SessionKey, questionID uuid.UUID, choice Choice) (*SessionSnapshot, error) {
	if _, err := s.recorder.Record(ctx, key, questionID, choice); err != nil {
		if errors.Is(err, ErrStaleQuestion) {
			if snap, ok := s.replayed(ctx, key, questionID, choice); ok {
				return snap, nil
			}
		}
		return nil, s.settle(ctx, key, err)
	}
	sess, err := s.queue.advance(ctx, key, questionID)
	if err != nil {
		return nil, s.settle(ctx, key, err)
	}
	return BuildSnapshot(sess, s.cfg.Now()), nil
}

// replayed reports whether questionID was already answered with choice and
// passed, which is what a client retrying an accepted request looks like.
func (s *ExamSessionService) replayed(ctx context.Context, key model.SessionKey, questionID uuid.UUID, choice Choice) (*SessionSnapshot, bool) {
	sess, err := s.queue.Load(ctx, key)
	if err != nil || s.cfg.Now().After(sess.DeadlineAt) {
		return nil, false
	}
	for _, q := range sess.Questions[:sess.Cursor] {
		if q.ID != questionID {
			continue
		}
		prev, ok := sess.Answers[q.ID.String()]
		if !ok || prev != choice.answer() {
			return nil, false
		}
		return BuildSnapshot(sess, s.cfg.Now()), true
	}
	return nil, false
}

// Submit finalizes the session at the student's request.
func (s *ExamSessionService) Submit(ctx context.Context, key model.SessionKey) (*FinalizeOutcome, error) {
	return s.finalizer.Finalize(ctx, key, model.SubmissionManual)
}

// Result returns the finalized result of a category.
func (s *ExamSessionService) Result(ctx context.Context, key model.SessionKey) (*model.ExamResult, error) {
	res, err := s.results.GetResult(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrResultNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}

// settle turns engine outcomes observed mid-request into their final form: an
// overdue session is finalized on the spot, and a missing session that has a
// result reports completion.
func (s *ExamSessionService) settle(ctx context.Context, key model.SessionKey, err error) error {
	switch {
	case errors.Is(err, ErrTimeUp):
		if _, ferr := s.finalizer.Finalize(ctx, key, model.SubmissionAutoTimeout); ferr != nil && !errors.Is(ferr, ErrSessionNotFound) {
			return ferr
		}
		return ErrTimeUp
	case errors.Is(err, ErrSessionNotFound):
		done, herr := s.results.HasFinalizedResult(ctx, key)
		if herr != nil {
			return fmt.Errorf("check completion: %w", herr)
		}
		if done {
			return ErrAlreadyCompleted
		}
	}
	return err
}

func (s *ExamSessionService) schedule(ctx context.Context, examID uuid.UUID) (*model.ExamSchedule, error) {
	schedule, err := s.schedules.GetSchedule(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return schedule, nil
}
