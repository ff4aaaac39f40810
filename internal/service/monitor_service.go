package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Monitor event types.
const (
	EventSessionStarted  = "session_started"
	EventResultFinalized = "result_finalized"
)

// MonitorEvent is one message on an exam's monitor channel.
type MonitorEvent struct {
	Type       string            `json:"type"`
	ExamID     uuid.UUID         `json:"exam_id"`
	StudentID  int               `json:"student_id"`
	CategoryID int               `json:"category_id"`
	SessionID  uuid.UUID         `json:"session_id"`
	DeadlineAt *time.Time        `json:"deadline_at,omitempty"`
	Result     *model.ExamResult `json:"result,omitempty"`
	At         time.Time         `json:"at"`
}

// SessionStartedEvent announces a newly created session.
func SessionStartedEvent(s *model.ExamSession) MonitorEvent {
	deadline := s.DeadlineAt
	return MonitorEvent{
		Type:       EventSessionStarted,
		ExamID:     s.Key.ExamID,
		StudentID:  s.Key.StudentID,
		CategoryID: s.Key.CategoryID,
		SessionID:  s.ID,
		DeadlineAt: &deadline,
		At:         s.StartedAt,
	}
}

// ResultFinalizedEvent announces a written result.
func ResultFinalizedEvent(r *model.ExamResult) MonitorEvent {
	return MonitorEvent{
		Type:       EventResultFinalized,
		ExamID:     r.ExamID,
		StudentID:  r.StudentID,
		CategoryID: r.CategoryID,
		SessionID:  r.SessionID,
		Result:     r,
		At:         r.CreatedAt,
	}
}

type activeSessionCounter interface {
	CountActiveByExam(ctx context.Context, examID uuid.UUID) (map[int]int, error)
}

type resultCounter interface {
	CountByExam(ctx context.Context, examID uuid.UUID) (map[int]int, error)
}

// MonitorService publishes session lifecycle events over Redis Pub/Sub and
// builds the per-category overview shown when a monitor attaches.
type MonitorService struct {
	rdb      *redis.Client
	sessions activeSessionCounter
	results  resultCounter
	budgets  BudgetProvider
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, sessions activeSessionCounter, results resultCounter, budgets BudgetProvider) *MonitorService {
	return &MonitorService{rdb: rdb, sessions: sessions, results: results, budgets: budgets}
}

// Publish sends event to the monitor channel of its exam.
func (s *MonitorService) Publish(ctx context.Context, event MonitorEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode monitor event: %w", err)
	}
	channel := config.CacheKey.ExamMonitorChannel(event.ExamID.String())
	return s.rdb.Publish(ctx, channel, payload).Err()
}

// Subscribe attaches to the monitor channel of an exam. The caller closes it.
func (s *MonitorService) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}

// CategoryOverview is the live state of one category.
type CategoryOverview struct {
	CategoryID int    `json:"category_id"`
	Name       string `json:"name"`
	InProgress int    `json:"in_progress"`
	Completed  int    `json:"completed"`
}

// Overview returns active and completed counts per category. The two counts
// are fetched concurrently.
func (s *MonitorService) Overview(ctx context.Context, examID uuid.UUID) ([]CategoryOverview, error) {
	categories, err := s.budgets.ListCategoryBudgets(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var (
		active, completed       map[int]int
		activeErr, completedErr error
		wg                      sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		active, activeErr = s.sessions.CountActiveByExam(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		completed, completedErr = s.results.CountByExam(ctx, examID)
	}()
	wg.Wait()

	if activeErr != nil {
		return nil, fmt.Errorf("count active sessions: %w", activeErr)
	}
	if completedErr != nil {
		return nil, fmt.Errorf("count results: %w", completedErr)
	}

	overview := make([]CategoryOverview, 0, len(categories))
	for _, c := range categories {
		overview = append(overview, CategoryOverview{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			InProgress: active[c.CategoryID],
			Completed:  completed[c.CategoryID],
		})
	}
	return overview, nil
}
