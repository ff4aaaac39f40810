package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// SessionStore is the durable, compare-and-set store of exam sessions.
// repository.ExamSessionRepository is the production implementation.
type SessionStore interface {
	CreateSession(ctx context.Context, s *model.ExamSession) (*model.ExamSession, bool, error)
	GetActiveSession(ctx context.Context, key model.SessionKey) (*model.ExamSession, error)
	UpdateSession(ctx context.Context, s *model.ExamSession) error
	FinalizeSession(ctx context.Context, s *model.ExamSession, status model.SessionStatus, result *model.ExamResult) error
	ListExpiredSessions(ctx context.Context, now time.Time, limit int) ([]model.ExamSession, error)
}

// ResultStore reads finalized results.
type ResultStore interface {
	GetResult(ctx context.Context, key model.SessionKey) (*model.ExamResult, error)
	HasFinalizedResult(ctx context.Context, key model.SessionKey) (bool, error)
	ListCompletedCategories(ctx context.Context, examID uuid.UUID, studentID int) (map[int]bool, error)
}

// SnapshotCache is a best-effort cache of committed session state.
type SnapshotCache interface {
	Get(ctx context.Context, key model.SessionKey) (*model.ExamSession, error)
	Set(ctx context.Context, s *model.ExamSession, ttl time.Duration) error
	Delete(ctx context.Context, key model.SessionKey) error
}

// ScheduleProvider looks up exam schedules.
type ScheduleProvider interface {
	GetSchedule(ctx context.Context, examID uuid.UUID) (*model.ExamSchedule, error)
}

// BudgetProvider looks up category point budgets.
type BudgetProvider interface {
	GetCategoryBudget(ctx context.Context, examID uuid.UUID, categoryID int) (*model.CategoryBudget, error)
	ListCategoryBudgets(ctx context.Context, examID uuid.UUID) ([]model.CategoryBudget, error)
}

// QuestionBank returns the questions of a category worth more than zero points.
type QuestionBank interface {
	GetEligibleQuestions(ctx context.Context, categoryID int) ([]model.QuestionPoolEntry, error)
}

// EventPublisher fans session lifecycle events out to live monitors.
type EventPublisher interface {
	Publish(ctx context.Context, event MonitorEvent) error
}

// ResultLister pages through the results of an exam.
type ResultLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID, categoryID *int, limit, offset int) ([]model.ResultListItem, int, error)
}
