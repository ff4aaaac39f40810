package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamSchedule is the read-only timing of one exam instance.
// StartTime and EndTime are offsets from midnight of Date.
type ExamSchedule struct {
	ExamID          uuid.UUID     `json:"exam_id"`
	CourseID        int           `json:"course_id"`
	Title           string        `json:"title"`
	Date            time.Time     `json:"date"`
	StartTime       time.Duration `json:"-"`
	EndTime         time.Duration `json:"-"`
	DurationMinutes int           `json:"duration_minutes"`
}

// Duration returns the per-category time allowance.
func (s ExamSchedule) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// CategoryBudget is the point budget of one category within an exam.
// PassingPoints is only consumed by the later declaration workflow.
type CategoryBudget struct {
	ExamID        uuid.UUID `json:"exam_id"`
	CategoryID    int       `json:"category_id"`
	Name          string    `json:"name"`
	TotalPoints   int       `json:"total_points"`
	PassingPoints int       `json:"passing_points"`
}
