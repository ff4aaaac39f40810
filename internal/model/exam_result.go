package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionKind records what closed a session.
type SubmissionKind string

const (
	SubmissionManual      SubmissionKind = "MANUAL"
	SubmissionAutoTimeout SubmissionKind = "AUTO_TIMEOUT"
)

// ExamResult is the immutable outcome of a finalized session.
type ExamResult struct {
	ID                   uuid.UUID      `json:"id"`
	SessionID            uuid.UUID      `json:"session_id"`
	ExamID               uuid.UUID      `json:"exam_id"`
	StudentID            int            `json:"student_id"`
	CategoryID           int            `json:"category_id"`
	AnsweredCount        int            `json:"answered_count"`
	SkippedCount         int            `json:"skipped_count"`
	TotalCount           int            `json:"total_count"`
	TotalPoints          int            `json:"total_points"`
	DurationTakenSeconds int64          `json:"duration_taken_seconds"`
	SubmissionKind       SubmissionKind `json:"submission_kind"`
	CreatedAt            time.Time      `json:"created_at"`
}

// Key returns the session key the result belongs to.
func (r *ExamResult) Key() SessionKey {
	return SessionKey{StudentID: r.StudentID, ExamID: r.ExamID, CategoryID: r.CategoryID}
}

// ResultListItem joins a result with the student's display fields.
type ResultListItem struct {
	ExamResult
	StudentName  string `json:"student_name"`
	CategoryName string `json:"category_name"`
}
