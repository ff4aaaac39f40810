package service

import (
	"time"

	"github.com/stemsi/exstem-assessment/internal/model"
)

// WindowState is the position of an instant relative to an exam's access window.
type WindowState string

const (
	WindowNotYetOpen WindowState = "NOT_YET_OPEN"
	WindowOpen       WindowState = "OPEN"
	WindowExpired    WindowState = "EXPIRED"
)

// Err maps a closed window to its engine error. An open window returns nil.
func (w WindowState) Err() error {
	switch w {
	case WindowNotYetOpen:
		return ErrNotYetOpen
	case WindowExpired:
		return ErrWindowExpired
	}
	return nil
}

// WindowBounds resolves the absolute start and end of an exam window. The
// schedule's date and clock times are read in loc. A window whose end time is
// before its start time ends on the following day; equal times give a window
// of a single instant.
func WindowBounds(s model.ExamSchedule, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := s.Date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	start = midnight.Add(s.StartTime)
	end = midnight.Add(s.EndTime)
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start.UTC(), end.UTC()
}

// EvaluateWindow classifies now against the schedule. Both bounds are inclusive.
func EvaluateWindow(s model.ExamSchedule, now time.Time, loc *time.Location) WindowState {
	start, end := WindowBounds(s, loc)
	switch {
	case now.Before(start):
		return WindowNotYetOpen
	case now.After(end):
		return WindowExpired
	default:
		return WindowOpen
	}
}

// sessionDeadline is the earlier of the per-category allowance and the window end.
func sessionDeadline(s model.ExamSchedule, startedAt time.Time, loc *time.Location) time.Time {
	_, end := WindowBounds(s, loc)
	deadline := startedAt.Add(s.Duration())
	if end.Before(deadline) {
		return end
	}
	return deadline
}
