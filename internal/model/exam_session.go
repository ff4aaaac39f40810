package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusExpired   SessionStatus = "EXPIRED"
)

// SessionKey identifies one assessment attempt.
type SessionKey struct {
	StudentID  int       `json:"student_id"`
	ExamID     uuid.UUID `json:"exam_id"`
	CategoryID int       `json:"category_id"`
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%s:%d", k.StudentID, k.ExamID, k.CategoryID)
}

// AnswerKind tags an Answer variant.
type AnswerKind string

const (
	AnswerSelected AnswerKind = "SELECTED"
	AnswerSkipped  AnswerKind = "SKIPPED"
)

// AnswerState is what the navigation UI shows for a question.
// UNREACHED is never stored; it is the absence of an Answer.
type AnswerState string

const (
	AnswerStateSelected  AnswerState = "SELECTED"
	AnswerStateSkipped   AnswerState = "SKIPPED"
	AnswerStateUnreached AnswerState = "UNREACHED"
)

// Answer is either Selected(OptionID) or Skipped.
type Answer struct {
	Kind     AnswerKind `json:"kind"`
	OptionID string     `json:"option_id,omitempty"`
}

// SelectedAnswer builds a Selected answer.
func SelectedAnswer(optionID string) Answer {
	return Answer{Kind: AnswerSelected, OptionID: optionID}
}

// SkippedAnswer builds a Skipped answer.
func SkippedAnswer() Answer {
	return Answer{Kind: AnswerSkipped}
}

// ExamSession is one student's attempt at one category of an exam.
// Questions holds the selected subset in presentation order; the queue head is
// Questions[Cursor] and everything before it has been answered or skipped.
type ExamSession struct {
	ID         uuid.UUID           `json:"id"`
	Key        SessionKey          `json:"key"`
	Status     SessionStatus       `json:"status"`
	Questions  []QuestionPoolEntry `json:"questions"`
	Cursor     int                 `json:"cursor"`
	Answers    map[string]Answer   `json:"answers"`
	StartedAt  time.Time           `json:"started_at"`
	DeadlineAt time.Time           `json:"deadline_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Version    int                 `json:"version"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// Current returns the head of the queue, or nil once every question is passed.
func (s *ExamSession) Current() *QuestionPoolEntry {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Cursor]
}

// Remaining returns the questions not yet passed, head included.
func (s *ExamSession) Remaining() []QuestionPoolEntry {
	if s.Cursor >= len(s.Questions) {
		return nil
	}
	return s.Questions[s.Cursor:]
}

// AnswerState reports the state of a question in this session.
func (s *ExamSession) AnswerState(questionID uuid.UUID) AnswerState {
	a, ok := s.Answers[questionID.String()]
	if !ok {
		return AnswerStateUnreached
	}
	if a.Kind == AnswerSkipped {
		return AnswerStateSkipped
	}
	return AnswerStateSelected
}

// Counts returns the number of selected and skipped answers.
func (s *ExamSession) Counts() (answered, skipped int) {
	for _, a := range s.Answers {
		switch a.Kind {
		case AnswerSelected:
			answered++
		case AnswerSkipped:
			skipped++
		}
	}
	return answered, skipped
}

// TotalPoints sums the points of the selected questions.
func (s *ExamSession) TotalPoints() int {
	total := 0
	for _, q := range s.Questions {
		total += q.Points
	}
	return total
}

// IsActive reports whether the session still accepts mutations.
func (s *ExamSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// Clone returns a deep copy, so stores never share mutable state with callers.
func (s *ExamSession) Clone() *ExamSession {
	c := *s
	c.Questions = make([]QuestionPoolEntry, len(s.Questions))
	for i, q := range s.Questions {
		q.Options = append([]QuestionOption(nil), q.Options...)
		c.Questions[i] = q
	}
	c.Answers = make(map[string]Answer, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = v
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
