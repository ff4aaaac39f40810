package model

import (
	"github.com/google/uuid"
)

// QuestionOption is a single selectable option of a question.
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionPoolEntry is a question eligible for selection in a category.
type QuestionPoolEntry struct {
	ID           uuid.UUID        `json:"id"`
	CategoryID   int              `json:"category_id"`
	QuestionText string           `json:"question_text"`
	Points       int              `json:"points"`
	Options      []QuestionOption `json:"options"`
}

// HasOption reports whether optionID belongs to the question's option set.
func (q QuestionPoolEntry) HasOption(optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// QuestionForStudent is the student-facing view of the current question.
type QuestionForStudent struct {
	ID           uuid.UUID        `json:"id"`
	QuestionText string           `json:"question_text"`
	Points       int              `json:"points"`
	Options      []QuestionOption `json:"options"`
	Position     int              `json:"position"`
}
