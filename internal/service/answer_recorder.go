package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Choice is what a student submits for the current question.
type Choice struct {
	OptionID string
	Skip     bool
}

// SelectOption is a Choice of one option.
func SelectOption(optionID string) Choice { return Choice{OptionID: optionID} }

// SkipQuestion is an explicit skip.
func SkipQuestion() Choice { return Choice{Skip: true} }

func (c Choice) answer() model.Answer {
	if c.Skip {
		return model.SkippedAnswer()
	}
	return model.SelectedAnswer(c.OptionID)
}

// AnswerRecorder records answers against the head of a session's queue.
type AnswerRecorder struct {
	queue *QuestionQueue
}

// NewAnswerRecorder creates a new AnswerRecorder.
func NewAnswerRecorder(queue *QuestionQueue) *AnswerRecorder {
	return &AnswerRecorder{queue: queue}
}

// Record stores choice for questionID and persists it before returning. The
// question must be the current head, otherwise ErrStaleQuestion. Recording the
// same choice again is a no-op; a different choice for the same still-current
// head overwrites the previous one. Record never advances the queue.
func (r *AnswerRecorder) Record(ctx context.Context, key model.SessionKey, questionID uuid.UUID, choice Choice) (*model.ExamSession, error) {
	return r.queue.mutate(ctx, key, func(s *model.ExamSession) error {
		head := s.Current()
		if head == nil || head.ID != questionID {
			return ErrStaleQuestion
		}

		if !choice.Skip && !head.HasOption(choice.OptionID) {
			return ErrInvalidOption
		}
		answer := choice.answer()

		if prev, ok := s.Answers[head.ID.String()]; ok && prev == answer {
			return errNoChange
		}
		s.Answers[head.ID.String()] = answer
		return nil
	})
}
