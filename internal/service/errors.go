package service

import "errors"

// Engine outcomes. All of them are expected results the caller can act on;
// only wrapped storage errors are infrastructure failures.
var (
	ErrAlreadyCompleted      = errors.New("category already completed")
	ErrNotYetOpen            = errors.New("exam window is not open yet")
	ErrWindowExpired         = errors.New("exam window has closed")
	ErrInsufficientQuestions = errors.New("not enough eligible questions for the category budget")
	ErrEmptyBudget           = errors.New("category has no point budget")
	ErrStaleQuestion         = errors.New("question is no longer the current question")
	ErrInvalidOption         = errors.New("option does not belong to the question")
	ErrQuestionUnanswered    = errors.New("current question has not been answered or skipped")
	ErrSessionNotFound       = errors.New("no active session for this category")
	ErrExamNotFound          = errors.New("exam not found")
	ErrCategoryNotFound      = errors.New("category not found for this exam")
	ErrTimeUp                = errors.New("session time is up")
	ErrSessionBusy           = errors.New("session is being modified concurrently")
)

// errNoChange aborts a mutation that would leave the session as it is.
var errNoChange = errors.New("no change")
