package model

import (
	"time"

	"github.com/google/uuid"
)

// Student is a candidate enrolled in exactly one exam.
type Student struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	ExamID       uuid.UUID `json:"exam_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// AnswerRequest records an option for the current question.
type AnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	OptionID   string `json:"option_id" binding:"required,optionid"`
}

// SkipRequest explicitly skips the current question.
type SkipRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}
