package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

// sessionErrors maps engine outcomes to their HTTP status and code.
var sessionErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrAlreadyCompleted, http.StatusConflict, response.ErrCategoryCompleted},
	{service.ErrNotYetOpen, http.StatusForbidden, response.ErrExamNotYetOpen},
	{service.ErrWindowExpired, http.StatusForbidden, response.ErrExamWindowExpired},
	{service.ErrInsufficientQuestions, http.StatusUnprocessableEntity, response.ErrInsufficientQuestions},
	{service.ErrEmptyBudget, http.StatusUnprocessableEntity, response.ErrCategoryNotConfigured},
	{service.ErrStaleQuestion, http.StatusConflict, response.ErrStaleQuestion},
	{service.ErrTimeUp, http.StatusConflict, response.ErrSessionTimeUp},
	{service.ErrInvalidOption, http.StatusBadRequest, response.ErrInvalidOption},
	{service.ErrQuestionUnanswered, http.StatusConflict, response.ErrQuestionUnanswered},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrExamNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrCategoryNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrSessionBusy, http.StatusConflict, response.ErrSessionBusy},
}

// classifySessionError returns the status and code for err. Anything not
// listed is an internal error.
func classifySessionError(err error) (int, response.ErrCode) {
	for _, e := range sessionErrors {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failSession writes the error response for a session operation, logging
// only infrastructure failures.
func failSession(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classifySessionError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Session operation failed")
	}
	response.Fail(c, status, code)
}
