package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// SessionEngine is the exam-taking surface the student endpoints drive.
// *service.ExamSessionService implements it.
type SessionEngine interface {
	GetLobby(ctx context.Context, studentID int, examID uuid.UUID) (*service.Lobby, error)
	Enter(ctx context.Context, key model.SessionKey) (*service.SessionSnapshot, error)
	State(ctx context.Context, key model.SessionKey) (*service.SessionSnapshot, error)
	Answer(ctx context.Context, key model.SessionKey, questionID uuid.UUID, optionID string) (*service.SessionSnapshot, error)
	Skip(ctx context.Context, key model.SessionKey, questionID uuid.UUID) (*service.SessionSnapshot, error)
	Submit(ctx context.Context, key model.SessionKey) (*service.FinalizeOutcome, error)
	Result(ctx context.Context, key model.SessionKey) (*model.ExamResult, error)
}

// StudentPortalHandler handles student-facing endpoints (lobby, category sessions).
type StudentPortalHandler struct {
	engine SessionEngine
	log    zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(engine SessionEngine, log zerolog.Logger) *StudentPortalHandler {
	return &StudentPortalHandler{
		engine: engine,
		log:    log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// GetLobby godoc
// GET /api/v1/student/categories
// Returns the categories of the student's exam and their status.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, err := claims.StudentExamID()
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	lobby, err := h.engine.GetLobby(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failSession(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, lobby)
}

// EnterCategory godoc
// POST /api/v1/student/categories/:category_id/enter
// Starts the category on first entry and resumes it afterwards.
func (h *StudentPortalHandler) EnterCategory(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	snap, err := h.engine.Enter(c.Request.Context(), key)
	if err != nil {
		failSession(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// GetState godoc
// GET /api/v1/student/categories/:category_id/state
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	snap, err := h.engine.State(c.Request.Context(), key)
	if err != nil {
		failSession(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// Answer godoc
// POST /api/v1/student/categories/:category_id/answer
// Records an option for the current question and advances to the next one.
func (h *StudentPortalHandler) Answer(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, err := h.engine.Answer(c.Request.Context(), key, questionID, req.OptionID)
	if err != nil {
		failSession(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// Skip godoc
// POST /api/v1/student/categories/:category_id/skip
func (h *StudentPortalHandler) Skip(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	var req model.SkipRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snap, err := h.engine.Skip(c.Request.Context(), key, questionID)
	if err != nil {
		failSession(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// Submit godoc
// POST /api/v1/student/categories/:category_id/submit
// Finalizes the session. Submitting an already finalized session returns the
// existing result with already_finalized set.
func (h *StudentPortalHandler) Submit(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	out, err := h.engine.Submit(c.Request.Context(), key)
	if err != nil {
		failSession(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// GetResult godoc
// GET /api/v1/student/categories/:category_id/result
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	key, ok := h.sessionKey(c)
	if !ok {
		return
	}

	res, err := h.engine.Result(c.Request.Context(), key)
	if err != nil {
		if status, _ := classifySessionError(err); status == http.StatusNotFound {
			response.Fail(c, http.StatusNotFound, response.ErrResultNotFound)
			return
		}
		failSession(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// sessionKey resolves the session key or writes the failure response.
func (h *StudentPortalHandler) sessionKey(c *gin.Context) (model.SessionKey, bool) {
	if middleware.GetClaims(c) == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return model.SessionKey{}, false
	}
	key, ok := middleware.StudentSessionKey(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return model.SessionKey{}, false
	}
	return key, true
}
