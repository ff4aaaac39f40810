package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	ws "github.com/stemsi/exstem-assessment/internal/websocket"
)

// wsOpTimeout bounds one action's storage round trips.
const wsOpTimeout = 5 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams one category session over a WebSocket. Every action goes
// through the same engine as the HTTP endpoints.
type WSHandler struct {
	engine   SessionEngine
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(engine SessionEngine, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		engine:   engine,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// CategoryStream godoc
// WS /ws/v1/student/categories/:category_id/stream
// Sends the current snapshot on connect, then one snapshot per accepted
// answer or skip, and a finalized event when the session closes.
func (h *WSHandler) CategoryStream(c *gin.Context) {
	key, ok := middleware.StudentSessionKey(c)
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", key.StudentID).
		Str("exam_id", key.ExamID.String()).
		Int("category_id", key.CategoryID).
		Logger()

	// The session must already be entered over HTTP.
	if done := h.run(conn, key, func(ctx context.Context) (interface{}, error) {
		return h.engine.State(ctx, key)
	}); done {
		return
	}

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var done bool
		switch msg.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionState:
			done = h.run(conn, key, func(ctx context.Context) (interface{}, error) {
				return h.engine.State(ctx, key)
			})
		case ws.ActionAnswer, ws.ActionSkip:
			questionID, err := uuid.Parse(msg.QuestionID)
			if err != nil {
				_ = ws.WriteError(conn, string(response.ErrInvalidID), response.GetMessage(response.ErrInvalidID))
				continue
			}
			if msg.Action == ws.ActionAnswer && msg.OptionID == "" {
				_ = ws.WriteError(conn, string(response.ErrInvalidOption), response.GetMessage(response.ErrInvalidOption))
				continue
			}
			done = h.run(conn, key, func(ctx context.Context) (interface{}, error) {
				if msg.Action == ws.ActionSkip {
					return h.engine.Skip(ctx, key, questionID)
				}
				return h.engine.Answer(ctx, key, questionID, msg.OptionID)
			})
		case ws.ActionSubmit:
			ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
			out, err := h.engine.Submit(ctx, key)
			cancel()
			if err != nil {
				h.writeError(conn, err)
				continue
			}
			_ = ws.WriteTyped(conn, ws.FinalizedResponse{
				Event:            ws.EventFinalized,
				AlreadyFinalized: out.AlreadyFinalized,
				Result:           out.Result,
			})
			done = true
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}

		if done {
			wsLog.Info().Msg("Session closed, ending stream")
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finalized"),
				time.Now().Add(time.Second))
			return
		}
	}
}

// run executes a snapshot-producing action and writes its outcome. It reports
// true when the session is closed and the stream should end.
func (h *WSHandler) run(conn *websocket.Conn, key model.SessionKey, op func(ctx context.Context) (interface{}, error)) bool {
	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()

	snap, err := op(ctx)
	if err == nil {
		_ = ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Data: snap})
		return false
	}

	if errors.Is(err, service.ErrTimeUp) || errors.Is(err, service.ErrAlreadyCompleted) {
		res, rerr := h.engine.Result(ctx, key)
		if rerr == nil {
			_ = ws.WriteTyped(conn, ws.FinalizedResponse{Event: ws.EventFinalized, AlreadyFinalized: true, Result: res})
			return true
		}
	}

	h.writeError(conn, err)
	status, _ := classifySessionError(err)
	return status == http.StatusNotFound
}

func (h *WSHandler) writeError(conn *websocket.Conn, err error) {
	status, code := classifySessionError(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("WebSocket action failed")
	}
	_ = ws.WriteError(conn, string(code), response.GetMessage(code))
}
