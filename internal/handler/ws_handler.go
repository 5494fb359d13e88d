package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/middleware"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/response"
	"github.com/stemsi/hireflow-backend/internal/service"
	"github.com/stemsi/hireflow-backend/internal/validator"
	ws "github.com/stemsi/hireflow-backend/internal/websocket"
)

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

// WSHandler carries a portal session over one WebSocket connection.
type WSHandler struct {
	sessionService   *service.SessionService
	answerService    *service.AnswerService
	integrityService *service.IntegrityService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	sessionService *service.SessionService,
	answerService *service.AnswerService,
	integrityService *service.IntegrityService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		sessionService:   sessionService,
		answerService:    answerService,
		integrityService: integrityService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// PortalSessionStream godoc
// WS /ws/v1/portal/session?token=
// Upgrades to WebSocket for answers, integrity signals and completion.
// Every action goes through the same services as the REST routes.
func (h *WSHandler) PortalSessionStream(c *gin.Context) {
	summary := middleware.GetPortalSession(c)
	actor := middleware.GetActor(c)
	if summary == nil || actor == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	sessionID := summary.SessionID
	wsLog := h.log.With().
		Int64("session_id", sessionID).
		Int64("candidate_id", summary.Candidate.ID).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	// The request context dies with the upgraded handler, so actions run
	// on a context detached from it.
	ctx := context.WithoutCancel(c.Request.Context())

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

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(ctx, conn, wsLog, sessionID, actor, msg.Data)
		case ws.ActionIntegrity:
			h.handleIntegrity(ctx, conn, wsLog, sessionID, actor, msg.Data)
		case ws.ActionComplete:
			if done := h.handleComplete(ctx, conn, wsLog, sessionID, actor); done {
				return
			}
		case ws.ActionPing:
			ws.WriteEvent(conn, ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID int64, actor *model.Actor, data json.RawMessage) {
	var req ws.AnswerRequest
	if !decodeFrame(conn, data, &req) {
		return
	}
	result, err := h.answerService.Submit(ctx, sessionID, actor, req)
	if err != nil {
		writeServiceError(conn, wsLog, err)
		return
	}
	ws.WriteEvent(conn, ws.EventSaved, result)
}

func (h *WSHandler) handleIntegrity(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID int64, actor *model.Actor, data json.RawMessage) {
	var req ws.IntegrityRequest
	if !decodeFrame(conn, data, &req) {
		return
	}
	event, err := h.integrityService.Record(ctx, sessionID, actor, req)
	if err != nil {
		writeServiceError(conn, wsLog, err)
		return
	}
	ws.WriteEvent(conn, ws.EventRecorded, event)
}

// handleComplete reports whether the connection should close.
func (h *WSHandler) handleComplete(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID int64, actor *model.Actor) bool {
	view, err := h.sessionService.Complete(ctx, sessionID, actor)
	if err != nil {
		writeServiceError(conn, wsLog, err)
		return false
	}
	wsLog.Info().Msg("Session completed over WebSocket")
	ws.WriteEvent(conn, ws.EventCompleted, view)
	return true
}

func decodeFrame(conn *websocket.Conn, data json.RawMessage, dst interface{}) bool {
	if len(data) == 0 {
		ws.WriteError(conn, string(response.ErrInvalidPayload), "data is required")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		ws.WriteError(conn, string(response.ErrInvalidPayload), "malformed data")
		return false
	}
	if fields := validator.Struct(dst); fields != nil {
		for field, msg := range fields {
			ws.WriteError(conn, string(response.ErrValidation), field+": "+msg)
			return false
		}
	}
	return true
}

func writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		wsLog.Error().Err(err).Msg("WebSocket action failed")
	}
	ws.WriteError(conn, string(code), response.GetMessage(code))
}
