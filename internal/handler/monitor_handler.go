package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/middleware"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams a session's integrity signals to reviewers.
type MonitorHandler struct {
	rdb            *redis.Client
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler. rdb may be nil, in which
// case the stream only carries periodic refreshes.
func NewMonitorHandler(rdb *redis.Client, sessionService *service.SessionService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		sessionService: sessionService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorSessionSSE godoc
// GET /api/v1/recruiter/sessions/:id/monitor
func (h *MonitorHandler) MonitorSessionSSE(c *gin.Context) {
	sessionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor := middleware.GetActor(c)
	reqCtx := c.Request.Context()

	detail, err := h.sessionService.GetDetail(reqCtx, actor, sessionID)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	// 1. SSE headers
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 2. Initial snapshot
	c.SSEvent("message", gin.H{"type": "snapshot", "data": snapshotOf(detail)})
	c.Writer.Flush()
	if detail.EffectiveStatus != model.SessionStatusInProgress {
		// Nothing more can happen to a session that is not running.
		return
	}

	// 3. Subscribe to Redis Pub/Sub
	var ch <-chan *redis.Message
	if h.rdb != nil {
		pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.SessionIntegrityChannel(sessionID))
		defer pubsub.Close()
		ch = pubsub.Channel()
	}

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	sessionLog := h.log.With().Int64("session_id", sessionID).Int64("user_id", actor.UserID).Logger()
	sessionLog.Info().Msg("Reviewer attached to session monitor")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			sessionLog.Info().Msg("Reviewer detached from session monitor")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Forward the published event JSON as is.
			c.Writer.Write([]byte("data: {\"type\":\"integrity\",\"data\":"))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("}\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			if done := h.sendRefresh(c, reqCtx, actor, sessionID); done {
				return
			}

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendRefresh re-reads the session and reports whether the stream should end.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, actor *model.Actor, sessionID int64) bool {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	detail, err := h.sessionService.GetDetail(ctx, actor, sessionID)
	if err != nil {
		h.log.Warn().Err(err).Int64("session_id", sessionID).Msg("Failed to refresh monitored session")
		return false
	}

	c.SSEvent("message", gin.H{"type": "refresh", "data": snapshotOf(detail)})
	c.Writer.Flush()
	return detail.EffectiveStatus != model.SessionStatusInProgress
}

func snapshotOf(d *model.SessionDetail) gin.H {
	var signals int
	for _, e := range d.IntegrityEvents {
		signals += e.EventCount
	}
	return gin.H{
		"session_id":       d.Session.ID,
		"candidate_id":     d.Candidate.ID,
		"status":           d.EffectiveStatus,
		"start_time":       d.Session.StartTime,
		"end_time":         d.Session.EndTime,
		"total_questions":  len(d.Questions),
		"answered_count":   len(d.Answers),
		"total_signals":    signals,
		"integrity_events": d.IntegrityEvents,
	}
}
