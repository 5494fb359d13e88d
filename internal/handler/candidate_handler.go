package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/middleware"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/response"
	"github.com/stemsi/hireflow-backend/internal/service"
	"github.com/stemsi/hireflow-backend/internal/validator"
)

// CandidateHandler serves the candidate side of a session. The same handlers
// back both the logged-in candidate routes, where the session comes from the
// :id path parameter, and the token portal, where it comes from the resolved
// capability token.
type CandidateHandler struct {
	sessionService   *service.SessionService
	answerService    *service.AnswerService
	integrityService *service.IntegrityService
	log              zerolog.Logger
}

// NewCandidateHandler creates a new CandidateHandler.
func NewCandidateHandler(
	sessionService *service.SessionService,
	answerService *service.AnswerService,
	integrityService *service.IntegrityService,
	log zerolog.Logger,
) *CandidateHandler {
	return &CandidateHandler{
		sessionService:   sessionService,
		answerService:    answerService,
		integrityService: integrityService,
		log:              log.With().Str("component", "candidate_handler").Logger(),
	}
}

// target returns the acting principal and the session the request is about.
func (h *CandidateHandler) target(c *gin.Context) (*model.Actor, int64, bool) {
	actor := middleware.GetActor(c)
	if actor == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, 0, false
	}
	if summary := middleware.GetPortalSession(c); summary != nil {
		return actor, summary.SessionID, true
	}
	id, ok := paramID(c, "id")
	if !ok {
		return nil, 0, false
	}
	return actor, id, true
}

// ListSessions godoc
// GET /api/v1/candidate/sessions
// Returns every session of the authenticated candidate, results gated by visibility.
func (h *CandidateHandler) ListSessions(c *gin.Context) {
	views, err := h.sessionService.ListForCandidate(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": views})
}

// AssignSelf godoc
// POST /api/v1/candidate/tests/:test_id/assign
// Assigns a test to the authenticated candidate.
func (h *CandidateHandler) AssignSelf(c *gin.Context) {
	actor := middleware.GetActor(c)
	testID, ok := paramID(c, "test_id")
	if !ok {
		return
	}

	result, err := h.sessionService.Assign(c.Request.Context(), actor, service.AssignInput{
		CandidateID: *actor.CandidateID,
		TestID:      testID,
		Via:         model.AssignViaSelf,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// GetSession godoc
// GET /api/v1/candidate/sessions/:id
// Returns one session with its answers. Scores are hidden until released.
func (h *CandidateHandler) GetSession(c *gin.Context) {
	actor, sessionID, ok := h.target(c)
	if !ok {
		return
	}
	view, err := h.sessionService.GetForCandidate(c.Request.Context(), sessionID, actor)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// ResolveToken godoc
// GET /api/v1/portal/session
// Returns the session the capability token grants access to.
func (h *CandidateHandler) ResolveToken(c *gin.Context) {
	summary := middleware.GetPortalSession(c)
	if summary == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// Start godoc
// POST /api/v1/candidate/sessions/:id/start
// POST /api/v1/portal/session/start
// Starts the session timer and returns the question paper.
func (h *CandidateHandler) Start(c *gin.Context) {
	actor, sessionID, ok := h.target(c)
	if !ok {
		return
	}
	result, err := h.sessionService.Start(c.Request.Context(), sessionID, actor)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Paper godoc
// GET /api/v1/candidate/sessions/:id/paper
// GET /api/v1/portal/session/paper
// Returns the question paper of an IN_PROGRESS session.
func (h *CandidateHandler) Paper(c *gin.Context) {
	actor, sessionID, ok := h.target(c)
	if !ok {
		return
	}
	paper, err := h.sessionService.Paper(c.Request.Context(), sessionID, actor)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// SubmitAnswer godoc
// POST /api/v1/candidate/sessions/:id/answers
// POST /api/v1/portal/session/answers
// Stores the answer to one question, replacing any earlier one.
func (h *CandidateHandler) SubmitAnswer(c *gin.Context) {
	actor, sessionID, ok := h.target(c)
	if !ok {
		return
	}
	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.answerService.Submit(c.Request.Context(), sessionID, actor, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	response.Success(c, status, result)
}

// RecordIntegrity godoc
// POST /api/v1/candidate/sessions/:id/integrity
// POST /api/v1/portal/session/integrity
// Records an anti-cheating signal for an IN_PROGRESS session.
func (h *CandidateHandler) RecordIntegrity(c *gin.Context) {
	actor, sessionID, ok := h.target(c)
	if !ok {
		return
	}
	var req model.RecordIntegrityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	event, err := h.integrityService.Record(c.Request.Context(), sessionID, actor, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, event)
}

// Complete godoc
// POST /api/v1/candidate/sessions/:id/complete
// POST /api/v1/portal/session/complete
// Completes the session and scores it. The score is only shown once released.
func (h *CandidateHandler) Complete(c *gin.Context) {
	actor, sessionID, ok := h.target(c)
	if !ok {
		return
	}
	view, err := h.sessionService.Complete(c.Request.Context(), sessionID, actor)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}
