package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/middleware"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/response"
	"github.com/stemsi/hireflow-backend/internal/service"
	"github.com/stemsi/hireflow-backend/internal/validator"
)

const maxPerPage = 100

// RecruiterHandler serves session assignment, review and result release.
type RecruiterHandler struct {
	sessionService  *service.SessionService
	scoringService  *service.ScoringService
	questionService *service.QuestionSetService
	log             zerolog.Logger
}

// NewRecruiterHandler creates a new RecruiterHandler.
func NewRecruiterHandler(
	sessionService *service.SessionService,
	scoringService *service.ScoringService,
	questionService *service.QuestionSetService,
	log zerolog.Logger,
) *RecruiterHandler {
	return &RecruiterHandler{
		sessionService:  sessionService,
		scoringService:  scoringService,
		questionService: questionService,
		log:             log.With().Str("component", "recruiter_handler").Logger(),
	}
}

// ListSessions godoc
// GET /api/v1/recruiter/sessions?candidate_id=&test_id=&status=&page=&per_page=
// Company-scoped recruiters only see sessions of their own company's candidates.
func (h *RecruiterHandler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = 20
	}

	filter := model.SessionFilter{Page: page, PerPage: perPage}
	for _, q := range []struct {
		name string
		dst  **int64
	}{
		{"candidate_id", &filter.CandidateID},
		{"test_id", &filter.TestID},
	} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		*q.dst = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := model.SessionStatus(raw)
		if !status.Valid() {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"status": "status must be one of PENDING ASSIGNED IN_PROGRESS COMPLETED EXPIRED",
			})
			return
		}
		filter.Status = &status
	}

	items, total, err := h.sessionService.List(c.Request.Context(), middleware.GetActor(c), filter)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if items == nil {
		items = []model.SessionListItem{}
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": items}, response.NewPagination(page, perPage, total))
}

// GetSession godoc
// GET /api/v1/recruiter/sessions/:id
// Returns the session with questions, answers, result and integrity log.
func (h *RecruiterHandler) GetSession(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.sessionService.GetDetail(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}

// AssignSession godoc
// POST /api/v1/recruiter/sessions
// Assigns a test to a candidate and returns the portal capability token.
func (h *RecruiterHandler) AssignSession(c *gin.Context) {
	var req model.AssignSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.Assign(c.Request.Context(), middleware.GetActor(c), service.AssignInput{
		CandidateID:   req.CandidateID,
		TestID:        req.TestID,
		ApplicationID: req.ApplicationID,
		Via:           model.AssignViaToken,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// ReviewSession godoc
// PUT /api/v1/recruiter/sessions/:id/review
// Applies answer corrections and reviewer notes, then rescores.
func (h *RecruiterHandler) ReviewSession(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.ReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.scoringService.Review(c.Request.Context(), middleware.GetActor(c), id, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// ScoreSession godoc
// POST /api/v1/recruiter/sessions/:id/score
// Recomputes the result of a completed session from its current answers.
func (h *RecruiterHandler) ScoreSession(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := h.scoringService.Score(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// SetVisibility godoc
// PUT /api/v1/recruiter/sessions/:id/visibility
// Releases or withholds the result from the candidate.
func (h *RecruiterHandler) SetVisibility(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req model.SetVisibilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.SetResultVisible(c.Request.Context(), middleware.GetActor(c), id, *req.Visible); err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session_id": id, "is_result_visible": *req.Visible})
}

// RefreshPaper godoc
// POST /api/v1/recruiter/tests/:test_id/refresh-cache
// Rebuilds the cached question paper after a test's questions changed.
func (h *RecruiterHandler) RefreshPaper(c *gin.Context) {
	testID, ok := paramID(c, "test_id")
	if !ok {
		return
	}
	paper, err := h.questionService.RefreshPaper(c.Request.Context(), testID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"test_id":   paper.TestID,
		"questions": len(paper.Questions),
	})
}
