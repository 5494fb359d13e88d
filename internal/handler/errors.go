package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/response"
	"github.com/stemsi/hireflow-backend/internal/service"
)

type errorMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// serviceErrors maps service sentinels to their HTTP representation.
// Anything not listed is a storage or programming error and becomes a 500.
var serviceErrors = []errorMapping{
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrCandidateNotFound, http.StatusNotFound, response.ErrCandidateNotFound},
	{service.ErrTestNotFound, http.StatusNotFound, response.ErrTestNotFound},
	{service.ErrTestInactive, http.StatusUnprocessableEntity, response.ErrTestInactive},
	{service.ErrAlreadyActive, http.StatusConflict, response.ErrAlreadyActive},
	{service.ErrInvalidTransition, http.StatusConflict, response.ErrInvalidTransition},
	{service.ErrExpired, http.StatusGone, response.ErrSessionExpired},
	{service.ErrNotInProgress, http.StatusConflict, response.ErrNotInProgress},
	{service.ErrSessionNotCompletedYet, http.StatusConflict, response.ErrSessionNotCompletedYet},
	{service.ErrInvalidEventType, http.StatusBadRequest, response.ErrValidation},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrUnauthenticated, http.StatusUnauthorized, response.ErrUnauthenticated},
	{service.ErrNoCompanyAssigned, http.StatusForbidden, response.ErrNoCompanyAssigned},
	{service.ErrClaimsStale, http.StatusUnauthorized, response.ErrClaimsStale},
	{service.ErrNotCandidate, http.StatusForbidden, response.ErrCandidateAccessOnly},
}

// statusFor resolves err against serviceErrors.
func statusFor(err error) (int, response.ErrCode) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// fail writes the error response for a service error. Unmapped errors are
// logged with the request id before being hidden behind INTERNAL_ERROR.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", response.RequestID(c)).
			Str("route", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}
