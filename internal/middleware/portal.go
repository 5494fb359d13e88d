package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/response"
	"github.com/stemsi/hireflow-backend/internal/service"
)

const (
	// HeaderAccessToken carries the test capability token on portal requests.
	HeaderAccessToken = "X-Access-Token"
	// ContextKeyPortalSession is the Gin context key for the resolved portal session.
	ContextKeyPortalSession = "portal_session"
)

// RequireAccessToken resolves the capability token of the candidate portal.
// Any resolution failure answers 404 so a caller cannot tell a wrong token
// from an expired one.
func RequireAccessToken(sessions *service.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderAccessToken)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		summary, err := sessions.ResolveByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				response.AbortFail(c, http.StatusNotFound, response.ErrNotFound)
				return
			}
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		c.Set(ContextKeyPortalSession, summary)
		c.Set(ContextKeyActor, service.PortalActor(summary))
		c.Next()
	}
}

// GetPortalSession retrieves the session resolved by RequireAccessToken.
func GetPortalSession(c *gin.Context) *model.SessionSummary {
	val, exists := c.Get(ContextKeyPortalSession)
	if !exists {
		return nil
	}
	summary, ok := val.(*model.SessionSummary)
	if !ok {
		return nil
	}
	return summary
}
