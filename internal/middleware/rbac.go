package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/response"
)

// RequirePermission checks that the current actor's role holds permissionCode.
func RequirePermission(policy *config.Policy, permissionCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if !policy.Allows(actor.Role, permissionCode) {
			response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}

// RequireCandidate admits only actors linked to a candidate record.
func RequireCandidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := GetActor(c)
		if actor == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if actor.CandidateID == nil {
			response.AbortFail(c, http.StatusForbidden, response.ErrCandidateAccessOnly)
			return
		}
		c.Next()
	}
}
