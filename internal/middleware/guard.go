package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/response"
	"github.com/stemsi/hireflow-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for the credential's embedded claims.
	ContextKeyClaims = "claims"
	// ContextKeyActor is the Gin context key for the actor's current attributes.
	ContextKeyActor = "actor"
)

// RequireFreshClaims runs the freshness guard on every request. Downstream
// handlers only ever see the actor as currently stored, never the copy
// embedded in the credential.
func RequireFreshClaims(guard *service.GuardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		decision, err := guard.Evaluate(c.Request.Context(), tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}

		switch decision.Outcome {
		case service.OutcomeFresh:
			c.Set(ContextKeyClaims, decision.Claims)
			c.Set(ContextKeyActor, decision.Actor)
			c.Next()
		case service.OutcomeNoCompanyAssigned:
			response.AbortFail(c, http.StatusForbidden, response.ErrNoCompanyAssigned)
		case service.OutcomeClaimsStale:
			response.AbortFailWithHint(c, http.StatusUnauthorized, response.ErrClaimsStale, "reauthenticate")
		default:
			response.AbortFail(c, http.StatusUnauthorized, response.ErrUnauthenticated)
		}
	}
}

// GetActor retrieves the current actor attached by RequireFreshClaims.
func GetActor(c *gin.Context) *model.Actor {
	val, exists := c.Get(ContextKeyActor)
	if !exists {
		return nil
	}
	actor, ok := val.(*model.Actor)
	if !ok {
		return nil
	}
	return actor
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Fallback for EventSource (SSE) which cannot send headers
	return c.Query("token")
}
