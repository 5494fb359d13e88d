package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/handler"
	"github.com/stemsi/hireflow-backend/internal/middleware"
	"github.com/stemsi/hireflow-backend/internal/response"
	"github.com/stemsi/hireflow-backend/internal/service"
)

// Permission codes checked by the RBAC policy.
const (
	PermTestAssign = "test_assign"
	PermTestView   = "test_view"
	PermTestReview = "test_review"
	PermTestTake   = "test_take"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Candidate *handler.CandidateHandler
	Recruiter *handler.RecruiterHandler
	Monitor   *handler.MonitorHandler
	WS        *handler.WSHandler
}

// Services are the services middlewares need.
type Services struct {
	Guard    *service.GuardService
	Sessions *service.SessionService
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work started by middlewares.
func SetupRouter(
	ctx context.Context,
	services Services,
	handlers *Handlers,
	policy *config.Policy,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderAccessToken}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Login and the token portal are reachable without an account, so both
	// are rate limited per client.
	authLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)
	portalLimiter := middleware.NewRateLimiter(ctx, 120, time.Minute)
	fresh := middleware.RequireFreshClaims(services.Guard)
	portal := middleware.RequireAccessToken(services.Sessions)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", fresh, handlers.Auth.Me)
	}

	// ─── 2. Candidate Group (JWT + RBAC + candidate link) ──────────────
	candidateAPI := router.Group("/api/v1/candidate")
	candidateAPI.Use(fresh, middleware.RequirePermission(policy, PermTestTake), middleware.RequireCandidate())
	{
		candidateAPI.GET("/sessions", handlers.Candidate.ListSessions)
		candidateAPI.POST("/tests/:test_id/assign", handlers.Candidate.AssignSelf)
		candidateAPI.GET("/sessions/:id", handlers.Candidate.GetSession)
		candidateAPI.POST("/sessions/:id/start", handlers.Candidate.Start)
		candidateAPI.GET("/sessions/:id/paper", handlers.Candidate.Paper)
		candidateAPI.POST("/sessions/:id/answers", handlers.Candidate.SubmitAnswer)
		candidateAPI.POST("/sessions/:id/integrity", handlers.Candidate.RecordIntegrity)
		candidateAPI.POST("/sessions/:id/complete", handlers.Candidate.Complete)
	}

	// ─── 3. Portal Group (capability token) ────────────────────────────
	portalAPI := router.Group("/api/v1/portal")
	portalAPI.Use(portalLimiter.Middleware(), portal)
	{
		portalAPI.GET("/session", handlers.Candidate.ResolveToken)
		portalAPI.POST("/session/start", handlers.Candidate.Start)
		portalAPI.GET("/session/paper", handlers.Candidate.Paper)
		portalAPI.POST("/session/answers", handlers.Candidate.SubmitAnswer)
		portalAPI.POST("/session/integrity", handlers.Candidate.RecordIntegrity)
		portalAPI.POST("/session/complete", handlers.Candidate.Complete)
	}

	// ─── 4. WebSocket Group (capability token via ?token=) ─────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(portalLimiter.Middleware(), portal)
	{
		wsGroup.GET("/portal/session", handlers.WS.PortalSessionStream)
	}

	// ─── 5. Recruiter Group (JWT + RBAC) ───────────────────────────────
	recruiterAPI := router.Group("/api/v1/recruiter")
	recruiterAPI.Use(fresh)
	{
		recruiterAPI.GET("/sessions",
			middleware.RequirePermission(policy, PermTestView),
			handlers.Recruiter.ListSessions,
		)
		recruiterAPI.POST("/sessions",
			middleware.RequirePermission(policy, PermTestAssign),
			handlers.Recruiter.AssignSession,
		)
		recruiterAPI.GET("/sessions/:id",
			middleware.RequirePermission(policy, PermTestView),
			handlers.Recruiter.GetSession,
		)
		recruiterAPI.GET("/sessions/:id/monitor",
			middleware.RequirePermission(policy, PermTestView),
			handlers.Monitor.MonitorSessionSSE,
		)
		recruiterAPI.PUT("/sessions/:id/review",
			middleware.RequirePermission(policy, PermTestReview),
			handlers.Recruiter.ReviewSession,
		)
		recruiterAPI.POST("/sessions/:id/score",
			middleware.RequirePermission(policy, PermTestReview),
			handlers.Recruiter.ScoreSession,
		)
		recruiterAPI.PUT("/sessions/:id/visibility",
			middleware.RequirePermission(policy, PermTestReview),
			handlers.Recruiter.SetVisibility,
		)
		recruiterAPI.POST("/tests/:test_id/refresh-cache",
			middleware.RequirePermission(policy, PermTestAssign),
			handlers.Recruiter.RefreshPaper,
		)
	}

	return router
}
