package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/database"
	"github.com/stemsi/hireflow-backend/internal/handler"
	"github.com/stemsi/hireflow-backend/internal/logger"
	"github.com/stemsi/hireflow-backend/internal/repository"
	"github.com/stemsi/hireflow-backend/internal/router"
	"github.com/stemsi/hireflow-backend/internal/service"
	"github.com/stemsi/hireflow-backend/internal/validator"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting HireFlow Backend")

	policy, err := config.LoadPolicy(cfg.RBACPolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load RBAC policy")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	tx := repository.NewPgTxManager(pool)

	authService := service.NewAuthService(cfg, tx, log)
	guardService := service.NewGuardService(authService, tx, policy, log)
	tokenService := service.NewAccessTokenService(cfg)
	questionService := service.NewQuestionSetService(tx, rdb, cfg, log)
	scoringService := service.NewScoringService(tx, questionService, policy, cfg, log)
	sessionService := service.NewSessionService(tx, questionService, tokenService, scoringService, policy, log)
	answerService := service.NewAnswerService(tx, log)
	integrityService := service.NewIntegrityService(tx, rdb, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Candidate: handler.NewCandidateHandler(sessionService, answerService, integrityService, log),
		Recruiter: handler.NewRecruiterHandler(sessionService, scoringService, questionService, log),
		Monitor:   handler.NewMonitorHandler(rdb, sessionService, log),
		WS:        handler.NewWSHandler(sessionService, answerService, integrityService, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, router.Services{Guard: guardService, Sessions: sessionService}, handlers, policy, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down gracefully...")

		// Stop accepting new HTTP requests (5s timeout).
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
