package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
)

// IntegrityService records anti-cheating signals. Repeats of one event type
// within the window are merged into a single counted record.
type IntegrityService struct {
	tx     repository.TxManager
	rdb    *redis.Client
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewIntegrityService creates a new IntegrityService. A nil rdb disables live publishing.
func NewIntegrityService(tx repository.TxManager, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *IntegrityService {
	return &IntegrityService{
		tx:     tx,
		rdb:    rdb,
		window: cfg.IntegrityWindow,
		now:    time.Now,
		log:    log.With().Str("component", "integrity_service").Logger(),
	}
}

// Record stores an event for the actor's IN_PROGRESS session. It runs in its
// own transaction so it never takes part in a lifecycle transition.
func (s *IntegrityService) Record(ctx context.Context, sessionID int64, actor *model.Actor, req model.RecordIntegrityRequest) (*model.IntegrityEvent, error) {
	if !req.EventType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEventType, req.EventType)
	}

	var event *model.IntegrityEvent
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		session, err := lockOwnedSession(ctx, repos, sessionID, actor)
		if err != nil {
			return err
		}
		now := s.now()
		if session.EffectiveStatus(now) != model.SessionStatusInProgress {
			return ErrNotInProgress
		}

		recent, err := repos.Integrity.FindRecent(ctx, sessionID, req.EventType, now.Add(-s.window))
		switch {
		case err == nil:
			if err := repos.Integrity.Bump(ctx, recent, now); err != nil {
				return fmt.Errorf("bump integrity event: %w", err)
			}
			event = recent
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("find recent integrity event: %w", err)
		}

		event = &model.IntegrityEvent{
			SessionID:  sessionID,
			EventType:  req.EventType,
			EventCount: 1,
			EventTime:  now,
			Details:    req.Details,
		}
		if err := repos.Integrity.Create(ctx, event); err != nil {
			return fmt.Errorf("create integrity event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event)
	return event, nil
}

// publish notifies live monitors. Failures are logged and dropped.
func (s *IntegrityService) publish(ctx context.Context, event *model.IntegrityEvent) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.log.Warn().Err(err).Int64("session_id", event.SessionID).Msg("Failed to encode integrity event")
		return
	}
	channel := config.CacheKey.SessionIntegrityChannel(event.SessionID)
	if err := s.rdb.Publish(ctx, channel, data).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish integrity event")
	}
}
