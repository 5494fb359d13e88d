package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
)

// AssignInput describes a new session.
type AssignInput struct {
	CandidateID   int64
	TestID        int64
	ApplicationID *int64
	Via           model.AssignVia
}

// SessionService owns the test session lifecycle.
type SessionService struct {
	tx        repository.TxManager
	questions *QuestionSetService
	tokens    *AccessTokenService
	scoring   *ScoringService
	policy    *config.Policy
	now       func() time.Time
	log       zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	tx repository.TxManager,
	questions *QuestionSetService,
	tokens *AccessTokenService,
	scoring *ScoringService,
	policy *config.Policy,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		tx:        tx,
		questions: questions,
		tokens:    tokens,
		scoring:   scoring,
		policy:    policy,
		now:       time.Now,
		log:       log.With().Str("component", "session_service").Logger(),
	}
}

// Assign creates an ASSIGNED session. Token-based assignments also mint the
// capability token for the candidate portal.
func (s *SessionService) Assign(ctx context.Context, actor *model.Actor, in AssignInput) (*model.AssignResult, error) {
	var out *model.AssignResult
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		// Locking the candidate serialises concurrent assignments for it.
		candidate, err := repos.Candidates.GetForUpdate(ctx, in.CandidateID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCandidateNotFound
			}
			return fmt.Errorf("lock candidate: %w", err)
		}
		if !canAccessCandidate(s.policy, actor, candidate) {
			return ErrCandidateNotFound
		}

		test, err := repos.Tests.GetTest(ctx, in.TestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTestNotFound
			}
			return fmt.Errorf("get test: %w", err)
		}
		if !test.IsActive {
			return ErrTestInactive
		}

		if _, err := repos.Sessions.FindActive(ctx, in.CandidateID, in.TestID); err == nil {
			return ErrAlreadyActive
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find active session: %w", err)
		}

		session := &model.TestSession{
			CandidateID:   in.CandidateID,
			TestID:        in.TestID,
			ApplicationID: in.ApplicationID,
			Status:        model.SessionStatusAssigned,
			PassingStatus: model.PassingStatusPending,
		}
		result := &model.AssignResult{}
		if in.Via == model.AssignViaToken {
			token, expiry, err := s.tokens.Mint(in.CandidateID, in.TestID)
			if err != nil {
				return err
			}
			session.AccessToken = &token
			session.AccessTokenExpiry = &expiry
			result.Token = &token
			result.TokenExpiry = &expiry
		}

		if err := repos.Sessions.Create(ctx, session); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyActive
			}
			return fmt.Errorf("create session: %w", err)
		}
		result.Session = *session
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("session_id", out.Session.ID).
		Int64("candidate_id", in.CandidateID).
		Int64("test_id", in.TestID).
		Str("via", string(in.Via)).
		Msg("Session assigned")
	return out, nil
}

// ResolveByToken finds the open session a capability token grants access
// to. Every failure is ErrNotFound.
func (s *SessionService) ResolveByToken(ctx context.Context, token string) (*model.SessionSummary, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrNotFound
	}

	repos := s.tx.Repos()
	session, err := repos.Sessions.FindByAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find session by token: %w", err)
	}
	now := s.now()
	if session.CandidateID != claims.CandidateID || session.TestID != claims.TestID {
		return nil, ErrNotFound
	}
	if !session.Status.IsActive() {
		return nil, ErrNotFound
	}
	if session.AccessTokenExpiry == nil || !session.AccessTokenExpiry.After(now) {
		return nil, ErrNotFound
	}

	test, err := repos.Tests.GetTest(ctx, session.TestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get test: %w", err)
	}
	candidate, err := repos.Candidates.Get(ctx, session.CandidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	summary := &model.SessionSummary{
		SessionID: session.ID,
		Status:    session.EffectiveStatus(now),
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
		Test:      *test,
	}
	summary.Candidate.ID = candidate.ID
	summary.Candidate.Name = candidate.FullName()
	summary.Candidate.Email = candidate.Email
	return summary, nil
}

// PortalActor is the principal a resolved capability token acts as.
func PortalActor(summary *model.SessionSummary) *model.Actor {
	candidateID := summary.Candidate.ID
	return &model.Actor{Role: model.RoleCandidate, CandidateID: &candidateID, IsActive: true}
}

// Start moves an assigned session to IN_PROGRESS and fixes its deadline.
// Starting an IN_PROGRESS session returns it unchanged.
func (s *SessionService) Start(ctx context.Context, sessionID int64, actor *model.Actor) (*model.StartResult, error) {
	var (
		out     *model.StartResult
		started bool
		qs      *model.QuestionSet
	)
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		session, err := lockOwnedSession(ctx, repos, sessionID, actor)
		if err != nil {
			return err
		}

		qs, err = s.questions.Resolve(ctx, repos, session.TestID)
		if err != nil {
			return err
		}

		switch {
		case session.Status == model.SessionStatusInProgress:
		case session.Status.CanTransitionTo(model.SessionStatusInProgress):
			now := s.now()
			end := now.Add(time.Duration(qs.Test.DurationMinutes) * time.Minute)
			session.Status = model.SessionStatusInProgress
			session.StartTime = &now
			session.EndTime = &end
			if err := repos.Sessions.Update(ctx, session); err != nil {
				return fmt.Errorf("update session: %w", err)
			}
			started = true
		default:
			return ErrInvalidTransition
		}
		if session.StartTime == nil || session.EndTime == nil {
			return fmt.Errorf("session %d is in progress without a deadline", session.ID)
		}

		paper := Snapshot(qs)
		out = &model.StartResult{
			SessionID: session.ID,
			Status:    session.EffectiveStatus(s.now()),
			StartTime: *session.StartTime,
			EndTime:   *session.EndTime,
			Duration:  qs.Test.DurationMinutes,
			TestName:  qs.Test.Name,
			Questions: paper.Questions,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if started {
		s.questions.Warm(ctx, qs)
		s.log.Info().
			Int64("session_id", out.SessionID).
			Time("end_time", out.EndTime).
			Msg("Session started")
	}
	return out, nil
}

// Complete scores an IN_PROGRESS session and closes it. It is allowed after
// the deadline so an expired attempt can still be finalised.
func (s *SessionService) Complete(ctx context.Context, sessionID int64, actor *model.Actor) (*model.CandidateSessionView, error) {
	var view model.CandidateSessionView
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		session, err := lockOwnedSession(ctx, repos, sessionID, actor)
		if err != nil {
			return err
		}
		if !session.Status.CanTransitionTo(model.SessionStatusCompleted) {
			return ErrNotInProgress
		}

		res, _, err := s.scoring.scoreSession(ctx, repos, session, nil)
		if err != nil {
			return err
		}
		now := s.now()
		session.Status = model.SessionStatusCompleted
		session.EndTime = &now
		if err := repos.Sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		answers, err := repos.Answers.ListBySession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("list answers: %w", err)
		}
		view = CandidateView(session, res, answers, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("session_id", sessionID).Msg("Session completed")
	return &view, nil
}

// SetResultVisible toggles whether the candidate may see the result.
func (s *SessionService) SetResultVisible(ctx context.Context, actor *model.Actor, sessionID int64, visible bool) error {
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		session, err := lockSession(ctx, repos, sessionID)
		if err != nil {
			return err
		}
		if err := s.scoring.checkScope(ctx, repos, actor, session); err != nil {
			return err
		}
		return repos.Sessions.SetResultVisible(ctx, sessionID, visible)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("session_id", sessionID).Bool("visible", visible).Msg("Result visibility changed")
	return nil
}

// GetForCandidate returns the candidate's own view of a session.
func (s *SessionService) GetForCandidate(ctx context.Context, sessionID int64, actor *model.Actor) (*model.CandidateSessionView, error) {
	repos := s.tx.Repos()
	session, err := getOwnedSession(ctx, repos, sessionID, actor)
	if err != nil {
		return nil, err
	}
	res, err := repos.Results.GetBySession(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get result: %w", err)
		}
		res = nil
	}
	answers, err := repos.Answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	view := CandidateView(session, res, answers, s.now())
	return &view, nil
}

// ListForCandidate returns every session of the calling candidate.
func (s *SessionService) ListForCandidate(ctx context.Context, actor *model.Actor) ([]model.CandidateSessionView, error) {
	if actor == nil || actor.CandidateID == nil {
		return nil, ErrNotCandidate
	}
	repos := s.tx.Repos()
	sessions, err := repos.Sessions.ListByCandidate(ctx, *actor.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now()
	views := make([]model.CandidateSessionView, 0, len(sessions))
	for i := range sessions {
		var res *model.Result
		if sessions[i].Status == model.SessionStatusCompleted && sessions[i].IsResultVisible {
			res, err = repos.Results.GetBySession(ctx, sessions[i].ID)
			if err != nil {
				if !errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("get result: %w", err)
				}
				res = nil
			}
		}
		views = append(views, CandidateView(&sessions[i], res, nil, now))
	}
	return views, nil
}

// Paper returns the question snapshot of the caller's IN_PROGRESS session.
func (s *SessionService) Paper(ctx context.Context, sessionID int64, actor *model.Actor) (*model.TestPaper, error) {
	session, err := getOwnedSession(ctx, s.tx.Repos(), sessionID, actor)
	if err != nil {
		return nil, err
	}
	switch session.EffectiveStatus(s.now()) {
	case model.SessionStatusInProgress:
	case model.SessionStatusExpired:
		return nil, ErrExpired
	default:
		return nil, ErrNotInProgress
	}
	return s.questions.Paper(ctx, session.TestID)
}

// GetDetail returns the recruiter view of a session.
func (s *SessionService) GetDetail(ctx context.Context, actor *model.Actor, sessionID int64) (*model.SessionDetail, error) {
	repos := s.tx.Repos()
	session, err := repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	candidate, err := repos.Candidates.Get(ctx, session.CandidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if !canAccessCandidate(s.policy, actor, candidate) {
		return nil, ErrNotFound
	}

	qs, err := s.questions.Resolve(ctx, repos, session.TestID)
	if err != nil {
		return nil, err
	}
	answers, err := repos.Answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	events, err := repos.Integrity.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list integrity events: %w", err)
	}
	detail := &model.SessionDetail{
		Session:         *session,
		EffectiveStatus: session.EffectiveStatus(s.now()),
		Candidate:       *candidate,
		Questions:       qs.Questions,
		Answers:         answers,
		IntegrityEvents: events,
	}
	res, err := repos.Results.GetBySession(ctx, sessionID)
	switch {
	case err == nil:
		detail.Result = res
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("get result: %w", err)
	}
	return detail, nil
}

// List returns sessions visible to a recruiter.
func (s *SessionService) List(ctx context.Context, actor *model.Actor, f model.SessionFilter) ([]model.SessionListItem, int64, error) {
	items, total, err := s.tx.Repos().Sessions.List(ctx, scopeFilter(s.policy, actor, f))
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now()
	for i := range items {
		items[i].Status = items[i].EffectiveStatus(now)
	}
	return items, total, nil
}

// lockOwnedSession locks a session the actor owns. Sessions owned by
// someone else read as absent.
func lockOwnedSession(ctx context.Context, repos repository.Repos, sessionID int64, actor *model.Actor) (*model.TestSession, error) {
	session, err := lockSession(ctx, repos, sessionID)
	if err != nil {
		return nil, err
	}
	if actor == nil || !session.OwnedBy(actor.CandidateID) {
		return nil, ErrNotFound
	}
	return session, nil
}

func getOwnedSession(ctx context.Context, repos repository.Repos, sessionID int64, actor *model.Actor) (*model.TestSession, error) {
	session, err := repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if actor == nil || !session.OwnedBy(actor.CandidateID) {
		return nil, ErrNotFound
	}
	return session, nil
}
