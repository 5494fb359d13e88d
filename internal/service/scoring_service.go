package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
)

// Score is the outcome of one scoring pass.
type Score struct {
	Total      float64
	Max        float64
	Percentage float64
	Pending    bool
	Threshold  int
	Status     model.PassingStatus
}

// Compute scores answers against qs. A free-form question without a human
// ruling keeps the whole session PENDING. Absent answers earn nothing.
func Compute(qs *model.QuestionSet, answers []model.Answer, defaultThreshold int) Score {
	byQuestion := make(map[int64]*model.Answer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	sc := Score{Threshold: qs.Test.PassingThreshold(defaultThreshold)}
	for _, q := range qs.Questions {
		weight := float64(q.Weight)
		sc.Max += weight

		a := byQuestion[q.ID]
		if a != nil {
			switch {
			case a.ScoreEarned != nil && *a.ScoreEarned > 0:
				sc.Total += weight * *a.ScoreEarned / 100
			case a.IsCorrect != nil && *a.IsCorrect:
				sc.Total += weight
			}
		}
		if q.Type.IsFreeForm() && (a == nil || !a.IsGraded()) {
			sc.Pending = true
		}
	}

	if sc.Max > 0 {
		sc.Percentage = math.Round(sc.Total/sc.Max*100*100) / 100
	}
	switch {
	case sc.Pending:
		sc.Status = model.PassingStatusPending
	case sc.Percentage >= float64(sc.Threshold):
		sc.Status = model.PassingStatusPassed
	default:
		sc.Status = model.PassingStatusFailed
	}
	return sc
}

// ScoringService persists scoring passes and applies recruiter reviews.
type ScoringService struct {
	tx        repository.TxManager
	questions *QuestionSetService
	policy    *config.Policy
	threshold int
	now       func() time.Time
	log       zerolog.Logger
}

// NewScoringService creates a new ScoringService.
func NewScoringService(tx repository.TxManager, questions *QuestionSetService, policy *config.Policy, cfg *config.Config, log zerolog.Logger) *ScoringService {
	return &ScoringService{
		tx:        tx,
		questions: questions,
		policy:    policy,
		threshold: cfg.DefaultPassingScore,
		now:       time.Now,
		log:       log.With().Str("component", "scoring_service").Logger(),
	}
}

// resultNotes carries reviewer fields to write with a scoring pass. Nil
// fields keep what the stored result already has.
type resultNotes struct {
	StrengthAreas    *string
	ImprovementAreas *string
	Feedback         *string
	ReviewedBy       *int64
	ReviewedAt       *time.Time
}

// scoreSession recomputes the result of session inside repos' transaction,
// upserts the single Result row and copies score and verdict onto session.
// The caller persists session.
func (s *ScoringService) scoreSession(ctx context.Context, repos repository.Repos, session *model.TestSession, notes *resultNotes) (*model.Result, Score, error) {
	qs, err := s.questions.Resolve(ctx, repos, session.TestID)
	if err != nil {
		return nil, Score{}, err
	}
	answers, err := repos.Answers.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, Score{}, fmt.Errorf("list answers: %w", err)
	}
	sc := Compute(qs, answers, s.threshold)

	res, err := repos.Results.GetBySession(ctx, session.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, Score{}, fmt.Errorf("get result: %w", err)
		}
		res = &model.Result{SessionID: session.ID}
	}
	res.TotalScore = sc.Total
	res.MaxPossibleScore = sc.Max
	res.Percentage = sc.Percentage
	res.Passed = sc.Status == model.PassingStatusPassed
	if notes != nil {
		if notes.StrengthAreas != nil {
			res.StrengthAreas = notes.StrengthAreas
		}
		if notes.ImprovementAreas != nil {
			res.ImprovementAreas = notes.ImprovementAreas
		}
		if notes.Feedback != nil {
			res.Feedback = notes.Feedback
		}
		if notes.ReviewedBy != nil {
			res.ReviewedBy = notes.ReviewedBy
			res.ReviewedAt = notes.ReviewedAt
		}
	}
	if err := repos.Results.Upsert(ctx, res); err != nil {
		return nil, Score{}, fmt.Errorf("upsert result: %w", err)
	}

	rounded := int(math.Round(sc.Percentage))
	session.Score = &rounded
	session.PassingStatus = sc.Status
	return res, sc, nil
}

// Score recomputes and stores the result of a completed session without changing its status.
func (s *ScoringService) Score(ctx context.Context, actor *model.Actor, sessionID int64) (*model.Result, error) {
	var result *model.Result
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		session, err := lockSession(ctx, repos, sessionID)
		if err != nil {
			return err
		}
		if err := s.checkScope(ctx, repos, actor, session); err != nil {
			return err
		}
		if session.Status != model.SessionStatusCompleted {
			return ErrSessionNotCompletedYet
		}
		res, _, err := s.scoreSession(ctx, repos, session, nil)
		if err != nil {
			return err
		}
		if err := repos.Sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Review applies reviewer corrections to a completed session and fully
// rescores it. Either every write lands or none does.
func (s *ScoringService) Review(ctx context.Context, actor *model.Actor, sessionID int64, req model.ReviewRequest) (*model.ReviewResult, error) {
	var out *model.ReviewResult
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		session, err := lockSession(ctx, repos, sessionID)
		if err != nil {
			return err
		}
		if err := s.checkScope(ctx, repos, actor, session); err != nil {
			return err
		}
		if session.Status != model.SessionStatusCompleted {
			return ErrSessionNotCompletedYet
		}

		now := s.now()
		for _, c := range req.Answers {
			if err := s.applyCorrection(ctx, repos, session, actor.UserID, c, now); err != nil {
				return err
			}
		}

		reviewer := actor.UserID
		_, sc, err := s.scoreSession(ctx, repos, session, &resultNotes{
			StrengthAreas:    req.StrengthAreas,
			ImprovementAreas: req.ImprovementAreas,
			Feedback:         req.Feedback,
			ReviewedBy:       &reviewer,
			ReviewedAt:       &now,
		})
		if err != nil {
			return err
		}
		if err := repos.Sessions.Update(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}

		out = &model.ReviewResult{
			Score:         *session.Score,
			Percentage:    sc.Percentage,
			Passed:        sc.Status == model.PassingStatusPassed,
			PassingStatus: sc.Status,
			PassingScore:  sc.Threshold,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("session_id", sessionID).
		Int64("reviewer_id", actor.UserID).
		Int("corrections", len(req.Answers)).
		Str("passing_status", string(out.PassingStatus)).
		Msg("Session reviewed")
	return out, nil
}

func (s *ScoringService) applyCorrection(ctx context.Context, repos repository.Repos, session *model.TestSession, reviewerID int64, c model.AnswerCorrection, now time.Time) error {
	var answer *model.Answer
	switch {
	case c.AnswerID != nil:
		a, err := repos.Answers.Get(ctx, *c.AnswerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get answer: %w", err)
		}
		if a.SessionID != session.ID {
			return ErrNotFound
		}
		answer = a
	case c.QuestionID != nil:
		if _, err := repos.Tests.GetQuestion(ctx, session.TestID, *c.QuestionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get question: %w", err)
		}
		a, err := repos.Answers.GetByQuestion(ctx, session.ID, *c.QuestionID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("get answer: %w", err)
		}
		answer = a
	default:
		return ErrNotFound
	}

	reviewed := now
	if answer == nil {
		// The candidate never answered; record the reviewer's ruling as the answer.
		answer = &model.Answer{
			SessionID:   session.ID,
			QuestionID:  *c.QuestionID,
			IsCorrect:   c.IsCorrect,
			ScoreEarned: c.Score,
			ReviewerID:  &reviewerID,
			ReviewedAt:  &reviewed,
			SubmittedAt: now,
		}
		if _, err := repos.Answers.Upsert(ctx, answer); err != nil {
			return fmt.Errorf("create graded answer: %w", err)
		}
		return nil
	}

	if c.IsCorrect != nil {
		answer.IsCorrect = c.IsCorrect
	}
	if c.Score != nil {
		answer.ScoreEarned = c.Score
	}
	answer.ReviewerID = &reviewerID
	answer.ReviewedAt = &reviewed
	if err := repos.Answers.ApplyGrade(ctx, answer); err != nil {
		return fmt.Errorf("grade answer: %w", err)
	}
	return nil
}

func (s *ScoringService) checkScope(ctx context.Context, repos repository.Repos, actor *model.Actor, session *model.TestSession) error {
	candidate, err := repos.Candidates.Get(ctx, session.CandidateID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get candidate: %w", err)
	}
	if !canAccessCandidate(s.policy, actor, candidate) {
		return ErrNotFound
	}
	return nil
}

// lockSession loads and locks a session, mapping absence to ErrNotFound.
func lockSession(ctx context.Context, repos repository.Repos, sessionID int64) (*model.TestSession, error) {
	session, err := repos.Sessions.GetForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return session, nil
}
