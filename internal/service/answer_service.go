package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
)

// AnswerService stores candidate answers and grades closed-form questions.
type AnswerService struct {
	tx  repository.TxManager
	now func() time.Time
	log zerolog.Logger
}

// NewAnswerService creates a new AnswerService.
func NewAnswerService(tx repository.TxManager, log zerolog.Logger) *AnswerService {
	return &AnswerService{
		tx:  tx,
		now: time.Now,
		log: log.With().Str("component", "answer_service").Logger(),
	}
}

// Submit stores the answer to one question, replacing any earlier answer to
// it. It never touches the session or its result.
func (s *AnswerService) Submit(ctx context.Context, sessionID int64, actor *model.Actor, req model.SubmitAnswerRequest) (*model.SubmitResult, error) {
	var out *model.SubmitResult
	err := s.tx.InTx(ctx, func(repos repository.Repos) error {
		session, err := lockOwnedSession(ctx, repos, sessionID, actor)
		if err != nil {
			return err
		}
		if session.Status != model.SessionStatusInProgress {
			return ErrNotInProgress
		}
		now := s.now()
		if session.DeadlinePassed(now) {
			return ErrExpired
		}

		question, err := repos.Tests.GetQuestion(ctx, session.TestID, req.QuestionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("get question: %w", err)
		}

		answer := &model.Answer{
			SessionID:   session.ID,
			QuestionID:  question.ID,
			SubmittedAt: now,
		}
		if question.Type.IsChoice() {
			answer.SelectedOptionIDs = req.OptionIDs()
			correct := GradeChoice(&question.Question, answer.SelectedOptionIDs)
			answer.IsCorrect = &correct
		} else {
			answer.TextAnswer = req.TextAnswer
		}

		created, err := repos.Answers.Upsert(ctx, answer)
		if err != nil {
			return fmt.Errorf("upsert answer: %w", err)
		}
		out = &model.SubmitResult{AnswerID: answer.ID, IsCorrect: answer.IsCorrect, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().
		Int64("session_id", sessionID).
		Int64("question_id", req.QuestionID).
		Bool("created", out.Created).
		Msg("Answer stored")
	return out, nil
}

// GradeChoice reports whether selected is exactly the set of correct options
// of q. An empty selection or an id that is not an option of q is wrong.
func GradeChoice(q *model.Question, selected []int64) bool {
	if len(selected) == 0 {
		return false
	}
	correct := make(map[int64]bool, len(q.Options))
	for _, o := range q.Options {
		correct[o.ID] = o.IsCorrect
	}

	seen := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		isCorrect, ok := correct[id]
		if !ok || !isCorrect {
			return false
		}
		seen[id] = struct{}{}
	}
	for id, isCorrect := range correct {
		if _, ok := seen[id]; isCorrect && !ok {
			return false
		}
	}
	if q.Type == model.QuestionTypeSingleChoice && len(seen) != 1 {
		return false
	}
	return true
}
