package service

import (
	"time"

	"github.com/stemsi/hireflow-backend/internal/model"
)

// CandidateView builds the candidate-facing view of a session. Result and
// answers may be nil. The view is redacted unless the result is visible.
func CandidateView(s *model.TestSession, res *model.Result, answers []model.Answer, now time.Time) model.CandidateSessionView {
	status := s.EffectiveStatus(now)
	v := model.CandidateSessionView{
		SessionID: s.ID,
		TestID:    s.TestID,
		Status:    status,
		Completed: status == model.SessionStatusCompleted,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Visible:   s.IsResultVisible,
		Score:     s.Score,
	}
	if s.Status == model.SessionStatusCompleted {
		ps := s.PassingStatus
		v.PassingStatus = &ps
	}
	if res != nil {
		pct, passed := res.Percentage, res.Passed
		v.Percentage = &pct
		v.Passed = &passed
	}
	if answers != nil {
		v.Answers = make([]model.CandidateAnswerView, 0, len(answers))
		for _, a := range answers {
			v.Answers = append(v.Answers, model.CandidateAnswerView{
				QuestionID:        a.QuestionID,
				SelectedOptionIDs: a.SelectedOptionIDs,
				TextAnswer:        a.TextAnswer,
				IsCorrect:         a.IsCorrect,
				ScoreEarned:       a.ScoreEarned,
			})
		}
	}
	if !v.Visible {
		v = RedactForCandidate(v)
	}
	return v
}

// RedactForCandidate drops every scoring field from v, keeping status and
// the completion fact.
func RedactForCandidate(v model.CandidateSessionView) model.CandidateSessionView {
	v.Score = nil
	v.Percentage = nil
	v.Passed = nil
	v.PassingStatus = nil
	if v.Answers != nil {
		redacted := make([]model.CandidateAnswerView, len(v.Answers))
		for i, a := range v.Answers {
			a.IsCorrect = nil
			a.ScoreEarned = nil
			redacted[i] = a
		}
		v.Answers = redacted
	}
	return v
}
