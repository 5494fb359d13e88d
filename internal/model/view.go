package model

import "time"

// CandidateAnswerView is an answer as shown to its candidate.
type CandidateAnswerView struct {
	QuestionID        int64    `json:"question_id"`
	SelectedOptionIDs []int64  `json:"selected_option_ids,omitempty"`
	TextAnswer        *string  `json:"text_answer,omitempty"`
	IsCorrect         *bool    `json:"is_correct,omitempty"`
	ScoreEarned       *float64 `json:"score_earned,omitempty"`
}

// CandidateSessionView is every candidate-facing read of a session. The
// score fields are nil whenever the result is not visible.
type CandidateSessionView struct {
	SessionID     int64                 `json:"session_id"`
	TestID        int64                 `json:"test_id"`
	Status        SessionStatus         `json:"status"`
	Completed     bool                  `json:"completed"`
	StartTime     *time.Time            `json:"start_time,omitempty"`
	EndTime       *time.Time            `json:"end_time,omitempty"`
	Visible       bool                  `json:"visible"`
	Score         *int                  `json:"score,omitempty"`
	Percentage    *float64              `json:"percentage,omitempty"`
	Passed        *bool                 `json:"passed,omitempty"`
	PassingStatus *PassingStatus        `json:"passing_status,omitempty"`
	Answers       []CandidateAnswerView `json:"answers,omitempty"`
}

// StartResult is returned by start: the deadline plus the question snapshot.
type StartResult struct {
	SessionID int64                  `json:"session_id"`
	Status    SessionStatus          `json:"status"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  int                    `json:"duration_minutes"`
	TestName  string                 `json:"test_name"`
	Questions []QuestionForCandidate `json:"questions"`
}

// AssignResult is returned by assign. Token is only set for portal assignments.
type AssignResult struct {
	Session     TestSession `json:"session"`
	Token       *string     `json:"access_token,omitempty"`
	TokenExpiry *time.Time  `json:"access_token_expiry,omitempty"`
}
