package model

import "time"

// Result is the aggregate score of one session. Exactly one exists per
// session; every scoring pass rewrites it.
type Result struct {
	ID               int64      `json:"result_id"`
	SessionID        int64      `json:"session_id"`
	TotalScore       float64    `json:"total_score"`
	MaxPossibleScore float64    `json:"max_possible_score"`
	Percentage       float64    `json:"percentage"`
	Passed           bool       `json:"passed"`
	StrengthAreas    *string    `json:"strength_areas,omitempty"`
	ImprovementAreas *string    `json:"improvement_areas,omitempty"`
	Feedback         *string    `json:"feedback,omitempty"`
	ReviewedBy       *int64     `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// AnswerCorrection is one reviewer ruling. Exactly one of AnswerID and
// QuestionID identifies the target; QuestionID lets a reviewer grade a
// free-form question the candidate never answered.
type AnswerCorrection struct {
	AnswerID   *int64   `json:"answer_id" binding:"required_without=QuestionID,omitempty,min=1"`
	QuestionID *int64   `json:"question_id" binding:"required_without=AnswerID,omitempty,min=1"`
	IsCorrect  *bool    `json:"is_correct"`
	Score      *float64 `json:"score" binding:"omitempty,min=0,max=100"`
}

// ReviewRequest is the recruiter payload for reviewing a completed session.
type ReviewRequest struct {
	Answers          []AnswerCorrection `json:"answers" binding:"omitempty,dive"`
	StrengthAreas    *string            `json:"strength_areas" binding:"omitempty,max=5000"`
	ImprovementAreas *string            `json:"improvement_areas" binding:"omitempty,max=5000"`
	Feedback         *string            `json:"feedback" binding:"omitempty,max=5000"`
}

// ReviewResult is returned after a review rescored the session.
type ReviewResult struct {
	Score         int           `json:"score"`
	Percentage    float64       `json:"percentage"`
	Passed        bool          `json:"passed"`
	PassingStatus PassingStatus `json:"passing_status"`
	PassingScore  int           `json:"passing_score"`
}
