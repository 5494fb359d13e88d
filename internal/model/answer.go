package model

import "time"

// Answer is a candidate's submission for one question of one session.
// IsCorrect is nil until graded; ScoreEarned is a 0-100 share of the
// question's weight assigned by a human reviewer.
type Answer struct {
	ID                int64      `json:"answer_id"`
	SessionID         int64      `json:"session_id"`
	QuestionID        int64      `json:"question_id"`
	SelectedOptionIDs []int64    `json:"selected_option_ids,omitempty"`
	TextAnswer        *string    `json:"text_answer,omitempty"`
	IsCorrect         *bool      `json:"is_correct"`
	ScoreEarned       *float64   `json:"score_earned,omitempty"`
	ReviewerID        *int64     `json:"reviewer_id,omitempty"`
	ReviewedAt        *time.Time `json:"reviewed_at,omitempty"`
	SubmittedAt       time.Time  `json:"submitted_at"`
}

// IsGraded reports whether a grader (automatic or human) has ruled on a.
func (a *Answer) IsGraded() bool {
	return a.IsCorrect != nil || a.ScoreEarned != nil
}

// SubmitAnswerRequest is the candidate payload for answering a question.
// SelectedOptionID is the single-selection shorthand; SelectedOptionIDs
// carries a multi-select answer.
type SubmitAnswerRequest struct {
	QuestionID        int64   `json:"question_id" binding:"required,min=1"`
	SelectedOptionID  *int64  `json:"selected_option_id" binding:"omitempty,min=1"`
	SelectedOptionIDs []int64 `json:"selected_option_ids" binding:"omitempty,max=50,dive,min=1"`
	TextAnswer        *string `json:"text_answer" binding:"omitempty,max=100000"`
}

// OptionIDs merges both selection fields into one de-duplicated list.
func (r *SubmitAnswerRequest) OptionIDs() []int64 {
	ids := make([]int64, 0, len(r.SelectedOptionIDs)+1)
	seen := make(map[int64]struct{}, cap(ids))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if r.SelectedOptionID != nil {
		add(*r.SelectedOptionID)
	}
	for _, id := range r.SelectedOptionIDs {
		add(id)
	}
	return ids
}

// SubmitResult is returned after an answer is stored.
type SubmitResult struct {
	AnswerID  int64 `json:"answer_id"`
	IsCorrect *bool `json:"is_correct"`
	Created   bool  `json:"created"`
}
