package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/hireflow-backend/internal/model"
)

const answerColumns = `id, session_id, question_id, selected_option_ids, text_answer, is_correct,
	score_earned, reviewer_id, reviewed_at, submitted_at`

// PgAnswerRepository handles answer data access.
type PgAnswerRepository struct {
	db DBTX
}

// NewAnswerRepository creates a new PgAnswerRepository.
func NewAnswerRepository(db DBTX) *PgAnswerRepository {
	return &PgAnswerRepository{db: db}
}

func scanAnswer(row pgx.Row) (*model.Answer, error) {
	a := &model.Answer{}
	err := row.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.SelectedOptionIDs, &a.TextAnswer, &a.IsCorrect,
		&a.ScoreEarned, &a.ReviewerID, &a.ReviewedAt, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get retrieves an answer by ID.
func (r *PgAnswerRepository) Get(ctx context.Context, id int64) (*model.Answer, error) {
	a, err := scanAnswer(r.db.QueryRow(ctx, `SELECT `+answerColumns+` FROM answers WHERE id = $1`, id))
	return a, mapErr(err, "get answer")
}

// GetByQuestion retrieves the answer of a session for one question.
func (r *PgAnswerRepository) GetByQuestion(ctx context.Context, sessionID, questionID int64) (*model.Answer, error) {
	a, err := scanAnswer(r.db.QueryRow(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE session_id = $1 AND question_id = $2`, sessionID, questionID))
	return a, mapErr(err, "get answer by question")
}

// Upsert inserts an answer or replaces the existing one for the same question.
// Review fields are reset so a resubmission is graded afresh.
func (r *PgAnswerRepository) Upsert(ctx context.Context, a *model.Answer) (bool, error) {
	ids := a.SelectedOptionIDs
	if ids == nil {
		ids = []int64{}
	}
	var created bool
	err := r.db.QueryRow(ctx,
		`INSERT INTO answers (session_id, question_id, selected_option_ids, text_answer, is_correct, score_earned,
			reviewer_id, reviewed_at, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (session_id, question_id) DO UPDATE SET
			selected_option_ids = EXCLUDED.selected_option_ids,
			text_answer = EXCLUDED.text_answer,
			is_correct = EXCLUDED.is_correct,
			score_earned = EXCLUDED.score_earned,
			reviewer_id = EXCLUDED.reviewer_id,
			reviewed_at = EXCLUDED.reviewed_at,
			submitted_at = EXCLUDED.submitted_at
		 RETURNING id, (xmax = 0)`,
		a.SessionID, a.QuestionID, ids, a.TextAnswer, a.IsCorrect, a.ScoreEarned,
		a.ReviewerID, a.ReviewedAt, a.SubmittedAt,
	).Scan(&a.ID, &created)
	if err != nil {
		return false, mapErr(err, "upsert answer")
	}
	return created, nil
}

// ApplyGrade writes the grading fields of an existing answer.
func (r *PgAnswerRepository) ApplyGrade(ctx context.Context, a *model.Answer) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE answers SET is_correct = $1, score_earned = $2, reviewer_id = $3, reviewed_at = $4
		 WHERE id = $5`,
		a.IsCorrect, a.ScoreEarned, a.ReviewerID, a.ReviewedAt, a.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("grade answer: %w", ErrNotFound)
	}
	return nil
}

// ListBySession retrieves every answer of a session.
func (r *PgAnswerRepository) ListBySession(ctx context.Context, sessionID int64) ([]model.Answer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE session_id = $1 ORDER BY question_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, *a)
	}
	return answers, rows.Err()
}
