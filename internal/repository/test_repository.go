package repository

import (
	"context"

	"github.com/stemsi/hireflow-backend/internal/model"
)

// PgTestRepository handles test and question data access.
type PgTestRepository struct {
	db DBTX
}

// NewTestRepository creates a new PgTestRepository.
func NewTestRepository(db DBTX) *PgTestRepository {
	return &PgTestRepository{db: db}
}

// GetTest retrieves a test by ID.
func (r *PgTestRepository) GetTest(ctx context.Context, id int64) (*model.Test, error) {
	t := &model.Test{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, description, duration_minutes, passing_score, is_active
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.DurationMinutes, &t.PassingScore, &t.IsActive)
	if err != nil {
		return nil, mapErr(err, "get test")
	}
	return t, nil
}

// ListQuestions retrieves the questions of a test with their options, in test order.
func (r *PgTestRepository) ListQuestions(ctx context.Context, testID int64) ([]model.TestQuestion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT q.id, q.question_text, q.question_type, tq.question_order, tq.weight
		 FROM test_questions tq
		 JOIN questions q ON q.id = tq.question_id
		 WHERE tq.test_id = $1
		 ORDER BY tq.question_order, q.id`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.TestQuestion{}
	index := map[int64]int{}
	for rows.Next() {
		var q model.TestQuestion
		if err := rows.Scan(&q.ID, &q.Text, &q.Type, &q.Order, &q.Weight); err != nil {
			return nil, err
		}
		q.Options = []model.Option{}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return questions, nil
	}

	optRows, err := r.db.Query(ctx,
		`SELECT o.question_id, o.id, o.option_text, o.is_correct
		 FROM question_options o
		 JOIN test_questions tq ON tq.question_id = o.question_id
		 WHERE tq.test_id = $1
		 ORDER BY o.question_id, o.position, o.id`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var questionID int64
		var o model.Option
		if err := optRows.Scan(&questionID, &o.ID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[questionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return questions, optRows.Err()
}

// GetQuestion retrieves one question of a test with its options.
func (r *PgTestRepository) GetQuestion(ctx context.Context, testID, questionID int64) (*model.TestQuestion, error) {
	q := &model.TestQuestion{}
	err := r.db.QueryRow(ctx,
		`SELECT q.id, q.question_text, q.question_type, tq.question_order, tq.weight
		 FROM test_questions tq
		 JOIN questions q ON q.id = tq.question_id
		 WHERE tq.test_id = $1 AND tq.question_id = $2`, testID, questionID,
	).Scan(&q.ID, &q.Text, &q.Type, &q.Order, &q.Weight)
	if err != nil {
		return nil, mapErr(err, "get question")
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, option_text, is_correct FROM question_options
		 WHERE question_id = $1 ORDER BY position, id`, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	q.Options = []model.Option{}
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		q.Options = append(q.Options, o)
	}
	return q, rows.Err()
}
