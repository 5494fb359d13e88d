package repository

import (
	"context"

	"github.com/stemsi/hireflow-backend/internal/model"
)

// PgResultRepository handles result data access.
type PgResultRepository struct {
	db DBTX
}

// NewResultRepository creates a new PgResultRepository.
func NewResultRepository(db DBTX) *PgResultRepository {
	return &PgResultRepository{db: db}
}

// GetBySession retrieves the result of a session.
func (r *PgResultRepository) GetBySession(ctx context.Context, sessionID int64) (*model.Result, error) {
	res := &model.Result{}
	err := r.db.QueryRow(ctx,
		`SELECT id, session_id, total_score, max_possible_score, percentage, passed,
			strength_areas, improvement_areas, feedback, reviewed_by, reviewed_at, created_at
		 FROM results WHERE session_id = $1`, sessionID,
	).Scan(&res.ID, &res.SessionID, &res.TotalScore, &res.MaxPossibleScore, &res.Percentage, &res.Passed,
		&res.StrengthAreas, &res.ImprovementAreas, &res.Feedback, &res.ReviewedBy, &res.ReviewedAt, &res.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "get result")
	}
	return res, nil
}

// Upsert inserts or overwrites the single result row of a session.
func (r *PgResultRepository) Upsert(ctx context.Context, res *model.Result) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO results (session_id, total_score, max_possible_score, percentage, passed,
			strength_areas, improvement_areas, feedback, reviewed_by, reviewed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			max_possible_score = EXCLUDED.max_possible_score,
			percentage = EXCLUDED.percentage,
			passed = EXCLUDED.passed,
			strength_areas = EXCLUDED.strength_areas,
			improvement_areas = EXCLUDED.improvement_areas,
			feedback = EXCLUDED.feedback,
			reviewed_by = EXCLUDED.reviewed_by,
			reviewed_at = EXCLUDED.reviewed_at
		 RETURNING id, created_at`,
		res.SessionID, res.TotalScore, res.MaxPossibleScore, res.Percentage, res.Passed,
		res.StrengthAreas, res.ImprovementAreas, res.Feedback, res.ReviewedBy, res.ReviewedAt,
	).Scan(&res.ID, &res.CreatedAt)
	return mapErr(err, "upsert result")
}
