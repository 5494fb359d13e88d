package repository

import (
	"context"

	"github.com/stemsi/hireflow-backend/internal/model"
)

const candidateColumns = `id, user_id, company_id, first_name, last_name, email, created_at`

// PgCandidateRepository handles candidate data access.
type PgCandidateRepository struct {
	db DBTX
}

// NewCandidateRepository creates a new PgCandidateRepository.
func NewCandidateRepository(db DBTX) *PgCandidateRepository {
	return &PgCandidateRepository{db: db}
}

func (r *PgCandidateRepository) getOne(ctx context.Context, query string, arg any) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&c.ID, &c.UserID, &c.CompanyID, &c.FirstName, &c.LastName, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err, "get candidate")
	}
	return c, nil
}

// Get retrieves a candidate by ID.
func (r *PgCandidateRepository) Get(ctx context.Context, id int64) (*model.Candidate, error) {
	return r.getOne(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
}

// GetForUpdate retrieves a candidate by ID and locks its row, serialising assignments.
func (r *PgCandidateRepository) GetForUpdate(ctx context.Context, id int64) (*model.Candidate, error) {
	return r.getOne(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1 FOR UPDATE`, id)
}

// GetByUserID retrieves the candidate linked to a login identity.
func (r *PgCandidateRepository) GetByUserID(ctx context.Context, userID int64) (*model.Candidate, error) {
	return r.getOne(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE user_id = $1`, userID)
}
