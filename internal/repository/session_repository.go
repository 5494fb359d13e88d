package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/hireflow-backend/internal/model"
)

const sessionColumns = `id, candidate_id, test_id, application_id, status, start_time, end_time,
	access_token, access_token_expiry, score, passing_status, is_result_visible, created_at`

// PgSessionRepository handles test session data access.
type PgSessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new PgSessionRepository.
func NewSessionRepository(db DBTX) *PgSessionRepository {
	return &PgSessionRepository{db: db}
}

func scanSession(row pgx.Row) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := row.Scan(&s.ID, &s.CandidateID, &s.TestID, &s.ApplicationID, &s.Status, &s.StartTime, &s.EndTime,
		&s.AccessToken, &s.AccessTokenExpiry, &s.Score, &s.PassingStatus, &s.IsResultVisible, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a session by ID.
func (r *PgSessionRepository) Get(ctx context.Context, id int64) (*model.TestSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = $1`, id))
	return s, mapErr(err, "get session")
}

// GetForUpdate retrieves a session by ID and locks its row.
func (r *PgSessionRepository) GetForUpdate(ctx context.Context, id int64) (*model.TestSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = $1 FOR UPDATE`, id))
	return s, mapErr(err, "lock session")
}

// FindActive retrieves the active session of a candidate for a test, if any.
func (r *PgSessionRepository) FindActive(ctx context.Context, candidateID, testID int64) (*model.TestSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions
		 WHERE candidate_id = $1 AND test_id = $2 AND status IN ('PENDING', 'ASSIGNED', 'IN_PROGRESS')
		 LIMIT 1`, candidateID, testID))
	return s, mapErr(err, "find active session")
}

// FindByAccessToken retrieves a session by its capability token.
func (r *PgSessionRepository) FindByAccessToken(ctx context.Context, token string) (*model.TestSession, error) {
	s, err := scanSession(r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE access_token = $1`, token))
	return s, mapErr(err, "find session by token")
}

// Create inserts a new session.
func (r *PgSessionRepository) Create(ctx context.Context, s *model.TestSession) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO test_sessions (candidate_id, test_id, application_id, status, access_token, access_token_expiry, passing_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		s.CandidateID, s.TestID, s.ApplicationID, s.Status, s.AccessToken, s.AccessTokenExpiry, s.PassingStatus,
	).Scan(&s.ID, &s.CreatedAt)
	return mapErr(err, "create session")
}

// Update writes the mutable lifecycle fields of a session.
func (r *PgSessionRepository) Update(ctx context.Context, s *model.TestSession) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE test_sessions
		 SET status = $1, start_time = $2, end_time = $3, score = $4, passing_status = $5, is_result_visible = $6
		 WHERE id = $7`,
		s.Status, s.StartTime, s.EndTime, s.Score, s.PassingStatus, s.IsResultVisible, s.ID)
	if err != nil {
		return mapErr(err, "update session")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update session: %w", ErrNotFound)
	}
	return nil
}

// SetResultVisible toggles candidate visibility of the result.
func (r *PgSessionRepository) SetResultVisible(ctx context.Context, id int64, visible bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE test_sessions SET is_result_visible = $1 WHERE id = $2`, visible, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set result visible: %w", ErrNotFound)
	}
	return nil
}

// List retrieves sessions with optional filters and pagination.
func (r *PgSessionRepository) List(ctx context.Context, f model.SessionFilter) ([]model.SessionListItem, int64, error) {
	baseQuery := `
		FROM test_sessions ts
		JOIN candidates c ON ts.candidate_id = c.id
		JOIN tests t ON ts.test_id = t.id
		LEFT JOIN results res ON res.session_id = ts.id
		WHERE 1 = 1
	`
	var args []any
	if f.CandidateID != nil {
		args = append(args, *f.CandidateID)
		baseQuery += " AND ts.candidate_id = $" + strconv.Itoa(len(args))
	}
	if f.TestID != nil {
		args = append(args, *f.TestID)
		baseQuery += " AND ts.test_id = $" + strconv.Itoa(len(args))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		baseQuery += " AND ts.status = $" + strconv.Itoa(len(args))
	}
	if f.CompanyID != nil {
		args = append(args, *f.CompanyID)
		baseQuery += " AND c.company_id = $" + strconv.Itoa(len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	query := `SELECT ts.id, ts.candidate_id, ts.test_id, ts.application_id, ts.status, ts.start_time, ts.end_time,
			ts.access_token_expiry, ts.score, ts.passing_status, ts.is_result_visible, ts.created_at,
			CONCAT_WS(' ', c.first_name, NULLIF(c.last_name, '')), c.email, t.name, res.percentage, res.passed
		` + baseQuery + `
		ORDER BY ts.created_at DESC, ts.id DESC
		LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.SessionListItem{}
	for rows.Next() {
		var it model.SessionListItem
		if err := rows.Scan(&it.ID, &it.CandidateID, &it.TestID, &it.ApplicationID, &it.Status, &it.StartTime, &it.EndTime,
			&it.AccessTokenExpiry, &it.Score, &it.PassingStatus, &it.IsResultVisible, &it.CreatedAt,
			&it.CandidateName, &it.CandidateMail, &it.TestName, &it.Percentage, &it.Passed); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// ListByCandidate retrieves every session of a candidate, newest first.
func (r *PgSessionRepository) ListByCandidate(ctx context.Context, candidateID int64) ([]model.TestSession, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+sessionColumns+` FROM test_sessions WHERE candidate_id = $1 ORDER BY created_at DESC, id DESC`,
		candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.TestSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
