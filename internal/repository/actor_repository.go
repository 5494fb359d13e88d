package repository

import (
	"context"
	"fmt"

	"github.com/stemsi/hireflow-backend/internal/model"
)

// PgActorRepository reads login identities with their current role and company.
type PgActorRepository struct {
	db DBTX
}

// NewActorRepository creates a new PgActorRepository.
func NewActorRepository(db DBTX) *PgActorRepository {
	return &PgActorRepository{db: db}
}

const actorSelect = `SELECT u.id, u.username, u.email, r.name, u.company_id, c.id, u.is_active, u.password_hash
	FROM users u
	JOIN roles r ON r.id = u.role_id
	LEFT JOIN candidates c ON c.user_id = u.id`

// GetActor retrieves the current state of a user.
func (r *PgActorRepository) GetActor(ctx context.Context, userID int64) (*model.Actor, error) {
	creds, err := r.getOne(ctx, actorSelect+` WHERE u.id = $1`, userID)
	if err != nil {
		return nil, err
	}
	return &creds.Actor, nil
}

// GetCredentials retrieves a user and password hash by email.
func (r *PgActorRepository) GetCredentials(ctx context.Context, email string) (*model.UserCredentials, error) {
	return r.getOne(ctx, actorSelect+` WHERE LOWER(u.email) = LOWER($1)`, email)
}

func (r *PgActorRepository) getOne(ctx context.Context, query string, arg any) (*model.UserCredentials, error) {
	u := &model.UserCredentials{}
	err := r.db.QueryRow(ctx, query, arg).Scan(&u.UserID, &u.Username, &u.Email, &u.Role, &u.CompanyID,
		&u.CandidateID, &u.IsActive, &u.PasswordHash)
	if err != nil {
		return nil, mapErr(err, "get user")
	}
	return u, nil
}

// CreateUser inserts a user with the role named in u.Role.
func (r *PgActorRepository) CreateUser(ctx context.Context, u *model.UserCredentials) error {
	var roleID int
	if err := r.db.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, u.Role).Scan(&roleID); err != nil {
		return fmt.Errorf("role %q: %w", u.Role, mapErr(err, "get role"))
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, role_id, company_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING id`,
		u.Username, u.Email, u.PasswordHash, roleID, u.CompanyID,
	).Scan(&u.UserID)
	if err != nil {
		return mapErr(err, "create user")
	}
	u.IsActive = true
	return nil
}
