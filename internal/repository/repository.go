package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/hireflow-backend/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("record conflicts with an existing one")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRepository persists test sessions.
type SessionRepository interface {
	Get(ctx context.Context, id int64) (*model.TestSession, error)
	// GetForUpdate locks the session row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*model.TestSession, error)
	FindActive(ctx context.Context, candidateID, testID int64) (*model.TestSession, error)
	FindByAccessToken(ctx context.Context, token string) (*model.TestSession, error)
	Create(ctx context.Context, s *model.TestSession) error
	Update(ctx context.Context, s *model.TestSession) error
	SetResultVisible(ctx context.Context, id int64, visible bool) error
	List(ctx context.Context, f model.SessionFilter) ([]model.SessionListItem, int64, error)
	ListByCandidate(ctx context.Context, candidateID int64) ([]model.TestSession, error)
}

// AnswerRepository persists answers, one per (session, question).
type AnswerRepository interface {
	Get(ctx context.Context, id int64) (*model.Answer, error)
	GetByQuestion(ctx context.Context, sessionID, questionID int64) (*model.Answer, error)
	// Upsert replaces the whole answer payload and reports whether a new row was created.
	Upsert(ctx context.Context, a *model.Answer) (bool, error)
	ApplyGrade(ctx context.Context, a *model.Answer) error
	ListBySession(ctx context.Context, sessionID int64) ([]model.Answer, error)
}

// ResultRepository persists the single aggregate result of a session.
type ResultRepository interface {
	GetBySession(ctx context.Context, sessionID int64) (*model.Result, error)
	Upsert(ctx context.Context, r *model.Result) error
}

// IntegrityRepository persists coalesced integrity events.
type IntegrityRepository interface {
	// FindRecent returns the latest event of type t recorded at or after since, locked.
	FindRecent(ctx context.Context, sessionID int64, t model.IntegrityEventType, since time.Time) (*model.IntegrityEvent, error)
	Create(ctx context.Context, e *model.IntegrityEvent) error
	Bump(ctx context.Context, e *model.IntegrityEvent, at time.Time) error
	ListBySession(ctx context.Context, sessionID int64) ([]model.IntegrityEvent, error)
}

// TestRepository reads test definitions and their questions.
type TestRepository interface {
	GetTest(ctx context.Context, id int64) (*model.Test, error)
	ListQuestions(ctx context.Context, testID int64) ([]model.TestQuestion, error)
	GetQuestion(ctx context.Context, testID, questionID int64) (*model.TestQuestion, error)
}

// CandidateRepository reads candidates.
type CandidateRepository interface {
	Get(ctx context.Context, id int64) (*model.Candidate, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Candidate, error)
	GetByUserID(ctx context.Context, userID int64) (*model.Candidate, error)
}

// ActorRepository is the system of record for login identities.
type ActorRepository interface {
	GetActor(ctx context.Context, userID int64) (*model.Actor, error)
	GetCredentials(ctx context.Context, email string) (*model.UserCredentials, error)
	CreateUser(ctx context.Context, u *model.UserCredentials) error
}

// Repos bundles every repository bound to one connection or transaction.
type Repos struct {
	Sessions   SessionRepository
	Answers    AnswerRepository
	Results    ResultRepository
	Integrity  IntegrityRepository
	Tests      TestRepository
	Candidates CandidateRepository
	Actors     ActorRepository
}

// TxManager runs work inside a database transaction.
type TxManager interface {
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repos) error) error
	// Repos returns repositories bound to the pool, outside any transaction.
	Repos() Repos
}

// NewRepos binds every repository to db.
func NewRepos(db DBTX) Repos {
	return Repos{
		Sessions:   NewSessionRepository(db),
		Answers:    NewAnswerRepository(db),
		Results:    NewResultRepository(db),
		Integrity:  NewIntegrityRepository(db),
		Tests:      NewTestRepository(db),
		Candidates: NewCandidateRepository(db),
		Actors:     NewActorRepository(db),
	}
}

// PgTxManager is the pgx-backed TxManager.
type PgTxManager struct {
	pool  *pgxpool.Pool
	repos Repos
}

// NewPgTxManager creates a new PgTxManager.
func NewPgTxManager(pool *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{pool: pool, repos: NewRepos(pool)}
}

// InTx implements TxManager.
func (m *PgTxManager) InTx(ctx context.Context, fn func(Repos) error) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
}

// Repos implements TxManager.
func (m *PgTxManager) Repos() Repos {
	return m.repos
}

func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return err
}
