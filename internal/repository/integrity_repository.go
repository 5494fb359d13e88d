package repository

import (
	"context"
	"time"

	"github.com/stemsi/hireflow-backend/internal/model"
)

// PgIntegrityRepository handles integrity event data access.
type PgIntegrityRepository struct {
	db DBTX
}

// NewIntegrityRepository creates a new PgIntegrityRepository.
func NewIntegrityRepository(db DBTX) *PgIntegrityRepository {
	return &PgIntegrityRepository{db: db}
}

// FindRecent retrieves and locks the latest event of a type recorded since a point in time.
func (r *PgIntegrityRepository) FindRecent(ctx context.Context, sessionID int64, t model.IntegrityEventType, since time.Time) (*model.IntegrityEvent, error) {
	e := &model.IntegrityEvent{}
	err := r.db.QueryRow(ctx,
		`SELECT id, session_id, event_type, event_count, event_time, details
		 FROM integrity_events
		 WHERE session_id = $1 AND event_type = $2 AND event_time >= $3
		 ORDER BY event_time DESC, id DESC
		 LIMIT 1
		 FOR UPDATE`, sessionID, t, since,
	).Scan(&e.ID, &e.SessionID, &e.EventType, &e.EventCount, &e.EventTime, &e.Details)
	if err != nil {
		return nil, mapErr(err, "find recent integrity event")
	}
	return e, nil
}

// Create inserts a new event.
func (r *PgIntegrityRepository) Create(ctx context.Context, e *model.IntegrityEvent) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO integrity_events (session_id, event_type, event_count, event_time, details)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		e.SessionID, e.EventType, e.EventCount, e.EventTime, e.Details,
	).Scan(&e.ID)
	return mapErr(err, "create integrity event")
}

// Bump increments the count of an event and moves its time forward to at.
func (r *PgIntegrityRepository) Bump(ctx context.Context, e *model.IntegrityEvent, at time.Time) error {
	err := r.db.QueryRow(ctx,
		`UPDATE integrity_events SET event_count = event_count + 1, event_time = $1
		 WHERE id = $2
		 RETURNING event_count, event_time`, at, e.ID,
	).Scan(&e.EventCount, &e.EventTime)
	return mapErr(err, "bump integrity event")
}

// ListBySession retrieves the events of a session in time order.
func (r *PgIntegrityRepository) ListBySession(ctx context.Context, sessionID int64) ([]model.IntegrityEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, event_type, event_count, event_time, details
		 FROM integrity_events WHERE session_id = $1 ORDER BY event_time, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.IntegrityEvent{}
	for rows.Next() {
		var e model.IntegrityEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.EventCount, &e.EventTime, &e.Details); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
