package model

import (
	"time"
)

// SessionStatus enumerates test session states.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "PENDING"
	SessionStatusAssigned   SessionStatus = "ASSIGNED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	// SessionStatusExpired is never stored. It is what an IN_PROGRESS
	// session reads as once its end time has passed.
	SessionStatusExpired SessionStatus = "EXPIRED"
)

// ActiveSessionStatuses are the stored statuses that block a new assignment
// of the same test to the same candidate.
var ActiveSessionStatuses = []SessionStatus{
	SessionStatusPending,
	SessionStatusAssigned,
	SessionStatusInProgress,
}

// sessionTransitions is the complete set of written transitions.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusPending:    {SessionStatusInProgress},
	SessionStatusAssigned:   {SessionStatusInProgress},
	SessionStatusInProgress: {SessionStatusCompleted},
}

// CanTransitionTo reports whether next is a legal written transition from s.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsActive reports whether s blocks a duplicate assignment.
func (s SessionStatus) IsActive() bool {
	for _, a := range ActiveSessionStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusPending, SessionStatusAssigned, SessionStatusInProgress,
		SessionStatusCompleted, SessionStatusExpired:
		return true
	}
	return false
}

// PassingStatus is the pass/fail verdict of a session.
type PassingStatus string

const (
	PassingStatusPassed  PassingStatus = "PASSED"
	PassingStatusFailed  PassingStatus = "FAILED"
	PassingStatusPending PassingStatus = "PENDING"
)

// AssignVia records how a session was created.
type AssignVia string

const (
	// AssignViaToken mints a capability token for the unauthenticated portal.
	AssignViaToken AssignVia = "TOKEN"
	// AssignViaSelf is a logged-in candidate assigning a test to themselves.
	AssignViaSelf AssignVia = "SELF"
)

// TestSession is one attempt by one candidate at one test.
type TestSession struct {
	ID                int64         `json:"session_id"`
	CandidateID       int64         `json:"candidate_id"`
	TestID            int64         `json:"test_id"`
	ApplicationID     *int64        `json:"application_id,omitempty"`
	Status            SessionStatus `json:"status"`
	StartTime         *time.Time    `json:"start_time,omitempty"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	AccessToken       *string       `json:"-"`
	AccessTokenExpiry *time.Time    `json:"access_token_expiry,omitempty"`
	Score             *int          `json:"score,omitempty"`
	PassingStatus     PassingStatus `json:"passing_status"`
	IsResultVisible   bool          `json:"is_result_visible"`
	CreatedAt         time.Time     `json:"created_at"`
}

// EffectiveStatus is the stored status with lazy expiry applied: an
// IN_PROGRESS session whose end time lies before now reads as EXPIRED.
func (s *TestSession) EffectiveStatus(now time.Time) SessionStatus {
	if s.Status == SessionStatusInProgress && s.EndTime != nil && now.After(*s.EndTime) {
		return SessionStatusExpired
	}
	return s.Status
}

// DeadlinePassed reports whether now lies after the session's end time.
func (s *TestSession) DeadlinePassed(now time.Time) bool {
	return s.EndTime != nil && now.After(*s.EndTime)
}

// OwnedBy reports whether the candidate identified by candidateID owns s.
func (s *TestSession) OwnedBy(candidateID *int64) bool {
	return candidateID != nil && *candidateID == s.CandidateID
}

// SessionSummary is returned when a capability token is resolved.
type SessionSummary struct {
	SessionID int64         `json:"session_id"`
	Status    SessionStatus `json:"status"`
	StartTime *time.Time    `json:"start_time,omitempty"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Test      Test          `json:"test"`
	Candidate struct {
		ID    int64  `json:"candidate_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"candidate"`
}

// SessionFilter narrows recruiter session listings.
type SessionFilter struct {
	CandidateID *int64
	TestID      *int64
	Status      *SessionStatus
	// CompanyID restricts results to candidates of one company. Set for
	// company-scoped actors only.
	CompanyID *int64
	Page      int
	PerPage   int
}

// SessionListItem is one row of a recruiter session listing.
type SessionListItem struct {
	TestSession
	CandidateName string   `json:"candidate_name"`
	CandidateMail string   `json:"candidate_email"`
	TestName      string   `json:"test_name"`
	Percentage    *float64 `json:"percentage,omitempty"`
	Passed        *bool    `json:"passed,omitempty"`
}

// SessionDetail is the full recruiter view of a session.
type SessionDetail struct {
	Session         TestSession      `json:"session"`
	EffectiveStatus SessionStatus    `json:"effective_status"`
	Candidate       Candidate        `json:"candidate"`
	Questions       []TestQuestion   `json:"questions"`
	Answers         []Answer         `json:"answers"`
	Result          *Result          `json:"result,omitempty"`
	IntegrityEvents []IntegrityEvent `json:"integrity_events"`
}

// AssignSessionRequest is the recruiter payload for assigning a test.
type AssignSessionRequest struct {
	CandidateID   int64  `json:"candidate_id" binding:"required,min=1"`
	TestID        int64  `json:"test_id" binding:"required,min=1"`
	ApplicationID *int64 `json:"application_id" binding:"omitempty,min=1"`
}

// SetVisibilityRequest toggles whether a candidate may see their result.
type SetVisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}
