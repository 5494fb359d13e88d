package service

import "errors"

// Session engine errors. Handlers match them with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrCandidateNotFound      = errors.New("candidate not found")
	ErrTestNotFound           = errors.New("test not found")
	ErrTestInactive           = errors.New("test is not active")
	ErrInvalidTransition      = errors.New("operation not valid for the current session status")
	ErrExpired                = errors.New("session deadline has passed")
	ErrNotInProgress          = errors.New("session is not in progress")
	ErrAlreadyActive          = errors.New("candidate already has an active session for this test")
	ErrSessionNotCompletedYet = errors.New("session is not completed yet")
	ErrInvalidEventType       = errors.New("unknown integrity event type")
)

// Authorization errors.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNoCompanyAssigned  = errors.New("no company assigned to this account")
	ErrClaimsStale        = errors.New("credential is stale, please sign in again")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotCandidate       = errors.New("account is not linked to a candidate")
)
