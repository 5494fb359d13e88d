package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrUnauthenticated    ErrCode = "UNAUTHENTICATED"
	ErrNoCompanyAssigned  ErrCode = "NO_COMPANY_ASSIGNED"
	ErrClaimsStale        ErrCode = "CLAIMS_STALE"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied    ErrCode = "PERMISSION_DENIED"
	ErrCandidateAccessOnly ErrCode = "CANDIDATE_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrCandidateNotFound ErrCode = "CANDIDATE_NOT_FOUND"
	ErrTestNotFound      ErrCode = "TEST_NOT_FOUND"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrTestInactive           ErrCode = "TEST_INACTIVE"
	ErrAlreadyActive          ErrCode = "ALREADY_ACTIVE"
	ErrInvalidTransition      ErrCode = "INVALID_TRANSITION"
	ErrSessionExpired         ErrCode = "SESSION_EXPIRED"
	ErrNotInProgress          ErrCode = "NOT_IN_PROGRESS"
	ErrSessionNotCompletedYet ErrCode = "SESSION_NOT_COMPLETED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrUnauthenticated:
		return "Authentication failed. Please sign in."
	case ErrNoCompanyAssigned:
		return "Your account is not assigned to a company. Please contact an administrator."
	case ErrClaimsStale:
		return "Your access has changed. Please sign in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrCandidateAccessOnly:
		return "This resource is limited to candidates."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrCandidateNotFound:
		return "Candidate not found."
	case ErrTestNotFound:
		return "Test not found."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrTestInactive:
		return "This test is not active."
	case ErrAlreadyActive:
		return "The candidate already has an active session for this test."
	case ErrInvalidTransition:
		return "This action is not allowed for the current session status."
	case ErrSessionExpired:
		return "The time limit for this session has passed."
	case ErrNotInProgress:
		return "The session is not in progress."
	case ErrSessionNotCompletedYet:
		return "The session has not been completed yet."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
