package model

// Well-known roles. The full role set lives in the RBAC policy.
const (
	RoleAdmin     = "ADMIN"
	RoleRecruiter = "RECRUITER"
	RoleCandidate = "CANDIDATE"
)

// Actor is the system-of-record view of whoever is making a request.
// CandidateID is set when the actor is (linked to) a candidate.
type Actor struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	CompanyID   *int64 `json:"company_id,omitempty"`
	CandidateID *int64 `json:"candidate_id,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// UserCredentials carries what login needs to verify a password.
type UserCredentials struct {
	Actor
	PasswordHash string
}

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	Actor Actor  `json:"user"`
}
