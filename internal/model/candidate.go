package model

import "time"

// Candidate is the person taking tests. UserID is set once the candidate is
// linked to a login identity.
type Candidate struct {
	ID        int64     `json:"candidate_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	CompanyID *int64    `json:"company_id,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName joins first and last name.
func (c *Candidate) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
