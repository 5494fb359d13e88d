package service

import (
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
)

// canAccessCandidate reports whether actor may act on candidate. Actors of
// company-scoped roles only reach candidates of their current company.
func canAccessCandidate(policy *config.Policy, actor *model.Actor, candidate *model.Candidate) bool {
	if actor == nil {
		return false
	}
	if !policy.IsCompanyScoped(actor.Role) {
		return true
	}
	return actor.CompanyID != nil && candidate.CompanyID != nil && *actor.CompanyID == *candidate.CompanyID
}

// scopeFilter restricts a listing to the actor's company when required.
func scopeFilter(policy *config.Policy, actor *model.Actor, f model.SessionFilter) model.SessionFilter {
	if actor != nil && policy.IsCompanyScoped(actor.Role) {
		company := int64(-1)
		if actor.CompanyID != nil {
			company = *actor.CompanyID
		}
		f.CompanyID = &company
	}
	return f
}
