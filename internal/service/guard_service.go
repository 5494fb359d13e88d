package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
)

// Outcome is the verdict of a freshness check.
type Outcome int

const (
	OutcomeFresh Outcome = iota
	OutcomeUnauthenticated
	OutcomeNoCompanyAssigned
	OutcomeClaimsStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeUnauthenticated:
		return "unauthenticated"
	case OutcomeNoCompanyAssigned:
		return "no_company_assigned"
	case OutcomeClaimsStale:
		return "claims_stale"
	}
	return "unknown"
}

// Err returns the sentinel error for a rejecting outcome, nil for fresh.
func (o Outcome) Err() error {
	switch o {
	case OutcomeFresh:
		return nil
	case OutcomeNoCompanyAssigned:
		return ErrNoCompanyAssigned
	case OutcomeClaimsStale:
		return ErrClaimsStale
	}
	return ErrUnauthenticated
}

// Decision is the result of evaluating a credential. Actor holds the
// current attributes from the system of record and is only set when fresh.
type Decision struct {
	Outcome Outcome
	Actor   *model.Actor
	Claims  *Claims
}

// GuardService re-derives an actor's authorization attributes on every
// request and rejects credentials whose embedded company is out of date.
type GuardService struct {
	auth   *AuthService
	actors repository.ActorRepository
	policy *config.Policy
	log    zerolog.Logger
}

// NewGuardService creates a new GuardService.
func NewGuardService(auth *AuthService, tx repository.TxManager, policy *config.Policy, log zerolog.Logger) *GuardService {
	return &GuardService{
		auth:   auth,
		actors: tx.Repos().Actors,
		policy: policy,
		log:    log.With().Str("component", "guard_service").Logger(),
	}
}

// Evaluate checks raw against the current actor record. A non-nil error
// means the system of record could not be read.
func (g *GuardService) Evaluate(ctx context.Context, raw string) (Decision, error) {
	if raw == "" {
		return Decision{Outcome: OutcomeUnauthenticated}, nil
	}
	claims, err := g.auth.ValidateToken(raw)
	if err != nil {
		return Decision{Outcome: OutcomeUnauthenticated}, nil
	}

	actor, err := g.actors.GetActor(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Decision{Outcome: OutcomeUnauthenticated, Claims: claims}, nil
		}
		return Decision{}, fmt.Errorf("get actor: %w", err)
	}
	if !actor.IsActive {
		return Decision{Outcome: OutcomeUnauthenticated, Claims: claims}, nil
	}

	scoped := g.policy.IsCompanyScoped(actor.Role)
	if scoped && actor.CompanyID == nil {
		return Decision{Outcome: OutcomeNoCompanyAssigned, Claims: claims}, nil
	}
	if claims.CompanyID != nil && !sameCompany(claims.CompanyID, actor.CompanyID) {
		g.log.Info().
			Int64("user_id", actor.UserID).
			Int64("token_company_id", *claims.CompanyID).
			Msg("Rejected credential with outdated company")
		return Decision{Outcome: OutcomeClaimsStale, Claims: claims}, nil
	}
	// Issued before the actor was affiliated with any company.
	if scoped && claims.CompanyID == nil {
		return Decision{Outcome: OutcomeClaimsStale, Claims: claims}, nil
	}

	return Decision{Outcome: OutcomeFresh, Actor: actor, Claims: claims}, nil
}

func sameCompany(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
