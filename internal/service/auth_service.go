package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/hireflow-backend/internal/config"
	"github.com/stemsi/hireflow-backend/internal/model"
	"github.com/stemsi/hireflow-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Claims extends JWT standard claims with the authorization attributes that
// were current when the credential was issued.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	CompanyID *int64 `json:"company_id,omitempty"`
}

// AuthService handles password login and login credentials.
type AuthService struct {
	cfg    *config.Config
	actors repository.ActorRepository
	now    func() time.Time
	log    zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, tx repository.TxManager, log zerolog.Logger) *AuthService {
	return &AuthService{
		cfg:    cfg,
		actors: tx.Repos().Actors,
		now:    time.Now,
		log:    log.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies email and password and issues a credential embedding the
// user's current role and company.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	creds, err := s.actors.GetCredentials(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	if err := s.CheckPassword(creds.PasswordHash, req.Password); err != nil {
		return nil, err
	}
	if !creds.IsActive {
		s.log.Warn().Int64("user_id", creds.UserID).Msg("Login rejected for inactive account")
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(&creds.Actor)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("user_id", creds.UserID).Str("role", creds.Role).Msg("User logged in")
	return &model.LoginResponse{Token: token, Actor: creds.Actor}, nil
}

// IssueToken signs a credential for actor's current attributes.
func (s *AuthService) IssueToken(actor *model.Actor) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(actor.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		UserID:    actor.UserID,
		Role:      actor.Role,
		CompanyID: actor.CompanyID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
