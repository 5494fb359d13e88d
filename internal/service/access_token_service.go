package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/hireflow-backend/internal/config"
)

// AccessClaims is the payload of a test capability token.
type AccessClaims struct {
	jwt.RegisteredClaims
	CandidateID int64 `json:"candidate_id"`
	TestID      int64 `json:"test_id"`
}

// AccessTokenService mints and verifies the capability tokens that let a
// candidate take exactly one test without logging in. Their validity is
// independent of the session timer.
type AccessTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAccessTokenService creates a new AccessTokenService.
func NewAccessTokenService(cfg *config.Config) *AccessTokenService {
	return &AccessTokenService{
		secret: []byte(cfg.TestAccessSecret),
		ttl:    cfg.TestAccessTTL,
		now:    time.Now,
	}
}

// Mint signs a token for (candidateID, testID) and returns it with its expiry.
func (s *AccessTokenService) Mint(candidateID, testID int64) (string, time.Time, error) {
	now := s.now()
	expiry := now.Add(s.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.FormatInt(candidateID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		CandidateID: candidateID,
		TestID:      testID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiry.Truncate(time.Second), nil
}

// Parse verifies the signature and expiry of a capability token.
func (s *AccessTokenService) Parse(tokenStr string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.CandidateID == 0 || claims.TestID == 0 {
		return nil, errors.New("invalid access token claims")
	}
	return claims, nil
}
