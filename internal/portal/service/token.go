package service

import (
	"fmt"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/pkg/jwtx"
)

// TokenService mints and verifies session tokens.
type TokenService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Issuer   string

	FarmerTTL time.Duration
	AdminTTL  time.Duration

	Now func() time.Time
}

// NewTokenService builds an HS256 token service over secret. A nil now uses
// the wall clock.
func NewTokenService(secret []byte, issuer string, now func() time.Time) (*TokenService, error) {
	signer, err := jwtx.NewSignerHS256(secret)
	if err != nil {
		return nil, err
	}
	verifier, err := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{Issuer: issuer, Now: now})
	if err != nil {
		return nil, err
	}
	return &TokenService{
		Signer:    signer,
		Verifier:  verifier,
		Issuer:    issuer,
		FarmerTTL: jwtx.FarmerTokenTTL,
		AdminTTL:  jwtx.AdminTokenTTL,
		Now:       now,
	}, nil
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Issue signs a token for subject valid for ttl.
func (s *TokenService) Issue(subject, email string, role domain.Role, typ string, ttl time.Duration) (string, error) {
	claims := jwtx.NewSessionClaims(subject, email, string(role), typ, ttl, s.Issuer, s.now())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *TokenService) IssueFarmer(f domain.Farmer) (string, error) {
	return s.Issue(f.ID, f.Email, domain.RoleFarmer, jwtx.TypeFarmer, s.FarmerTTL)
}

func (s *TokenService) IssueAdmin(a domain.Admin) (string, error) {
	return s.Issue(a.ID, a.Email, a.Role, jwtx.TypeAdmin, s.AdminTTL)
}

// Verify checks the signature and then the expiry. Errors are the jwtx
// sentinels (ErrInvalidSig, ErrExpired, ErrMalformed, ...).
func (s *TokenService) Verify(token string) (jwtx.Claims, error) {
	return s.Verifier.Verify(token)
}
