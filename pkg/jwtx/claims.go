package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session lifetimes. Tokens are not revocable, so anything privileged must
// re-check the live account on every request.
const (
	FarmerTokenTTL = 7 * 24 * time.Hour
	AdminTokenTTL  = 24 * time.Hour
)

// Token types carried in the "type" claim.
const (
	TypeFarmer = "farmer"
	TypeAdmin  = "admin"
)

// Claims are the session-token claims shared by farmer and admin tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the account at issue time, informational only.
	Email string `json:"email,omitempty"`

	// Role is the normalized role ("farmer", "MAIN_ADMIN", "admin", "moderator").
	Role string `json:"role"`

	// Type is TypeFarmer or TypeAdmin.
	Type string `json:"type"`
}

// NewSessionClaims builds minimally-correct claims.
func NewSessionClaims(
	subject, email, role, typ string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email: email,
		Role:  role,
		Type:  typ,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryAt(time.Now().UTC(), 0)
}

// ValidateExpiryAt checks exp and nbf against now, allowing leeway for clock skew.
// A token without exp is rejected.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
