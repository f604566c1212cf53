// Package otp issues and checks the one-time codes that prove a farmer owns
// the email address they register with.
package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/agriconnect/farmerportal/pkg/cryptox"
)

const (
	DefaultTTL         = 5 * time.Minute
	DefaultMaxAttempts = 3

	codeMin = 100000
	codeMax = 999999
)

// ErrNotFound is returned by a Store when no challenge exists for an email.
var ErrNotFound = errors.New("otp: challenge not found")

// Challenge is the stored state of one outstanding code. Only the hash of
// the code is kept.
type Challenge struct {
	Email      string    `json:"email"`
	HashedCode string    `json:"hashedCode"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Attempts   int       `json:"attempts"`
}

// Expired reports whether the challenge is past its expiry at now.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Store persists challenges keyed by lowercase email.
type Store interface {
	// Put replaces any challenge for c.Email.
	Put(ctx context.Context, c Challenge) error
	// Get returns ErrNotFound when the email has no challenge.
	Get(ctx context.Context, email string) (Challenge, error)
	// Update writes back an existing challenge. Returns ErrNotFound when it
	// is gone.
	Update(ctx context.Context, c Challenge) error
	Delete(ctx context.Context, email string) error
	// DeleteExpired removes challenges that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Reason explains a failed verification.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNotFound        Reason = "not_found"
	ReasonExpired         Reason = "expired"
	ReasonTooManyAttempts Reason = "too_many_attempts"
	ReasonInvalidCode     Reason = "invalid_code"
)

// Result of a verification. Reason is empty when Valid.
type Result struct {
	Valid  bool
	Reason Reason
}

func hashCode(code string) string {
	return cryptox.FingerprintToken(code)
}

func codeMatches(code, hashed string) bool {
	return subtle.ConstantTimeCompare([]byte(hashCode(code)), []byte(hashed)) == 1
}
