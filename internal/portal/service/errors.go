package service

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/agriconnect/farmerportal/internal/portal/otp"
)

var (
	ErrConflict           = errors.New("email or mobile already registered")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("authentication required")
	ErrAlreadyApproved    = errors.New("farmer already approved")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrInsufficientRole   = errors.New("insufficient role")
)

// ValidationError reports rejected input fields.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// invalid returns a *ValidationError for fields, or nil when fields is empty.
func invalid(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func invalidField(field, reason string) error {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// ForbiddenError is returned when the credentials are good but the account
// may not proceed. Status is one of the portalsdk.AccountStatus values.
type ForbiddenError struct {
	Status string
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("account %s: %s", strings.ToLower(e.Status), e.Reason)
	}
	return "account " + strings.ToLower(e.Status)
}

// OTPError carries the reason an OTP check failed.
type OTPError struct {
	Reason otp.Reason
}

func (e *OTPError) Error() string { return "otp verification failed: " + string(e.Reason) }
