package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrMFARequired       = errors.New("TOTP code required")
	ErrMFAInvalid        = errors.New("invalid TOTP code")
	ErrMFANotEnrolled    = errors.New("MFA not enrolled")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this admin")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this admin")
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Enrollment is a fresh TOTP secret and its otpauth:// URL.
type Enrollment struct {
	Secret string
	URL    string
}

// MFAService manages the optional TOTP second factor of admins.
type MFAService struct {
	Store  store.Store
	Issuer string // shown in the authenticator app
	Now    func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Enroll generates and stores a TOTP secret. MFA stays off until Confirm
// sees a valid code; enrolling again replaces an unconfirmed secret.
func (s *MFAService) Enroll(ctx context.Context, adminID string) (Enrollment, error) {
	a, err := notFound(s.Store.Admins().GetByID(ctx, adminID))
	if err != nil {
		return Enrollment{}, err
	}
	if a.MFAEnabled() {
		return Enrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: a.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("generate TOTP key: %w", err)
	}
	if err := s.Store.Admins().SetMFASecret(ctx, adminID, key.Secret()); err != nil {
		return Enrollment{}, fmt.Errorf("store MFA secret: %w", err)
	}

	return Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Confirm enables MFA once code matches the enrolled secret.
func (s *MFAService) Confirm(ctx context.Context, adminID, code string) error {
	a, err := notFound(s.Store.Admins().GetByID(ctx, adminID))
	if err != nil {
		return err
	}
	if a.MFAEnabled() {
		return ErrMFAAlreadyEnabled
	}
	if a.MFASecret == nil || *a.MFASecret == "" {
		return ErrMFANotEnrolled
	}
	if !s.valid(code, *a.MFASecret) {
		return ErrMFAInvalid
	}

	if err := s.Store.Admins().EnableMFA(ctx, adminID, s.now()); err != nil {
		return fmt.Errorf("enable MFA: %w", err)
	}
	slogx.FromContext(ctx).Info("admin MFA enabled", slog.String("admin_id", adminID))
	return nil
}

// Disable turns MFA off. A current code is required.
func (s *MFAService) Disable(ctx context.Context, adminID, code string) error {
	a, err := notFound(s.Store.Admins().GetByID(ctx, adminID))
	if err != nil {
		return err
	}
	if !a.MFAEnabled() {
		return ErrMFANotEnabled
	}
	if !s.valid(code, *a.MFASecret) {
		return ErrMFAInvalid
	}

	if err := s.Store.Admins().DisableMFA(ctx, adminID); err != nil {
		return fmt.Errorf("disable MFA: %w", err)
	}
	slogx.FromContext(ctx).Warn("admin MFA disabled", slog.String("admin_id", adminID))
	return nil
}

// check enforces the second factor for a with MFA enabled.
func (s *MFAService) check(a domain.Admin, code string) error {
	if !a.MFAEnabled() {
		return nil
	}
	if code == "" {
		return ErrMFARequired
	}
	if !s.valid(code, *a.MFASecret) {
		return ErrMFAInvalid
	}
	return nil
}

func (s *MFAService) valid(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now(), totpOpts)
	return err == nil && ok
}
