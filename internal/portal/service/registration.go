package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
)

// RegisterResult is a new account and, when it may already sign in, a
// session token.
type RegisterResult struct {
	Farmer domain.Farmer
	Token  string
}

// RequestOTP mails a verification code to an unregistered email.
func (s *AccountService) RequestOTP(ctx context.Context, email, fullName string) error {
	if s.OTP == nil {
		return errors.New("otp verifier not configured")
	}
	if err := invalid(portalsdk.RequestOTPRequest{Email: email, FullName: fullName}.Validate()); err != nil {
		return err
	}

	_, err := s.Credentials.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrConflict
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if _, err := s.OTP.Issue(ctx, email, fullName); err != nil {
		return fmt.Errorf("issue otp: %w", err)
	}
	return nil
}

// RegisterWithOTP checks the emailed code and registers the farmer as
// verified. The profile and the email and mobile uniqueness are checked
// first so neither a typo nor a taken account burns an attempt.
func (s *AccountService) RegisterWithOTP(ctx context.Context, in RegisterInput, code string) (RegisterResult, error) {
	if s.OTP == nil {
		return RegisterResult{}, errors.New("otp verifier not configured")
	}
	if err := in.validate(); err != nil {
		return RegisterResult{}, err
	}

	_, err := s.Credentials.FindByEmailOrMobile(ctx, in.Email, in.Mobile)
	switch {
	case err == nil:
		return RegisterResult{}, ErrConflict
	case !errors.Is(err, ErrNotFound):
		return RegisterResult{}, err
	}

	res, err := s.OTP.Verify(ctx, in.Email, code)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("verify otp: %w", err)
	}
	if !res.Valid {
		return RegisterResult{}, &OTPError{Reason: res.Reason}
	}

	f, err := s.Register(ctx, in, true)
	if err != nil {
		return RegisterResult{}, err
	}
	out := RegisterResult{Farmer: f}

	// Accounts approved on creation get a session straight away. The
	// account stays registered when signing fails; the farmer can log in.
	if s.statusEligibility(f).OK() {
		token, err := s.Tokens.IssueFarmer(f)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("issue token: %w", err)
		}
		out.Token = token
	}
	return out, nil
}
