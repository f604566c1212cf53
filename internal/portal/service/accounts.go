package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/otp"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// RegisterInput is the profile a farmer submits at registration.
type RegisterInput struct {
	FullName string
	Email    string
	Mobile   string
	Password string
	Location string
	CropType domain.CropType
	Language domain.Language
}

func (in RegisterInput) validate() error {
	return invalid(portalsdk.RegisterRequest{
		FullName: in.FullName,
		Email:    in.Email,
		Mobile:   in.Mobile,
		Password: in.Password,
		Location: in.Location,
		CropType: string(in.CropType),
		Language: string(in.Language),
	}.Validate())
}

// Outcome is the result of a login eligibility check.
type Outcome string

const (
	OutcomeApproved           Outcome = "approved"
	OutcomeInvalidCredentials Outcome = "invalid_credentials"
	OutcomePendingApproval    Outcome = "pending_approval"
	OutcomeRejected           Outcome = "rejected"
	OutcomeSuspended          Outcome = "suspended"
	OutcomeInactive           Outcome = "inactive"
	OutcomeUnverified         Outcome = "unverified"
)

// Eligibility says whether a farmer may log in. Reason carries the rejection
// or suspension reason.
type Eligibility struct {
	Outcome Outcome
	Reason  string
}

func (e Eligibility) OK() bool { return e.Outcome == OutcomeApproved }

// Err converts a denied outcome into ErrInvalidCredentials or a
// *ForbiddenError.
func (e Eligibility) Err() error {
	switch e.Outcome {
	case OutcomeApproved:
		return nil
	case OutcomeInvalidCredentials:
		return ErrInvalidCredentials
	case OutcomePendingApproval:
		return &ForbiddenError{Status: portalsdk.AccountStatusPending}
	case OutcomeRejected:
		return &ForbiddenError{Status: portalsdk.AccountStatusRejected, Reason: e.Reason}
	case OutcomeSuspended:
		return &ForbiddenError{Status: portalsdk.AccountStatusSuspended, Reason: e.Reason}
	case OutcomeUnverified:
		return &ForbiddenError{Status: portalsdk.AccountStatusUnverified}
	}
	return &ForbiddenError{Status: portalsdk.AccountStatusInactive}
}

// AccountService owns the farmer lifecycle: registration policy, admin
// transitions and login.
type AccountService struct {
	Store       store.Store
	Credentials *Credentials
	Tokens      *TokenService
	OTP         *otp.Verifier

	// RequireAdminApproval keeps new accounts pending until an admin
	// approves them. When false a verified email activates the account.
	RequireAdminApproval bool

	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register creates the farmer in the state the registration policy
// dictates:
//
//	approval required, unverified  -> pending
//	approval required, verified    -> pending, verified
//	OTP only, verified             -> approved, verified
//	OTP only, unverified           -> rejected with a validation error
func (s *AccountService) Register(ctx context.Context, in RegisterInput, verified bool) (domain.Farmer, error) {
	if err := in.validate(); err != nil {
		return domain.Farmer{}, err
	}

	nf := NewFarmer{RegisterInput: in, Status: domain.StatusPending, IsVerified: verified}
	if !s.RequireAdminApproval {
		if !verified {
			return domain.Farmer{}, invalidField("email", "verification required")
		}
		now := s.now()
		nf.Status = domain.StatusApproved
		nf.IsActive = true
		nf.ApprovedAt = &now
	}

	f, err := s.Credentials.Create(ctx, nf)
	if err != nil {
		return domain.Farmer{}, err
	}

	slogx.FromContext(ctx).Info("farmer registered",
		slog.String("farmer_id", f.ID),
		slog.String("status", string(f.Status)),
		slog.Bool("verified", f.IsVerified),
	)
	return f, nil
}

// Approve moves a pending farmer to approved and activates it.
func (s *AccountService) Approve(ctx context.Context, farmerID, adminID string) (domain.Farmer, error) {
	now := s.now()
	active := true
	f, err := s.transition(ctx, farmerID, []domain.FarmerStatus{domain.StatusPending}, domain.StatusChange{
		To:         domain.StatusApproved,
		IsActive:   &active,
		ApprovedAt: &now,
		ApprovedBy: adminID,
		At:         now,
	})
	if errors.Is(err, ErrInvalidTransition) && f.Status == domain.StatusApproved {
		return f, ErrAlreadyApproved
	}
	if err != nil {
		return f, err
	}

	slogx.FromContext(ctx).Info("farmer approved", slog.String("farmer_id", farmerID), slog.String("admin_id", adminID))
	return f, nil
}

// DefaultRejectionReason is recorded when an admin rejects without a reason.
const DefaultRejectionReason = "Not specified"

// Reject moves a pending farmer to rejected.
func (s *AccountService) Reject(ctx context.Context, farmerID, reason string) (domain.Farmer, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultRejectionReason
	}

	inactive := false
	f, err := s.transition(ctx, farmerID, []domain.FarmerStatus{domain.StatusPending}, domain.StatusChange{
		To:              domain.StatusRejected,
		IsActive:        &inactive,
		RejectionReason: reason,
		ClearApproval:   true,
		At:              s.now(),
	})
	if err != nil {
		return f, err
	}

	slogx.FromContext(ctx).Info("farmer rejected", slog.String("farmer_id", farmerID), slog.String("reason", reason))
	return f, nil
}

// Suspend deactivates an approved farmer.
func (s *AccountService) Suspend(ctx context.Context, farmerID, reason string) (domain.Farmer, error) {
	inactive := false
	f, err := s.transition(ctx, farmerID, []domain.FarmerStatus{domain.StatusApproved}, domain.StatusChange{
		To:               domain.StatusSuspended,
		IsActive:         &inactive,
		SuspensionReason: strings.TrimSpace(reason),
		At:               s.now(),
	})
	if err != nil {
		return f, err
	}

	slogx.FromContext(ctx).Info("farmer suspended", slog.String("farmer_id", farmerID))
	return f, nil
}

// Override forces a farmer into any status. It bypasses the transition
// rules and is always logged at WARN.
func (s *AccountService) Override(ctx context.Context, farmerID, adminID string, to domain.FarmerStatus, reason string) (domain.Farmer, error) {
	now := s.now()
	reason = strings.TrimSpace(reason)

	change := domain.StatusChange{To: to, At: now}
	active := to == domain.StatusApproved
	change.IsActive = &active
	switch to {
	case domain.StatusApproved:
		change.ApprovedAt = &now
		change.ApprovedBy = adminID
	case domain.StatusPending:
		change.ClearApproval = true
	case domain.StatusRejected:
		change.ClearApproval = true
		change.RejectionReason = reason
	case domain.StatusSuspended:
		change.SuspensionReason = reason
	default:
		return domain.Farmer{}, invalidField("status", "unknown status")
	}

	cur, err := s.Credentials.FindByID(ctx, farmerID)
	if err != nil {
		return domain.Farmer{}, err
	}
	f, err := s.transition(ctx, farmerID, []domain.FarmerStatus{cur.Status}, change)
	if err != nil {
		return f, err
	}

	slogx.FromContext(ctx).Warn("farmer status overridden",
		slog.Bool("override", true),
		slog.String("farmer_id", farmerID),
		slog.String("admin_id", adminID),
		slog.String("from", string(cur.Status)),
		slog.String("to", string(to)),
		slog.String("reason", reason),
	)
	return f, nil
}

// transition applies change when the farmer is in one of from. On a state
// mismatch it returns the current record with ErrInvalidTransition.
func (s *AccountService) transition(ctx context.Context, id string, from []domain.FarmerStatus, change domain.StatusChange) (domain.Farmer, error) {
	f, err := s.Store.Farmers().TransitionStatus(ctx, id, from, change)
	switch {
	case err == nil:
		return f, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.Farmer{}, ErrNotFound
	case errors.Is(err, store.ErrStateChanged):
		cur, gerr := s.Credentials.FindByID(ctx, id)
		if gerr != nil {
			return domain.Farmer{}, gerr
		}
		return cur, fmt.Errorf("%w: farmer is %s", ErrInvalidTransition, cur.Status)
	}
	return domain.Farmer{}, fmt.Errorf("transition farmer: %w", err)
}

// LoginEligibility evaluates, in order: missing account, password, status,
// active flag and, without admin approval, email verification. The password
// is checked before any status so a wrong password never reveals the state
// of the account.
func (s *AccountService) LoginEligibility(f *domain.Farmer, passwordOK bool) Eligibility {
	if f == nil || !passwordOK {
		return Eligibility{Outcome: OutcomeInvalidCredentials}
	}
	return s.statusEligibility(*f)
}

func (s *AccountService) statusEligibility(f domain.Farmer) Eligibility {
	switch f.Status {
	case domain.StatusPending:
		return Eligibility{Outcome: OutcomePendingApproval}
	case domain.StatusRejected:
		return Eligibility{Outcome: OutcomeRejected, Reason: f.RejectionReason}
	case domain.StatusSuspended:
		return Eligibility{Outcome: OutcomeSuspended, Reason: f.SuspensionReason}
	case domain.StatusApproved:
	default:
		return Eligibility{Outcome: OutcomeInactive}
	}
	if !f.IsActive {
		return Eligibility{Outcome: OutcomeInactive}
	}
	if !s.RequireAdminApproval && !f.IsVerified {
		return Eligibility{Outcome: OutcomeUnverified}
	}
	return Eligibility{Outcome: OutcomeApproved}
}

// Login checks the credentials and the account state, records the login and
// issues a farmer token.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.Farmer, string, error) {
	log := slogx.FromContext(ctx)

	var (
		account    *domain.Farmer
		passwordOK bool
	)
	f, err := s.Credentials.FindByEmail(ctx, email)
	switch {
	case err == nil:
		account = &f
		if passwordOK, err = s.Credentials.VerifyPassword(password, f.PasswordHash); err != nil {
			return domain.Farmer{}, "", err
		}
	case errors.Is(err, ErrNotFound):
		burnVerify(password)
	default:
		return domain.Farmer{}, "", err
	}

	el := s.LoginEligibility(account, passwordOK)
	if !el.OK() {
		log.Info("farmer login denied", slog.String("outcome", string(el.Outcome)))
		return domain.Farmer{}, "", el.Err()
	}

	s.Credentials.upgradeHash(ctx, f, password)

	now := s.now()
	if err := s.Store.Farmers().RecordLogin(ctx, f.ID, now); err != nil {
		return domain.Farmer{}, "", fmt.Errorf("record login: %w", err)
	}
	f.LastLoginAt = &now

	token, err := s.Tokens.IssueFarmer(f)
	if err != nil {
		return domain.Farmer{}, "", err
	}

	log.Info("farmer logged in", slog.String("farmer_id", f.ID))
	return f, token, nil
}

// List pages through farmers for the admin console.
func (s *AccountService) List(ctx context.Context, filter domain.FarmerFilter) ([]domain.Farmer, int, error) {
	farmers, total, err := s.Store.Farmers().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list farmers: %w", err)
	}
	return farmers, total, nil
}
