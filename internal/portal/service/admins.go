package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/cryptox"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// AdminService handles admin sign-in.
type AdminService struct {
	Store  store.Store
	Tokens *TokenService
	MFA    *MFAService
	Now    func() time.Time
}

func (s *AdminService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Login checks the password, the active flag and, when enabled, the TOTP
// code, then issues an admin token.
func (s *AdminService) Login(ctx context.Context, email, password, totpCode string) (domain.Admin, string, error) {
	log := slogx.FromContext(ctx)

	a, err := s.Store.Admins().GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		burnVerify(password)
		log.Info("admin login denied", slog.String("outcome", string(OutcomeInvalidCredentials)))
		return domain.Admin{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return domain.Admin{}, "", fmt.Errorf("load admin: %w", err)
	}

	ok, err := cryptox.VerifyPassword(password, a.PasswordHash)
	if err != nil {
		return domain.Admin{}, "", fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		log.Info("admin login denied", slog.String("outcome", string(OutcomeInvalidCredentials)))
		return domain.Admin{}, "", ErrInvalidCredentials
	}
	if !a.IsActive {
		return domain.Admin{}, "", &ForbiddenError{Status: portalsdk.AccountStatusInactive}
	}
	if err := s.MFA.check(a, totpCode); err != nil {
		log.Info("admin login denied", slog.String("admin_id", a.ID), slog.Any("error", err))
		return domain.Admin{}, "", err
	}

	if cryptox.NeedsRehash(a.PasswordHash) {
		if hash, err := cryptox.HashPassword(password); err == nil {
			if err := s.Store.Admins().UpdatePasswordHash(ctx, a.ID, hash, s.now()); err != nil {
				log.Error("legacy hash upgrade failed", slog.String("admin_id", a.ID), slog.Any("error", err))
			}
		}
	}

	now := s.now()
	if err := s.Store.Admins().RecordLogin(ctx, a.ID, now); err != nil {
		return domain.Admin{}, "", fmt.Errorf("record login: %w", err)
	}
	a.LastLoginAt = &now

	token, err := s.Tokens.IssueAdmin(a)
	if err != nil {
		return domain.Admin{}, "", err
	}

	log.Info("admin logged in", slog.String("admin_id", a.ID), slog.String("role", string(a.Role)))
	return a, token, nil
}
