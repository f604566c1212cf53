package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/cryptox"
	"github.com/agriconnect/farmerportal/pkg/idx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

var ErrBootstrapNotConfigured = errors.New("main admin credentials not configured")

// BootstrapService creates the single MAIN_ADMIN from configuration.
type BootstrapService struct {
	Store    store.Store
	Email    string
	Password string
	Username string
	Now      func() time.Time
}

// EnsureMainAdmin creates the MAIN_ADMIN when none exists. It returns false
// when one was already present.
func (s *BootstrapService) EnsureMainAdmin(ctx context.Context) (bool, error) {
	l := slogx.FromContext(ctx)

	exists, err := s.Store.Admins().ExistsWithRole(ctx, domain.RoleMainAdmin)
	if err != nil {
		return false, fmt.Errorf("check main admin: %w", err)
	}
	if exists {
		l.Debug("main admin already present, skipping bootstrap")
		return false, nil
	}

	if s.Email == "" || s.Password == "" {
		l.Warn("no main admin and ADMIN_EMAIL/ADMIN_PASSWORD unset, admin routes are unusable")
		return false, ErrBootstrapNotConfigured
	}
	fields := map[string]string{}
	if reason := portalsdk.CheckEmail(s.Email); reason != "" {
		fields["ADMIN_EMAIL"] = reason
	}
	if reason := portalsdk.CheckPassword(s.Password); reason != "" {
		fields["ADMIN_PASSWORD"] = reason
	}
	if err := invalid(fields); err != nil {
		return false, err
	}

	hash, err := cryptox.HashPassword(s.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	username := strings.TrimSpace(s.Username)
	if username == "" {
		username = "admin"
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	admin := domain.Admin{
		ID:           idx.NewPrefixed(idx.PrefixAdmin).String(),
		Email:        domain.NormalizeEmail(s.Email),
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleMainAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Admins().Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return false, fmt.Errorf("main admin email or username taken by another admin: %w", err)
		}
		return false, fmt.Errorf("create main admin: %w", err)
	}

	l.Info("main admin created", slog.String("admin_id", admin.ID), slog.String("email", admin.Email))
	return true, nil
}
