package service

import (
	"context"
	"testing"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/pkg/jwtx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, true)
	ctx := context.Background()
	root := fx.seedAdmin(t, "root@portal.in", "admin-pass-1", domain.RoleMainAdmin)

	a, token, err := fx.admins.Login(ctx, " ROOT@portal.in ", "admin-pass-1", "")
	require.NoError(t, err)
	require.Equal(t, root.ID, a.ID)
	require.NotNil(t, a.LastLoginAt)

	claims, err := fx.tokens.Verify(token)
	require.NoError(t, err)
	require.Equal(t, jwtx.TypeAdmin, claims.Type)
	require.Equal(t, string(domain.RoleMainAdmin), claims.Role)
	require.Equal(t, jwtx.AdminTokenTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))

	_, _, err = fx.admins.Login(ctx, "root@portal.in", "wrong-password", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = fx.admins.Login(ctx, "nobody@portal.in", "admin-pass-1", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLoginInactive(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, true)
	ctx := context.Background()

	hash := fx.seedAdmin(t, "tmp@portal.in", "admin-pass-1", domain.RoleAdmin).PasswordHash
	off := domain.Admin{
		ID: "adm_off", Email: "off@portal.in", Username: "off", PasswordHash: hash,
		Role: domain.RoleAdmin, CreatedAt: fx.clock.Now(), UpdatedAt: fx.clock.Now(),
	}
	require.NoError(t, fx.store.Admins().Create(ctx, off))

	_, _, err := fx.admins.Login(ctx, "off@portal.in", "wrong-password", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = fx.admins.Login(ctx, "off@portal.in", "admin-pass-1", "")
	var ferr *ForbiddenError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, portalsdk.AccountStatusInactive, ferr.Status)
}

func TestMFALifecycle(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, true)
	ctx := context.Background()
	root := fx.seedAdmin(t, "root@portal.in", "admin-pass-1", domain.RoleMainAdmin)

	code := func(secret string) string {
		c, err := totp.GenerateCodeCustom(secret, fx.clock.Now(), totpOpts)
		require.NoError(t, err)
		return c
	}

	require.ErrorIs(t, fx.mfa.Confirm(ctx, root.ID, "123456"), ErrMFANotEnrolled)

	enr, err := fx.mfa.Enroll(ctx, root.ID)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)
	require.Contains(t, enr.URL, "otpauth://totp/")
	require.Contains(t, enr.URL, "Krushi")

	// Enrolment alone does not gate login.
	_, _, err = fx.admins.Login(ctx, "root@portal.in", "admin-pass-1", "")
	require.NoError(t, err)

	require.ErrorIs(t, fx.mfa.Confirm(ctx, root.ID, "000000"), ErrMFAInvalid)
	require.NoError(t, fx.mfa.Confirm(ctx, root.ID, code(enr.Secret)))
	require.ErrorIs(t, fx.mfa.Confirm(ctx, root.ID, code(enr.Secret)), ErrMFAAlreadyEnabled)
	_, err = fx.mfa.Enroll(ctx, root.ID)
	require.ErrorIs(t, err, ErrMFAAlreadyEnabled)

	fx.clock.Advance(2 * time.Minute)

	_, _, err = fx.admins.Login(ctx, "root@portal.in", "admin-pass-1", "")
	require.ErrorIs(t, err, ErrMFARequired)
	_, _, err = fx.admins.Login(ctx, "root@portal.in", "admin-pass-1", "000000")
	require.ErrorIs(t, err, ErrMFAInvalid)
	_, _, err = fx.admins.Login(ctx, "root@portal.in", "wrong-password", code(enr.Secret))
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = fx.admins.Login(ctx, "root@portal.in", "admin-pass-1", code(enr.Secret))
	require.NoError(t, err)

	require.ErrorIs(t, fx.mfa.Disable(ctx, root.ID, "000000"), ErrMFAInvalid)
	require.NoError(t, fx.mfa.Disable(ctx, root.ID, code(enr.Secret)))
	require.ErrorIs(t, fx.mfa.Disable(ctx, root.ID, code(enr.Secret)), ErrMFANotEnabled)

	_, _, err = fx.admins.Login(ctx, "root@portal.in", "admin-pass-1", "")
	require.NoError(t, err)

	_, err = fx.mfa.Enroll(ctx, "adm_missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureMainAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates once", func(t *testing.T) {
		fx := newFixture(t, true)
		b := &BootstrapService{Store: fx.store, Email: "Root@Portal.in", Password: "admin-pass-1", Now: fx.clock.Now}

		created, err := b.EnsureMainAdmin(ctx)
		require.NoError(t, err)
		require.True(t, created)

		created, err = b.EnsureMainAdmin(ctx)
		require.NoError(t, err)
		require.False(t, created)

		a, token, err := fx.admins.Login(ctx, "root@portal.in", "admin-pass-1", "")
		require.NoError(t, err)
		require.Equal(t, "admin", a.Username)
		require.Equal(t, domain.RoleMainAdmin, a.Role)

		_, err = fx.guard.RequireAdmin(ctx, token, domain.RoleMainAdmin)
		require.NoError(t, err)
	})

	t.Run("unconfigured", func(t *testing.T) {
		fx := newFixture(t, true)
		b := &BootstrapService{Store: fx.store}
		_, err := b.EnsureMainAdmin(ctx)
		require.ErrorIs(t, err, ErrBootstrapNotConfigured)
	})

	t.Run("weak password", func(t *testing.T) {
		fx := newFixture(t, true)
		b := &BootstrapService{Store: fx.store, Email: "root@portal.in", Password: "short"}
		_, err := b.EnsureMainAdmin(ctx)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "ADMIN_PASSWORD")
	})

	t.Run("existing main admin wins", func(t *testing.T) {
		fx := newFixture(t, true)
		fx.seedAdmin(t, "first@portal.in", "admin-pass-1", domain.RoleMainAdmin)
		b := &BootstrapService{Store: fx.store, Email: "second@portal.in", Password: "admin-pass-2"}

		created, err := b.EnsureMainAdmin(ctx)
		require.NoError(t, err)
		require.False(t, created)

		_, _, err = fx.admins.Login(ctx, "second@portal.in", "admin-pass-2", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
