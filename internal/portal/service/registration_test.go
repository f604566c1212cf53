package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/otp"
	"github.com/agriconnect/farmerportal/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var errSigner = errors.New("signer unavailable")

type failingSigner struct{}

func (failingSigner) Sign(jwtx.Claims) (string, error) { return "", errSigner }

func TestRegisterWithOTP(t *testing.T) {
	t.Parallel()

	t.Run("otp only activates", func(t *testing.T) {
		fx := newFixture(t, false)
		ctx := context.Background()
		in := farmerInput(1)

		require.NoError(t, fx.accounts.RequestOTP(ctx, in.Email, in.FullName))
		code := fx.mail.code(in.Email)
		require.Len(t, code, 6)

		res, err := fx.accounts.RegisterWithOTP(ctx, in, code)
		require.NoError(t, err)
		require.Equal(t, domain.StatusApproved, res.Farmer.Status)
		require.True(t, res.Farmer.IsVerified)
		require.NotEmpty(t, res.Token)

		got, err := fx.guard.RequireFarmer(ctx, res.Token)
		require.NoError(t, err)
		require.Equal(t, res.Farmer.ID, got.ID)

		// The code was consumed.
		check, err := fx.accounts.OTP.Verify(ctx, in.Email, code)
		require.NoError(t, err)
		require.Equal(t, otp.ReasonNotFound, check.Reason)

		in2 := farmerInput(2)
		in2.Email = in.Email
		_, err = fx.accounts.RegisterWithOTP(ctx, in2, code)
		require.ErrorIs(t, err, ErrConflict)
	})

	t.Run("approval required stays pending", func(t *testing.T) {
		fx := newFixture(t, true)
		ctx := context.Background()
		in := farmerInput(1)

		require.NoError(t, fx.accounts.RequestOTP(ctx, in.Email, in.FullName))
		res, err := fx.accounts.RegisterWithOTP(ctx, in, fx.mail.code(in.Email))
		require.NoError(t, err)
		require.Equal(t, domain.StatusPending, res.Farmer.Status)
		require.True(t, res.Farmer.IsVerified)
		require.Empty(t, res.Token)
	})

	t.Run("expired code", func(t *testing.T) {
		fx := newFixture(t, false)
		ctx := context.Background()
		in := farmerInput(1)

		require.NoError(t, fx.accounts.RequestOTP(ctx, in.Email, in.FullName))
		fx.clock.Advance(otp.DefaultTTL + time.Second)

		_, err := fx.accounts.RegisterWithOTP(ctx, in, fx.mail.code(in.Email))
		var oerr *OTPError
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, otp.ReasonExpired, oerr.Reason)
	})

	t.Run("invalid profile does not burn an attempt", func(t *testing.T) {
		fx := newFixture(t, false)
		ctx := context.Background()
		in := farmerInput(1)
		require.NoError(t, fx.accounts.RequestOTP(ctx, in.Email, in.FullName))

		bad := in
		bad.Mobile = "12345"
		for range otp.DefaultMaxAttempts + 1 {
			_, err := fx.accounts.RegisterWithOTP(ctx, bad, "000000")
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		}

		_, err := fx.accounts.RegisterWithOTP(ctx, in, fx.mail.code(in.Email))
		require.NoError(t, err)
	})

	t.Run("lockout", func(t *testing.T) {
		fx := newFixture(t, false)
		ctx := context.Background()
		in := farmerInput(1)
		require.NoError(t, fx.accounts.RequestOTP(ctx, in.Email, in.FullName))
		code := fx.mail.code(in.Email)
		wrong := "100000"
		if code == wrong {
			wrong = "100001"
		}

		for range otp.DefaultMaxAttempts {
			_, err := fx.accounts.RegisterWithOTP(ctx, in, wrong)
			var oerr *OTPError
			require.ErrorAs(t, err, &oerr)
			require.Equal(t, otp.ReasonInvalidCode, oerr.Reason)
		}
		_, err := fx.accounts.RegisterWithOTP(ctx, in, code)
		var oerr *OTPError
		require.ErrorAs(t, err, &oerr)
		require.Equal(t, otp.ReasonTooManyAttempts, oerr.Reason)
	})

	t.Run("taken mobile keeps the code", func(t *testing.T) {
		fx := newFixture(t, false)
		ctx := context.Background()
		taken := fx.register(t, 1)
		in := farmerInput(2)
		require.NoError(t, fx.accounts.RequestOTP(ctx, in.Email, in.FullName))
		code := fx.mail.code(in.Email)

		clash := in
		clash.Mobile = taken.Mobile
		_, err := fx.accounts.RegisterWithOTP(ctx, clash, code)
		require.ErrorIs(t, err, ErrConflict)

		res, err := fx.accounts.RegisterWithOTP(ctx, in, code)
		require.NoError(t, err)
		require.Equal(t, in.Mobile, res.Farmer.Mobile)
	})

	t.Run("token failure is returned", func(t *testing.T) {
		fx := newFixture(t, false)
		ctx := context.Background()
		in := farmerInput(1)
		require.NoError(t, fx.accounts.RequestOTP(ctx, in.Email, in.FullName))
		fx.tokens.Signer = failingSigner{}

		res, err := fx.accounts.RegisterWithOTP(ctx, in, fx.mail.code(in.Email))
		require.ErrorIs(t, err, errSigner)
		require.Empty(t, res.Token)
	})

	t.Run("registered email cannot request a code", func(t *testing.T) {
		fx := newFixture(t, true)
		f := fx.register(t, 1)
		err := fx.accounts.RequestOTP(context.Background(), f.Email, f.FullName)
		require.ErrorIs(t, err, ErrConflict)
		require.Empty(t, fx.mail.code(f.Email))
	})
}
