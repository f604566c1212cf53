package portal_test

import (
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/stretchr/testify/require"
)

// TestApprovalLifecycle walks a farmer through pending, approved,
// suspended and back.
func TestApprovalLifecycle(t *testing.T) {
	p := setupPortal(t, nil)
	admin := p.loginAdmin(t)
	ctx := t.Context()

	reg, err := p.client.Register(ctx, registration(1))
	require.NoError(t, err)
	require.Equal(t, "pending", reg.Farmer.Status)
	require.Empty(t, reg.Token, "Pending farmers get no session")

	creds := portalsdk.LoginRequest{Email: registration(1).Email, Password: farmerPass}
	_, _, err = p.client.FarmerLogin(ctx, creds)
	apiErr := requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive)
	require.Equal(t, portalsdk.AccountStatusPending, apiErr.Status)

	_, err = admin.ApproveFarmer(ctx, reg.Farmer.ID)
	require.NoError(t, err)

	farmer, _, err := p.client.FarmerLogin(ctx, creds)
	require.NoError(t, err)
	_, err = farmer.Subsidies(ctx, "")
	require.NoError(t, err)

	_, err = admin.SuspendFarmer(ctx, reg.Farmer.ID, "document audit")
	require.NoError(t, err)

	// The token is still valid, the account is not.
	_, err = farmer.Notifications(ctx)
	apiErr = requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive)
	require.Equal(t, portalsdk.AccountStatusSuspended, apiErr.Status)
	require.Equal(t, "document audit", apiErr.Reason)

	_, err = admin.OverrideFarmer(ctx, reg.Farmer.ID, portalsdk.OverrideRequest{Status: "approved", Reason: "audit passed"})
	require.NoError(t, err)
	_, err = farmer.Notifications(ctx)
	require.NoError(t, err)

	stats, err := admin.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Approved)
}

// TestConcurrentApproval checks that racing approvals succeed exactly once.
func TestConcurrentApproval(t *testing.T) {
	p := setupPortal(t, nil)
	admin := p.loginAdmin(t)
	ctx := t.Context()

	reg, err := p.client.Register(ctx, registration(2))
	require.NoError(t, err)

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, dups int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := admin.ApproveFarmer(ctx, reg.Farmer.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			var apiErr *portalsdk.APIError
			if errors.As(err, &apiErr) && apiErr.Code == portalsdk.ErrorCodeAlreadyApproved {
				dups++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, dups)
}

// TestRejectedFarmerSeesReason verifies the rejection reason reaches login.
func TestRejectedFarmerSeesReason(t *testing.T) {
	p := setupPortal(t, nil)
	admin := p.loginAdmin(t)
	ctx := t.Context()

	reg, err := p.client.Register(ctx, registration(3))
	require.NoError(t, err)
	_, err = admin.RejectFarmer(ctx, reg.Farmer.ID, "invalid documents")
	require.NoError(t, err)

	_, _, err = p.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: registration(3).Email, Password: farmerPass})
	apiErr := requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive)
	require.Equal(t, portalsdk.AccountStatusRejected, apiErr.Status)
	require.Equal(t, "invalid documents", apiErr.Reason)

	_, err = admin.ApproveFarmer(ctx, reg.Farmer.ID)
	requireAPIError(t, err, http.StatusConflict, portalsdk.ErrorCodeInvalidTransition)
}

// TestOTPRegistration registers through the emailed code under the
// OTP-only policy, reading the code from the log mail driver.
func TestOTPRegistration(t *testing.T) {
	p := setupPortal(t, map[string]string{"REQUIRE_ADMIN_APPROVAL": "false"})
	ctx := t.Context()

	req := registration(4)
	_, err := p.client.RequestOTP(ctx, portalsdk.RequestOTPRequest{Email: req.Email, FullName: req.FullName})
	require.NoError(t, err)

	code := p.mailedOTP(t, req.Email)
	reg, err := p.client.VerifyOTP(ctx, portalsdk.VerifyOTPRequest{RegisterRequest: req, OTP: code})
	require.NoError(t, err)
	require.Equal(t, "approved", reg.Farmer.Status)
	require.NotEmpty(t, reg.Token)

	prices, err := p.client.NewSession(reg.Token).MarketPrices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, prices.Prices, "Fallback prices are served without a market API")
}
