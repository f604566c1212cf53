package http_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	portalhttp "github.com/agriconnect/farmerportal/internal/portal/http"
	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/agriconnect/farmerportal/internal/portal/otp"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/internal/portal/store/drivers/sqlite"
	"github.com/agriconnect/farmerportal/pkg/cryptox"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/pquerna/otp/totp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cryptox.SetPepper("http-test-pepper")
	os.Exit(m.Run())
}

const (
	adminEmail    = "root@portal.in"
	adminPassword = "admin-pass-1"
	farmerPass    = "Passw0rd!"
)

var mailedCode = regexp.MustCompile(`\b\d{6}\b`)

type outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (o *outbox) Send(_ context.Context, to, _, html string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = map[string]string{}
	}
	o.codes[to] = mailedCode.FindString(html)
	return nil
}

func (o *outbox) code(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[to]
}

type stubPrices struct {
	mu        sync.Mutex
	refreshes int
}

func (p *stubPrices) Latest(context.Context) feeds.PriceSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return feeds.PriceSet{
		Prices: []feeds.Price{{
			Commodity:  "Rice",
			Market:     "Mysore",
			State:      "Karnataka",
			MinPrice:   decimal.RequireFromString("2100.50"),
			MaxPrice:   decimal.NewFromInt(2400),
			ModalPrice: decimal.NewFromInt(2250),
			Unit:       "Rs/quintal",
		}},
		Source: "stub",
		Stale:  p.refreshes == 0,
	}
}

func (p *stubPrices) Refresh(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	return nil
}

type stubWeather struct{}

func (stubWeather) ByLocation(_ context.Context, loc string) feeds.WeatherSnapshot {
	return feeds.WeatherSnapshot{Location: loc, TemperatureC: 27.5, Humidity: 70, Description: "haze"}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type env struct {
	client *portalsdk.Client
	url    string
	mail   *outbox
	admin  *portalsdk.Session
}

type envOption func(*portalhttp.Router, *service.AccountService)

func withLimits(l portalhttp.Limits) envOption {
	return func(r *portalhttp.Router, _ *service.AccountService) { r.Limits = l }
}

func otpOnly() envOption {
	return func(_ *portalhttp.Router, a *service.AccountService) { a.RequireAdminApproval = false }
}

func looseLimits() portalhttp.Limits {
	l := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	return portalhttp.Limits{Strict: l, Registration: l, Moderate: l, Lenient: l, Public: l}
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := service.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "farmer-portal", nil)
	require.NoError(t, err)

	mail := &outbox{}
	creds := &service.Credentials{Store: st}
	accounts := &service.AccountService{
		Store:                st,
		Credentials:          creds,
		Tokens:               tokens,
		OTP:                  otp.NewVerifier(otp.NewMemoryStore(), mail),
		RequireAdminApproval: true,
	}
	mfa := &service.MFAService{Store: st, Issuer: "Krushi Mithra"}

	_, err = (&service.BootstrapService{Store: st, Email: adminEmail, Password: adminPassword}).EnsureMainAdmin(ctx)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := portalhttp.NewRouter("test", logger)
	r.Limits = looseLimits()
	r.Ready["database"] = st
	r.Guard = &service.Guard{Tokens: tokens, Store: st, Accounts: accounts}
	r.Accounts = accounts
	r.Credentials = creds
	r.Admins = &service.AdminService{Store: st, Tokens: tokens, MFA: mfa}
	r.MFA = mfa
	r.Subsidies = &service.SubsidyService{Store: st}
	r.Notifications = &service.NotificationService{Store: st}
	r.Stats = &service.StatsService{Store: st}
	prices := &service.MarketPriceService{Store: st, Feed: &stubPrices{}}
	r.MarketPrices = prices
	r.Prices = prices
	r.Weather = stubWeather{}
	for _, o := range opts {
		o(r, accounts)
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := portalsdk.NewClient(srv.URL)
	admin, _, err := client.AdminLogin(ctx, portalsdk.AdminLoginRequest{Email: adminEmail, Password: adminPassword})
	require.NoError(t, err)

	return &env{client: client, url: srv.URL, mail: mail, admin: admin}
}

func registerRequest(email, mobile string) portalsdk.RegisterRequest {
	return portalsdk.RegisterRequest{
		FullName: "Ravi Kumar",
		Email:    email,
		Mobile:   mobile,
		Password: farmerPass,
		Location: "Mandya, Karnataka",
		CropType: "rice",
		Language: "kannada",
	}
}

func requireAPIError(t *testing.T, err error, status int, code string) *portalsdk.APIError {
	t.Helper()
	var apiErr *portalsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode, apiErr.Error())
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestRegisterApproveLogin(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.client.Register(ctx, registerRequest("a@b.com", "9812345678"))
	require.NoError(t, err)
	require.Equal(t, "pending", reg.Farmer.Status)
	require.False(t, reg.Farmer.IsActive)
	require.Empty(t, reg.Token)

	_, _, err = e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "a@b.com", Password: farmerPass})
	apiErr := requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive)
	require.Equal(t, portalsdk.AccountStatusPending, apiErr.Status)

	approved, err := e.admin.ApproveFarmer(ctx, reg.Farmer.ID)
	require.NoError(t, err)
	require.Equal(t, "approved", approved.Status)
	require.True(t, approved.IsActive)
	require.NotNil(t, approved.ApprovedAt)
	require.NotEmpty(t, approved.ApprovedBy)

	_, err = e.admin.ApproveFarmer(ctx, reg.Farmer.ID)
	requireAPIError(t, err, http.StatusConflict, portalsdk.ErrorCodeAlreadyApproved)

	sess, login, err := e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "A@B.com", Password: farmerPass})
	require.NoError(t, err)
	require.NotEmpty(t, login.Token)
	require.Equal(t, reg.Farmer.ID, login.Farmer.ID)

	profile, err := sess.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", profile.Email)
	require.NotNil(t, profile.LastLoginAt)
}

func TestRejectedLogin(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.client.Register(ctx, registerRequest("reject@b.com", "9812300001"))
	require.NoError(t, err)

	silent, err := e.client.Register(ctx, registerRequest("silent@b.com", "9812300009"))
	require.NoError(t, err)
	_, err = e.admin.RejectFarmer(ctx, silent.Farmer.ID, "")
	require.NoError(t, err)
	_, _, err = e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "silent@b.com", Password: farmerPass})
	apiErr := requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive)
	require.Equal(t, "Not specified", apiErr.Reason)

	rejected, err := e.admin.RejectFarmer(ctx, reg.Farmer.ID, "invalid documents")
	require.NoError(t, err)
	require.Equal(t, "rejected", rejected.Status)

	_, _, err = e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "reject@b.com", Password: farmerPass})
	apiErr = requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive)
	require.Equal(t, portalsdk.AccountStatusRejected, apiErr.Status)
	require.Equal(t, "invalid documents", apiErr.Reason)

	// A wrong password never reveals the account state.
	_, _, err = e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "reject@b.com", Password: "wrong-password"})
	apiErr = requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)
	require.Empty(t, apiErr.Status)

	_, _, err = e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "nobody@b.com", Password: farmerPass})
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)

	_, err = e.admin.SuspendFarmer(ctx, reg.Farmer.ID, "spam")
	requireAPIError(t, err, http.StatusConflict, portalsdk.ErrorCodeInvalidTransition)
}

func TestRegisterValidationAndConflict(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	bad := registerRequest("not-an-email", "12345")
	bad.CropType = "tea"
	_, err := e.client.Register(ctx, bad)
	apiErr := requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)
	require.Contains(t, apiErr.Details, "email")
	require.Contains(t, apiErr.Details, "mobile")
	require.Contains(t, apiErr.Details, "cropType")

	_, err = e.client.Register(ctx, registerRequest("dup@b.com", "9812300002"))
	require.NoError(t, err)
	_, err = e.client.Register(ctx, registerRequest("other@b.com", "9812300002"))
	requireAPIError(t, err, http.StatusConflict, portalsdk.ErrorCodeConflict)

	resp, err := http.Post(e.url+"/api/farmers/register", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOTPRegistration(t *testing.T) {
	t.Parallel()
	e := newEnv(t, otpOnly())
	ctx := context.Background()

	sent, err := e.client.RequestOTP(ctx, portalsdk.RequestOTPRequest{Email: "otp@b.com", FullName: "Lakshmi Devi"})
	require.NoError(t, err)
	require.Equal(t, int(otp.DefaultTTL.Seconds()), sent.ExpiresIn)
	code := e.mail.code("otp@b.com")
	require.Len(t, code, 6)

	req := portalsdk.VerifyOTPRequest{RegisterRequest: registerRequest("otp@b.com", "9812300003"), OTP: "000000"}
	if code == req.OTP {
		req.OTP = "000001"
	}
	_, err = e.client.VerifyOTP(ctx, req)
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeOTPInvalid)

	req.OTP = code
	reg, err := e.client.VerifyOTP(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "approved", reg.Farmer.Status)
	require.True(t, reg.Farmer.IsVerified)
	require.NotEmpty(t, reg.Token)

	prices, err := e.client.NewSession(reg.Token).MarketPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices.Prices, 1)
	require.InDelta(t, 2100.5, prices.Prices[0].MinPrice, 0.001)

	// Replaying the request hits the registered account before the code.
	_, err = e.client.VerifyOTP(ctx, req)
	requireAPIError(t, err, http.StatusConflict, portalsdk.ErrorCodeConflict)

	_, err = e.client.RequestOTP(ctx, portalsdk.RequestOTPRequest{Email: "otp@b.com", FullName: "Lakshmi Devi"})
	requireAPIError(t, err, http.StatusConflict, portalsdk.ErrorCodeConflict)

	// Without a verified email the OTP-only policy refuses direct signup.
	_, err = e.client.Register(ctx, registerRequest("direct@b.com", "9812300004"))
	apiErr := requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)
	require.Contains(t, apiErr.Details, "email")
}

func TestTokenEnforcement(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url+"/api/farmers/profile", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")

	_, err = e.client.NewSession("garbage").Profile(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidToken)

	reg, err := e.client.Register(ctx, registerRequest("p@b.com", "9812300005"))
	require.NoError(t, err)
	_, err = e.admin.ApproveFarmer(ctx, reg.Farmer.ID)
	require.NoError(t, err)
	farmer, _, err := e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "p@b.com", Password: farmerPass})
	require.NoError(t, err)

	// Farmer tokens never reach admin routes, and admin tokens never reach
	// farmer routes.
	_, err = farmer.ListFarmers(ctx, portalsdk.ListFarmersOptions{})
	requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeForbidden)
	_, err = e.admin.Profile(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidToken)

	// Suspension takes effect on the very next request.
	_, err = e.admin.SuspendFarmer(ctx, reg.Farmer.ID, "audit")
	require.NoError(t, err)
	_, err = farmer.Subsidies(ctx, "")
	apiErr := requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive)
	require.Equal(t, portalsdk.AccountStatusSuspended, apiErr.Status)
	require.Equal(t, "audit", apiErr.Reason)

	profile, err := farmer.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, "suspended", profile.Status)
	require.Equal(t, "audit", profile.SuspensionReason)

	restored, err := e.admin.OverrideFarmer(ctx, reg.Farmer.ID, portalsdk.OverrideRequest{Status: "approved", Reason: "appeal"})
	require.NoError(t, err)
	require.Equal(t, "approved", restored.Status)
	_, err = farmer.Subsidies(ctx, "")
	require.NoError(t, err)

	_, err = e.admin.OverrideFarmer(ctx, reg.Farmer.ID, portalsdk.OverrideRequest{Status: "archived"})
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)
}

func TestFarmerSelfService(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.client.Register(ctx, registerRequest("self@b.com", "9812300006"))
	require.NoError(t, err)
	_, err = e.admin.ApproveFarmer(ctx, reg.Farmer.ID)
	require.NoError(t, err)
	farmer, _, err := e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "self@b.com", Password: farmerPass})
	require.NoError(t, err)

	loc := "Hassan"
	updated, err := farmer.UpdateProfile(ctx, portalsdk.UpdateProfileRequest{Location: &loc})
	require.NoError(t, err)
	require.Equal(t, "Hassan", updated.Location)

	_, err = farmer.UpdateProfile(ctx, portalsdk.UpdateProfileRequest{})
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)

	w, err := farmer.Weather(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "Hassan", w.Location)
	w, err = farmer.Weather(ctx, "Tumkur")
	require.NoError(t, err)
	require.Equal(t, "Tumkur", w.Location)

	err = farmer.ChangePassword(ctx, portalsdk.ChangePasswordRequest{CurrentPassword: "wrong-password", NewPassword: "N3w-passw0rd"})
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)
	require.NoError(t, farmer.ChangePassword(ctx, portalsdk.ChangePasswordRequest{CurrentPassword: farmerPass, NewPassword: "N3w-passw0rd"}))

	_, _, err = e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "self@b.com", Password: farmerPass})
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)
	_, _, err = e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "self@b.com", Password: "N3w-passw0rd"})
	require.NoError(t, err)
}

func TestAdminContent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.client.Register(ctx, registerRequest("c@b.com", "9812300007"))
	require.NoError(t, err)
	_, err = e.admin.ApproveFarmer(ctx, reg.Farmer.ID)
	require.NoError(t, err)
	farmer, _, err := e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "c@b.com", Password: farmerPass})
	require.NoError(t, err)

	_, err = e.admin.CreateSubsidy(ctx, portalsdk.SubsidyRequest{Title: "x"})
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)

	sub, err := e.admin.CreateSubsidy(ctx, portalsdk.SubsidyRequest{
		Title:       "Drip irrigation",
		Description: "90% subsidy on drip kits",
		Amount:      45000,
		Eligibility: "Small farmers",
		Category:    "irrigation",
	})
	require.NoError(t, err)
	require.Equal(t, "Karnataka", sub.State)

	open, err := farmer.Subsidies(ctx, "irrigation")
	require.NoError(t, err)
	require.Len(t, open, 1)
	open, err = farmer.Subsidies(ctx, "loan")
	require.NoError(t, err)
	require.Empty(t, open)
	_, err = farmer.Subsidies(ctx, "bogus")
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)

	toggled, err := e.admin.ToggleSubsidy(ctx, sub.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsActive)
	open, err = farmer.Subsidies(ctx, "")
	require.NoError(t, err)
	require.Empty(t, open)
	require.NoError(t, e.admin.DeleteSubsidy(ctx, sub.ID))
	err = e.admin.DeleteSubsidy(ctx, sub.ID)
	requireAPIError(t, err, http.StatusNotFound, portalsdk.ErrorCodeNotFound)

	n, err := e.admin.Broadcast(ctx, portalsdk.NotificationRequest{Title: "Rain alert", Message: "Heavy rain expected", TargetAudience: "crop", TargetCrops: []string{"rice"}})
	require.NoError(t, err)
	_, err = e.admin.Broadcast(ctx, portalsdk.NotificationRequest{Title: "Cotton", Message: "Pest alert", TargetAudience: "crop", TargetCrops: []string{"cotton"}})
	require.NoError(t, err)

	list, err := farmer.Notifications(ctx)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	require.Equal(t, 1, list.Unread)
	require.NoError(t, farmer.MarkNotificationRead(ctx, n.ID))
	list, err = farmer.Notifications(ctx)
	require.NoError(t, err)
	require.Zero(t, list.Unread)
	require.True(t, list.Notifications[0].Read)

	require.NoError(t, e.admin.DeleteNotification(ctx, n.ID))
	all, err := e.admin.ListAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	prices, err := e.admin.RefreshMarketPrices(ctx)
	require.NoError(t, err)
	require.False(t, prices.Stale)

	stats, err := e.admin.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.Approved)

	page, err := e.admin.ListFarmers(ctx, portalsdk.ListFarmersOptions{Status: "approved", Search: "ravi", Limit: 500})
	require.NoError(t, err)
	require.Len(t, page.Farmers, 1)
	require.Equal(t, 100, page.Pagination.Limit)
	require.Equal(t, 1, page.Pagination.Pages)

	_, err = e.admin.ListFarmers(ctx, portalsdk.ListFarmersOptions{Status: "archived"})
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)

	got, err := e.admin.GetFarmer(ctx, reg.Farmer.ID)
	require.NoError(t, err)
	require.Equal(t, "c@b.com", got.Email)
	_, err = e.admin.GetFarmer(ctx, "frm_missing")
	requireAPIError(t, err, http.StatusNotFound, portalsdk.ErrorCodeNotFound)
}

func TestAdminMarketPrices(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.client.Register(ctx, registerRequest("mandi@b.com", "9812300010"))
	require.NoError(t, err)
	_, err = e.admin.ApproveFarmer(ctx, reg.Farmer.ID)
	require.NoError(t, err)
	farmer, _, err := e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "mandi@b.com", Password: farmerPass})
	require.NoError(t, err)

	_, err = e.admin.CreateMarketPrice(ctx, portalsdk.MarketPriceRequest{Commodity: "Rice", Market: "Mysore"})
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)

	rice, err := e.admin.CreateMarketPrice(ctx, portalsdk.MarketPriceRequest{
		Commodity: "Rice", Market: "Mysore", Category: "grain", Unit: "quintal", Price: 2600,
	})
	require.NoError(t, err)
	require.Equal(t, "Karnataka", rice.State)
	require.InDelta(t, 2600, rice.MinPrice, 0.001)
	require.True(t, rice.IsActive)

	chilli, err := e.admin.CreateMarketPrice(ctx, portalsdk.MarketPriceRequest{
		Commodity: "Chilli", Market: "Byadgi", Category: "spice", Price: 180,
	})
	require.NoError(t, err)

	prices, err := farmer.MarketPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices.Prices, 2, "the manual rice price replaces the feed quote")
	for _, p := range prices.Prices {
		require.Equal(t, "manual", p.Source)
	}

	got, err := e.admin.GetMarketPrice(ctx, rice.ID)
	require.NoError(t, err)
	require.Equal(t, "Rice", got.Commodity)
	_, err = e.admin.GetMarketPrice(ctx, "mkp_missing")
	requireAPIError(t, err, http.StatusNotFound, portalsdk.ErrorCodeNotFound)

	updated, err := e.admin.UpdateMarketPrice(ctx, rice.ID, portalsdk.MarketPriceRequest{
		Commodity: "Rice", Market: "Mysore", Category: "grain", Unit: "quintal", Price: 2650,
	})
	require.NoError(t, err)
	require.InDelta(t, 2650, updated.Price, 0.001)
	require.NotEmpty(t, updated.UpdatedBy)

	spices, err := e.admin.ListMarketPrices(ctx, portalsdk.MarketPriceQuery{Category: "spice"})
	require.NoError(t, err)
	require.Equal(t, 1, spices.Count)
	require.Equal(t, chilli.ID, spices.Prices[0].ID)
	_, err = e.admin.ListMarketPrices(ctx, portalsdk.MarketPriceQuery{Category: "dairy"})
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)

	require.NoError(t, e.admin.DeleteMarketPrice(ctx, rice.ID))
	err = e.admin.DeleteMarketPrice(ctx, "mkp_missing")
	requireAPIError(t, err, http.StatusNotFound, portalsdk.ErrorCodeNotFound)

	active, err := e.admin.ListMarketPrices(ctx, portalsdk.MarketPriceQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, active.Count)
	everything, err := e.admin.ListMarketPrices(ctx, portalsdk.MarketPriceQuery{IncludeInactive: true})
	require.NoError(t, err)
	require.Equal(t, 2, everything.Count)

	prices, err = farmer.MarketPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices.Prices, 2)
	bySource := map[string]string{}
	for _, p := range prices.Prices {
		bySource[p.Commodity] = p.Source
	}
	require.Empty(t, bySource["Rice"], "the feed quote is back after the delete")
	require.Equal(t, "manual", bySource["Chilli"])

	stats, err := e.admin.MarketStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalPrices)
	require.Equal(t, 1, stats.ActivePrices)
	require.Equal(t, 2, stats.UniqueCommodities)
	require.NotNil(t, stats.LastUpdated)

	_, err = farmer.ListMarketPrices(ctx, portalsdk.MarketPriceQuery{})
	requireAPIError(t, err, http.StatusForbidden, portalsdk.ErrorCodeForbidden)
}

func TestAdminMFA(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	enr, err := e.admin.EnrollMFA(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, enr.Secret)

	err = e.admin.ConfirmMFA(ctx, "12")
	requireAPIError(t, err, http.StatusBadRequest, portalsdk.ErrorCodeValidation)

	code, err := totp.GenerateCode(enr.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, e.admin.ConfirmMFA(ctx, code))

	_, _, err = e.client.AdminLogin(ctx, portalsdk.AdminLoginRequest{Email: adminEmail, Password: adminPassword})
	requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeMFARequired)

	code, err = totp.GenerateCode(enr.Secret, time.Now())
	require.NoError(t, err)
	_, login, err := e.client.AdminLogin(ctx, portalsdk.AdminLoginRequest{Email: adminEmail, Password: adminPassword, TOTPCode: code})
	require.NoError(t, err)
	require.True(t, login.Admin.MFAEnabled)
	require.Equal(t, string(domain.RoleMainAdmin), login.Admin.Role)
}

func TestLoginRateLimit(t *testing.T) {
	t.Parallel()
	limits := looseLimits()
	limits.Strict = httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Hour, Burst: 2}
	e := newEnv(t, withLimits(limits))
	ctx := context.Background()

	// The admin login in newEnv used one token of the strict bucket for
	// the admin email; a different email has its own bucket.
	for range 2 {
		_, _, err := e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "x@b.com", Password: "wrong-password"})
		requireAPIError(t, err, http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials)
	}
	_, _, err := e.client.FarmerLogin(ctx, portalsdk.LoginRequest{Email: "x@b.com", Password: "wrong-password"})
	requireAPIError(t, err, http.StatusTooManyRequests, portalsdk.ErrorCodeRateLimited)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()
	live, err := e.client.Livez(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := e.client.Readyz(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks["database"])

	down := newEnv(t, func(r *portalhttp.Router, _ *service.AccountService) {
		r.Ready["cache"] = failingPinger{}
	})
	resp, err := http.Get(down.url + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
