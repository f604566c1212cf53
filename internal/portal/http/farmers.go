package http

import (
	"net/http"
	"strings"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
)

// FarmerHandler serves the farmer-facing API.
type FarmerHandler struct {
	Accounts      *service.AccountService
	Credentials   *service.Credentials
	Subsidies     *service.SubsidyService
	Notifications *service.NotificationService
	Prices        feeds.MarketPriceProvider
	Weather       feeds.WeatherProvider
}

func registerInput(req portalsdk.RegisterRequest) service.RegisterInput {
	return service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Mobile:   req.Mobile,
		Password: req.Password,
		Location: req.Location,
		CropType: domain.CropType(req.CropType),
		Language: domain.Language(req.Language),
	}
}

// HandleRequestOTP handles POST /api/farmers/register/request-otp
//
//	@Summary		Request a registration code
//	@Description	Mails a 6-digit verification code to an email that is not yet registered.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.RequestOTPRequest		true	"Email and name"
//	@Success		200		{object}	portalsdk.RequestOTPResponse	"Code sent"
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Failure		409		{object}	portalsdk.ErrorResponse	"Email already registered"
//	@Failure		429		{object}	portalsdk.ErrorResponse
//	@Failure		502		{object}	portalsdk.ErrorResponse	"Mail delivery failed"
//	@Router			/api/farmers/register/request-otp [post].
func (h *FarmerHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.RequestOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Accounts.RequestOTP(r.Context(), req.Email, req.FullName); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.RequestOTPResponse{
		Message:   "Verification code sent to " + strings.TrimSpace(req.Email),
		ExpiresIn: int(h.Accounts.OTP.TTL.Seconds()),
	})
}

// HandleVerifyOTP handles POST /api/farmers/register/verify-otp
//
//	@Summary		Complete an OTP registration
//	@Description	Checks the emailed code and creates a verified account. A token is returned when the account may sign in straight away.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.VerifyOTPRequest	true	"Profile and code"
//	@Success		201		{object}	portalsdk.RegisterResponse
//	@Failure		400		{object}	portalsdk.ErrorResponse	"Validation failure or otp_* error"
//	@Failure		409		{object}	portalsdk.ErrorResponse	"Email or mobile already registered"
//	@Router			/api/farmers/register/verify-otp [post].
func (h *FarmerHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	res, err := h.Accounts.RegisterWithOTP(r.Context(), registerInput(req.RegisterRequest), strings.TrimSpace(req.OTP))
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := "Registration successful"
	if res.Farmer.Status == domain.StatusPending {
		msg = "Registration successful, awaiting admin approval"
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, portalsdk.RegisterResponse{
		Message: msg,
		Farmer:  farmerView(res.Farmer),
		Token:   res.Token,
	})
}

// HandleRegister handles POST /api/farmers/register
//
//	@Summary		Register without email verification
//	@Description	Creates an unverified account awaiting admin approval.
//	@Tags			Registration
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.RegisterRequest	true	"Profile"
//	@Success		201		{object}	portalsdk.RegisterResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Failure		409		{object}	portalsdk.ErrorResponse	"Email or mobile already registered"
//	@Router			/api/farmers/register [post].
func (h *FarmerHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	f, err := h.Accounts.Register(r.Context(), registerInput(req), false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, portalsdk.RegisterResponse{
		Message: "Registration successful, awaiting admin approval",
		Farmer:  farmerView(f),
	})
}

// HandleLogin handles POST /api/farmers/login
//
//	@Summary		Farmer login
//	@Description	Exchanges email and password for a 7-day session token.
//	@Description	A wrong password always yields 401 invalid_credentials. Correct credentials on an account that may not
//	@Description	sign in yield 403 with status PENDING, REJECTED, SUSPENDED, INACTIVE or UNVERIFIED.
//	@Tags			Farmers
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	portalsdk.FarmerLoginResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse
//	@Failure		403		{object}	portalsdk.ErrorResponse	"Account not active"
//	@Failure		429		{object}	portalsdk.ErrorResponse
//	@Router			/api/farmers/login [post].
func (h *FarmerHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	f, token, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, portalsdk.FarmerLoginResponse{
		Token:  token,
		Farmer: farmerView(f),
	})
}

// HandleProfile handles GET /api/farmers/profile
//
//	@Summary		Current farmer profile
//	@Description	Readable in any account state so pending farmers can follow their application.
//	@Tags			Farmers
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.ProfileResponse
//	@Failure		401	{object}	portalsdk.ErrorResponse
//	@Router			/api/farmers/profile [get].
func (h *FarmerHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	f, _ := FarmerFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, portalsdk.ProfileResponse{Farmer: farmerView(f)})
}

// HandleUpdateProfile handles PUT /api/farmers/profile
//
//	@Summary		Update profile
//	@Tags			Farmers
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.UpdateProfileRequest	true	"Fields to change"
//	@Success		200		{object}	portalsdk.ProfileResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Failure		403		{object}	portalsdk.ErrorResponse
//	@Failure		409		{object}	portalsdk.ErrorResponse	"Mobile already registered"
//	@Router			/api/farmers/profile [put].
func (h *FarmerHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, _ := FarmerFromContext(ctx)

	var req portalsdk.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	patch := domain.FarmerPatch{
		FullName: req.FullName,
		Mobile:   req.Mobile,
		Location: req.Location,
	}
	if req.CropType != nil {
		c := domain.CropType(*req.CropType)
		patch.CropType = &c
	}
	if req.Language != nil {
		l := domain.Language(*req.Language)
		patch.Language = &l
	}

	updated, err := h.Credentials.Update(ctx, f.ID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.ProfileResponse{Farmer: farmerView(updated)})
}

// HandleChangePassword handles PUT /api/farmers/password
//
//	@Summary		Change password
//	@Tags			Farmers
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	portalsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	portalsdk.ValidationErrorResponse
//	@Failure		401	{object}	portalsdk.ErrorResponse	"Current password is wrong"
//	@Router			/api/farmers/password [put].
func (h *FarmerHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, _ := FarmerFromContext(ctx)

	var req portalsdk.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}
	if err := h.Credentials.ChangePassword(ctx, f.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMarketPrices handles GET /api/farmers/market-prices
//
//	@Summary		Latest mandi prices
//	@Description	Served from the last scheduled refresh. Stale is set when the upstream feed could not be reached.
//	@Tags			Feeds
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.MarketPricesResponse
//	@Router			/api/farmers/market-prices [get].
func (h *FarmerHandler) HandleMarketPrices(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, pricesView(h.Prices.Latest(r.Context())))
}

// HandleWeather handles GET /api/farmers/weather
//
//	@Summary		Current weather
//	@Description	Defaults to the farmer's registered location.
//	@Tags			Feeds
//	@Security		BearerAuth
//	@Produce		json
//	@Param			location	query		string	false	"Place name"
//	@Success		200			{object}	portalsdk.WeatherResponse
//	@Router			/api/farmers/weather [get].
func (h *FarmerHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, _ := FarmerFromContext(ctx)

	loc := strings.TrimSpace(r.URL.Query().Get("location"))
	if loc == "" {
		loc = f.Location
	}
	if reason := portalsdk.CheckLocation(loc); reason != "" {
		writeValidation(w, map[string]string{"location": reason})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, weatherView(h.Weather.ByLocation(ctx, loc)))
}

// HandleSubsidies handles GET /api/farmers/subsidies
//
//	@Summary		Open subsidies
//	@Tags			Subsidies
//	@Security		BearerAuth
//	@Produce		json
//	@Param			category	query		string	false	"Category filter"
//	@Success		200			{object}	portalsdk.SubsidyListResponse
//	@Failure		400			{object}	portalsdk.ValidationErrorResponse
//	@Router			/api/farmers/subsidies [get].
func (h *FarmerHandler) HandleSubsidies(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryParam(w, r)
	if !ok {
		return
	}
	subs, err := h.Subsidies.ListOpen(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.SubsidyListResponse{Subsidies: subsidyViews(subs)})
}

// HandleNotifications handles GET /api/farmers/notifications
//
//	@Summary		Notifications for the caller
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.NotificationListResponse
//	@Router			/api/farmers/notifications [get].
func (h *FarmerHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, _ := FarmerFromContext(ctx)

	list, unread, err := h.Notifications.ForFarmer(ctx, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.NotificationListResponse{
		Notifications: farmerNotificationViews(list),
		Unread:        unread,
	})
}

// HandleMarkRead handles POST /api/farmers/notifications/{id}/read
//
//	@Summary		Mark a notification read
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Notification ID"
//	@Success		204
//	@Failure		404	{object}	portalsdk.ErrorResponse
//	@Router			/api/farmers/notifications/{id}/read [post].
func (h *FarmerHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, _ := FarmerFromContext(ctx)

	if err := h.Notifications.MarkRead(ctx, f, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// categoryParam reads the optional category filter.
func categoryParam(w http.ResponseWriter, r *http.Request) (domain.SubsidyCategory, bool) {
	c := strings.TrimSpace(r.URL.Query().Get("category"))
	if c == "" {
		return "", true
	}
	if reason := portalsdk.CheckOneOf(c, portalsdk.SubsidyCategories); reason != "" {
		writeValidation(w, map[string]string{"category": reason})
		return "", false
	}
	return domain.SubsidyCategory(c), true
}
