package http

import (
	"net/http"
	"strings"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// AdminHandler serves admin login and farmer moderation.
type AdminHandler struct {
	Admins      *service.AdminService
	Accounts    *service.AccountService
	Credentials *service.Credentials
	Stats       *service.StatsService
}

// HandleLogin handles POST /api/admin/login
//
//	@Summary		Admin login
//	@Description	Exchanges email and password, plus a TOTP code once MFA is enabled, for a 24-hour admin token.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.AdminLoginRequest	true	"Credentials"
//	@Success		200		{object}	portalsdk.AdminLoginResponse
//	@Failure		401		{object}	portalsdk.ErrorResponse	"invalid_credentials, mfa_required or mfa_invalid"
//	@Failure		403		{object}	portalsdk.ErrorResponse	"Account inactive"
//	@Failure		429		{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/login [post].
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.AdminLoginRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	a, token, err := h.Admins.Login(r.Context(), req.Email, req.Password, strings.TrimSpace(req.TOTPCode))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, portalsdk.AdminLoginResponse{
		Token: token,
		Admin: adminView(a),
	})
}

// HandleListFarmers handles GET /api/admin/farmers
//
//	@Summary		List farmers
//	@Description	Newest registrations first. Search matches name, email, mobile and location.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			status	query		string	false	"pending, approved, rejected or suspended"
//	@Param			search	query		string	false	"Free-text search"
//	@Param			page	query		int		false	"Page number, from 1"
//	@Param			limit	query		int		false	"Page size, default 50, max 100"
//	@Success		200		{object}	portalsdk.FarmerListResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Failure		403		{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/farmers [get].
func (h *AdminHandler) HandleListFarmers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.FarmerFilter{Search: strings.TrimSpace(q.Get("search"))}

	if s := strings.TrimSpace(q.Get("status")); s != "" {
		st, err := domain.ParseFarmerStatus(s)
		if err != nil {
			writeValidation(w, map[string]string{"status": portalsdk.CheckOneOf(s, portalsdk.FarmerStatuses)})
			return
		}
		filter.Status = st
	}

	page := max(httpx.QueryInt(r, "page", 1), 1)
	limit := httpx.QueryInt(r, "limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	farmers, total, err := h.Accounts.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.FarmerListResponse{
		Farmers: farmerViews(farmers),
		Pagination: portalsdk.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

// HandleGetFarmer handles GET /api/admin/farmers/{id}
//
//	@Summary		Get a farmer
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Farmer ID"
//	@Success		200	{object}	portalsdk.ProfileResponse
//	@Failure		404	{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/farmers/{id} [get].
func (h *AdminHandler) HandleGetFarmer(w http.ResponseWriter, r *http.Request) {
	f, err := h.Credentials.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.ProfileResponse{Farmer: farmerView(f)})
}

// HandleApprove handles PUT /api/admin/farmers/{id}/approve
//
//	@Summary		Approve a pending farmer
//	@Description	Concurrent approvals of the same farmer succeed once; the others get 409 already_approved.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Farmer ID"
//	@Success		200	{object}	portalsdk.FarmerActionResponse
//	@Failure		404	{object}	portalsdk.ErrorResponse
//	@Failure		409	{object}	portalsdk.ErrorResponse	"already_approved or invalid_transition"
//	@Router			/api/admin/farmers/{id}/approve [put].
func (h *AdminHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	f, err := h.Accounts.Approve(ctx, r.PathValue("id"), a.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.FarmerActionResponse{Message: "Farmer approved", Farmer: farmerView(f)})
}

// HandleReject handles PUT /api/admin/farmers/{id}/reject
//
//	@Summary		Reject a pending farmer
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Farmer ID"
//	@Param			request	body		portalsdk.StatusChangeRequest	true	"Rejection reason"
//	@Success		200		{object}	portalsdk.FarmerActionResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Failure		409		{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/farmers/{id}/reject [put].
func (h *AdminHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.StatusChangeRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.ValidateRejection()) {
		return
	}

	f, err := h.Accounts.Reject(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.FarmerActionResponse{Message: "Farmer rejected", Farmer: farmerView(f)})
}

// HandleSuspend handles PUT /api/admin/farmers/{id}/suspend
//
//	@Summary		Suspend an approved farmer
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Farmer ID"
//	@Param			request	body		portalsdk.StatusChangeRequest	false	"Suspension reason"
//	@Success		200		{object}	portalsdk.FarmerActionResponse
//	@Failure		409		{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/farmers/{id}/suspend [put].
func (h *AdminHandler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.StatusChangeRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	f, err := h.Accounts.Suspend(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.FarmerActionResponse{Message: "Farmer suspended", Farmer: farmerView(f)})
}

// HandleOverride handles PUT /api/admin/farmers/{id}/override
//
//	@Summary		Force a farmer status
//	@Description	Moves a farmer into any status regardless of the current one. Every override is logged at WARN.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Farmer ID"
//	@Param			request	body		portalsdk.OverrideRequest	true	"Target status"
//	@Success		200		{object}	portalsdk.FarmerActionResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Router			/api/admin/farmers/{id}/override [put].
func (h *AdminHandler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	var req portalsdk.OverrideRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	f, err := h.Accounts.Override(ctx, r.PathValue("id"), a.ID, domain.FarmerStatus(req.Status), strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.FarmerActionResponse{Message: "Farmer status overridden", Farmer: farmerView(f)})
}

// HandleStats handles GET /api/admin/stats
//
//	@Summary		Registration statistics
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.StatsResponse
//	@Router			/api/admin/stats [get].
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.StatsResponse{
		Total:     st.Counts.Total(),
		Pending:   st.Counts[domain.StatusPending],
		Approved:  st.Counts[domain.StatusApproved],
		Rejected:  st.Counts[domain.StatusRejected],
		Suspended: st.Counts[domain.StatusSuspended],
		Recent:    farmerViews(st.Recent),
	})
}
