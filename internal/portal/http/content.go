package http

import (
	"net/http"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// ContentHandler serves the admin console's subsidy, notification and market
// price management.
type ContentHandler struct {
	Subsidies     *service.SubsidyService
	Notifications *service.NotificationService
	MarketPrices  *service.MarketPriceService
	Prices        feeds.MarketPriceProvider
}

// HandleListSubsidies handles GET /api/admin/subsidies
//
//	@Summary		List all subsidies
//	@Tags			Subsidies
//	@Security		BearerAuth
//	@Produce		json
//	@Param			category	query		string	false	"Category filter"
//	@Success		200			{object}	portalsdk.SubsidyListResponse
//	@Router			/api/admin/subsidies [get].
func (h *ContentHandler) HandleListSubsidies(w http.ResponseWriter, r *http.Request) {
	category, ok := categoryParam(w, r)
	if !ok {
		return
	}
	subs, err := h.Subsidies.ListAll(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.SubsidyListResponse{Subsidies: subsidyViews(subs)})
}

// HandleCreateSubsidy handles POST /api/admin/subsidies
//
//	@Summary		Create a subsidy
//	@Tags			Subsidies
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.SubsidyRequest	true	"Subsidy"
//	@Success		201		{object}	portalsdk.SubsidyResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Router			/api/admin/subsidies [post].
func (h *ContentHandler) HandleCreateSubsidy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	var req portalsdk.SubsidyRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	sub, err := h.Subsidies.Create(ctx, subsidyFromRequest(req), a.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, portalsdk.SubsidyResponse{Subsidy: subsidyView(sub)})
}

// HandleUpdateSubsidy handles PUT /api/admin/subsidies/{id}
//
//	@Summary		Replace a subsidy
//	@Tags			Subsidies
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Subsidy ID"
//	@Param			request	body		portalsdk.SubsidyRequest	true	"Subsidy"
//	@Success		200		{object}	portalsdk.SubsidyResponse
//	@Failure		404		{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/subsidies/{id} [put].
func (h *ContentHandler) HandleUpdateSubsidy(w http.ResponseWriter, r *http.Request) {
	var req portalsdk.SubsidyRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	sub, err := h.Subsidies.Update(r.Context(), r.PathValue("id"), subsidyFromRequest(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.SubsidyResponse{Subsidy: subsidyView(sub)})
}

// HandleToggleSubsidy handles PATCH /api/admin/subsidies/{id}/toggle
//
//	@Summary		Toggle a subsidy's active flag
//	@Tags			Subsidies
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Subsidy ID"
//	@Success		200	{object}	portalsdk.SubsidyResponse
//	@Router			/api/admin/subsidies/{id}/toggle [patch].
func (h *ContentHandler) HandleToggleSubsidy(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Subsidies.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.SubsidyResponse{Subsidy: subsidyView(sub)})
}

// HandleDeleteSubsidy handles DELETE /api/admin/subsidies/{id}
//
//	@Summary		Delete a subsidy
//	@Tags			Subsidies
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Subsidy ID"
//	@Success		204
//	@Failure		404	{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/subsidies/{id} [delete].
func (h *ContentHandler) HandleDeleteSubsidy(w http.ResponseWriter, r *http.Request) {
	if err := h.Subsidies.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBroadcast handles POST /api/admin/notifications
//
//	@Summary		Broadcast a notification
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		portalsdk.NotificationRequest	true	"Notification"
//	@Success		201		{object}	portalsdk.NotificationResponse
//	@Failure		400		{object}	portalsdk.ValidationErrorResponse
//	@Router			/api/admin/notifications [post].
func (h *ContentHandler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	var req portalsdk.NotificationRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}

	n, err := h.Notifications.Broadcast(ctx, domain.Notification{
		Title:           req.Title,
		Message:         req.Message,
		Type:            domain.NotificationType(req.Type),
		Priority:        domain.Priority(req.Priority),
		Audience:        domain.Audience(req.TargetAudience),
		TargetLocations: req.TargetLocations,
		TargetCrops:     req.TargetCrops,
		ExpiresAt:       req.ExpiresAt,
	}, a.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, portalsdk.NotificationResponse{Notification: notificationView(n)})
}

// HandleListNotifications handles GET /api/admin/notifications
//
//	@Summary		List all notifications
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.NotificationListResponse
//	@Router			/api/admin/notifications [get].
func (h *ContentHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	all, err := h.Notifications.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]portalsdk.Notification, 0, len(all))
	for _, n := range all {
		views = append(views, notificationView(n))
	}
	httpx.WriteJSON(w, http.StatusOK, portalsdk.NotificationListResponse{Notifications: views})
}

// HandleDeleteNotification handles DELETE /api/admin/notifications/{id}
//
//	@Summary		Deactivate a notification
//	@Tags			Notifications
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Notification ID"
//	@Success		204
//	@Failure		404	{object}	portalsdk.ErrorResponse
//	@Router			/api/admin/notifications/{id} [delete].
func (h *ContentHandler) HandleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.Notifications.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefreshPrices handles POST /api/admin/market-prices/refresh
//
//	@Summary		Refresh market prices now
//	@Description	A failed fetch keeps the previous prices and marks them stale.
//	@Tags			Feeds
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.MarketPricesResponse
//	@Router			/api/admin/market-prices/refresh [post].
func (h *ContentHandler) HandleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Prices.Refresh(ctx); err != nil {
		slogx.FromContext(ctx).Warn("market price refresh failed", "error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, pricesView(h.Prices.Latest(ctx)))
}
