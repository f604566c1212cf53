package portalsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// ListFarmersOptions filters the admin farmer listing.
type ListFarmersOptions struct {
	Status string
	Search string
	Page   int
	Limit  int
}

func (o ListFarmersOptions) query() string {
	v := url.Values{}
	if o.Status != "" {
		v.Set("status", o.Status)
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListFarmers returns one page of farmers.
func (s *Session) ListFarmers(ctx context.Context, opts ListFarmersOptions) (*FarmerListResponse, error) {
	var out FarmerListResponse
	if err := s.do(ctx, http.MethodGet, "/api/admin/farmers"+opts.query(), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFarmer returns a single farmer.
func (s *Session) GetFarmer(ctx context.Context, id string) (*Farmer, error) {
	var out ProfileResponse
	if err := s.do(ctx, http.MethodGet, "/api/admin/farmers/"+url.PathEscape(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Farmer, nil
}

func (s *Session) farmerAction(ctx context.Context, id, action string, body any) (*Farmer, error) {
	var out FarmerActionResponse
	if err := s.do(ctx, http.MethodPut, "/api/admin/farmers/"+url.PathEscape(id)+"/"+action, body, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Farmer, nil
}

// ApproveFarmer moves a pending farmer to approved.
func (s *Session) ApproveFarmer(ctx context.Context, id string) (*Farmer, error) {
	return s.farmerAction(ctx, id, "approve", StatusChangeRequest{})
}

// RejectFarmer rejects a pending farmer.
func (s *Session) RejectFarmer(ctx context.Context, id, reason string) (*Farmer, error) {
	return s.farmerAction(ctx, id, "reject", StatusChangeRequest{Reason: reason})
}

// SuspendFarmer suspends an approved farmer.
func (s *Session) SuspendFarmer(ctx context.Context, id, reason string) (*Farmer, error) {
	return s.farmerAction(ctx, id, "suspend", StatusChangeRequest{Reason: reason})
}

// OverrideFarmer forces a farmer into status.
func (s *Session) OverrideFarmer(ctx context.Context, id string, req OverrideRequest) (*Farmer, error) {
	return s.farmerAction(ctx, id, "override", req)
}

// Stats returns registration counts.
func (s *Session) Stats(ctx context.Context) (*StatsResponse, error) {
	var out StatsResponse
	if err := s.do(ctx, http.MethodGet, "/api/admin/stats", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAllSubsidies returns every subsidy including inactive ones.
func (s *Session) ListAllSubsidies(ctx context.Context) ([]Subsidy, error) {
	var out SubsidyListResponse
	if err := s.do(ctx, http.MethodGet, "/api/admin/subsidies", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Subsidies, nil
}

// CreateSubsidy adds a subsidy.
func (s *Session) CreateSubsidy(ctx context.Context, req SubsidyRequest) (*Subsidy, error) {
	var out SubsidyResponse
	if err := s.do(ctx, http.MethodPost, "/api/admin/subsidies", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out.Subsidy, nil
}

// UpdateSubsidy replaces a subsidy.
func (s *Session) UpdateSubsidy(ctx context.Context, id string, req SubsidyRequest) (*Subsidy, error) {
	var out SubsidyResponse
	if err := s.do(ctx, http.MethodPut, "/api/admin/subsidies/"+url.PathEscape(id), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Subsidy, nil
}

// ToggleSubsidy flips the active flag of a subsidy.
func (s *Session) ToggleSubsidy(ctx context.Context, id string) (*Subsidy, error) {
	var out SubsidyResponse
	if err := s.do(ctx, http.MethodPatch, "/api/admin/subsidies/"+url.PathEscape(id)+"/toggle", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Subsidy, nil
}

// DeleteSubsidy removes a subsidy.
func (s *Session) DeleteSubsidy(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/admin/subsidies/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// Broadcast sends a notification to its audience.
func (s *Session) Broadcast(ctx context.Context, req NotificationRequest) (*Notification, error) {
	var out NotificationResponse
	if err := s.do(ctx, http.MethodPost, "/api/admin/notifications", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out.Notification, nil
}

// ListAllNotifications returns every notification.
func (s *Session) ListAllNotifications(ctx context.Context) ([]Notification, error) {
	var out NotificationListResponse
	if err := s.do(ctx, http.MethodGet, "/api/admin/notifications", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// DeleteNotification deactivates a notification.
func (s *Session) DeleteNotification(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/admin/notifications/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// RefreshMarketPrices forces a price fetch.
func (s *Session) RefreshMarketPrices(ctx context.Context) (*MarketPricesResponse, error) {
	var out MarketPricesResponse
	if err := s.do(ctx, http.MethodPost, "/api/admin/market-prices/refresh", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMarketPrices returns admin-entered prices, most recently updated first.
func (s *Session) ListMarketPrices(ctx context.Context, q MarketPriceQuery) (*MarketPriceListResponse, error) {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Market != "" {
		v.Set("market", q.Market)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.IncludeInactive {
		v.Set("all", "true")
	}
	path := "/api/admin/market-prices"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}

	var out MarketPriceListResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMarketPrice adds a price.
func (s *Session) CreateMarketPrice(ctx context.Context, req MarketPriceRequest) (*MarketPrice, error) {
	var out MarketPriceResponse
	if err := s.do(ctx, http.MethodPost, "/api/admin/market-prices", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out.Price, nil
}

func (s *Session) GetMarketPrice(ctx context.Context, id string) (*MarketPrice, error) {
	var out MarketPriceResponse
	if err := s.do(ctx, http.MethodGet, "/api/admin/market-prices/"+url.PathEscape(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Price, nil
}

// UpdateMarketPrice replaces a price.
func (s *Session) UpdateMarketPrice(ctx context.Context, id string, req MarketPriceRequest) (*MarketPrice, error) {
	var out MarketPriceResponse
	if err := s.do(ctx, http.MethodPut, "/api/admin/market-prices/"+url.PathEscape(id), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Price, nil
}

// DeleteMarketPrice deactivates a price. It stays visible with IncludeInactive.
func (s *Session) DeleteMarketPrice(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, "/api/admin/market-prices/"+url.PathEscape(id), nil, nil, http.StatusNoContent)
}

// MarketStats summarises the admin-entered prices.
func (s *Session) MarketStats(ctx context.Context) (*MarketStatsResponse, error) {
	var out MarketStatsResponse
	if err := s.do(ctx, http.MethodGet, "/api/admin/market-stats", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// EnrollMFA starts TOTP enrollment for the caller.
func (s *Session) EnrollMFA(ctx context.Context) (*MFAEnrollResponse, error) {
	var out MFAEnrollResponse
	if err := s.do(ctx, http.MethodPost, "/api/admin/mfa/enroll", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmMFA enables TOTP after the first valid code.
func (s *Session) ConfirmMFA(ctx context.Context, code string) error {
	return s.do(ctx, http.MethodPost, "/api/admin/mfa/confirm", MFACodeRequest{Code: code}, nil, http.StatusNoContent)
}

// DisableMFA turns TOTP off.
func (s *Session) DisableMFA(ctx context.Context, code string) error {
	return s.do(ctx, http.MethodPost, "/api/admin/mfa/disable", MFACodeRequest{Code: code}, nil, http.StatusNoContent)
}
