package portalsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Profile returns the caller's account. Works for any account state.
func (s *Session) Profile(ctx context.Context) (*Farmer, error) {
	var out ProfileResponse
	if err := s.do(ctx, http.MethodGet, "/api/farmers/profile", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Farmer, nil
}

// UpdateProfile changes the caller's profile fields.
func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*Farmer, error) {
	var out ProfileResponse
	if err := s.do(ctx, http.MethodPut, "/api/farmers/profile", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Farmer, nil
}

// ChangePassword replaces the caller's password.
func (s *Session) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return s.do(ctx, http.MethodPut, "/api/farmers/password", req, nil, http.StatusNoContent)
}

// MarketPrices returns the latest commodity prices.
func (s *Session) MarketPrices(ctx context.Context) (*MarketPricesResponse, error) {
	var out MarketPricesResponse
	if err := s.do(ctx, http.MethodGet, "/api/farmers/market-prices", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Weather returns the weather for location, or for the caller's own
// location when empty.
func (s *Session) Weather(ctx context.Context, location string) (*WeatherResponse, error) {
	path := "/api/farmers/weather"
	if location != "" {
		path += "?" + url.Values{"location": {location}}.Encode()
	}
	var out WeatherResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subsidies lists active subsidies, optionally filtered by category.
func (s *Session) Subsidies(ctx context.Context, category string) ([]Subsidy, error) {
	path := "/api/farmers/subsidies"
	if category != "" {
		path += "?" + url.Values{"category": {category}}.Encode()
	}
	var out SubsidyListResponse
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Subsidies, nil
}

// Notifications lists the notifications addressed to the caller.
func (s *Session) Notifications(ctx context.Context) (*NotificationListResponse, error) {
	var out NotificationListResponse
	if err := s.do(ctx, http.MethodGet, "/api/farmers/notifications", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkNotificationRead records a read receipt.
func (s *Session) MarkNotificationRead(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodPost, "/api/farmers/notifications/"+url.PathEscape(id)+"/read", nil, nil, http.StatusNoContent)
}
