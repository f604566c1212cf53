package portalsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the public farmer portal endpoints. It creates
// authenticated Sessions on login.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session performs calls as a logged-in farmer or admin.
type Session struct {
	client *Client
	token  string
}

// NewSession wraps an existing bearer token.
func (c *Client) NewSession(token string) *Session {
	return &Session{client: c, token: token}
}

// Token returns the bearer token of the session.
func (s *Session) Token() string { return s.token }

// Livez checks if the service is alive.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/livez", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Readyz checks if the service can reach its store.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/readyz", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestOTP mails a registration code to req.Email.
func (c *Client) RequestOTP(ctx context.Context, req RequestOTPRequest) (*RequestOTPResponse, error) {
	var out RequestOTPResponse
	if err := c.do(ctx, http.MethodPost, "/api/farmers/register/request-otp", "", req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP completes an OTP registration.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/farmers/register/verify-otp", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an unverified account awaiting admin approval.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/farmers/register", "", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// FarmerLogin authenticates a farmer and returns a session for them.
func (c *Client) FarmerLogin(ctx context.Context, req LoginRequest) (*Session, *FarmerLoginResponse, error) {
	var out FarmerLoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/farmers/login", "", req, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}
	return c.NewSession(out.Token), &out, nil
}

// AdminLogin authenticates an administrator.
func (c *Client) AdminLogin(ctx context.Context, req AdminLoginRequest) (*Session, *AdminLoginResponse, error) {
	var out AdminLoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/login", "", req, &out, http.StatusOK); err != nil {
		return nil, nil, err
	}
	return c.NewSession(out.Token), &out, nil
}
