package portalsdk

import "time"

// ErrorResponse is the body of every non-2xx response except validation
// failures.
type ErrorResponse struct {
	// Error is a machine-readable code such as "invalid_credentials".
	Error string `json:"error"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Status is set on 403 responses caused by the account state:
	// PENDING, REJECTED, SUSPENDED, INACTIVE or UNVERIFIED.
	Status string `json:"status,omitempty"`

	// Reason carries the rejection or suspension reason when known.
	Reason string `json:"reason,omitempty"`
}

// ValidationErrorResponse is returned with 400 when request fields fail
// validation.
type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Farmer is the public view of a farmer account. The password hash is never
// part of it.
type Farmer struct {
	ID               string     `json:"id"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Mobile           string     `json:"mobile"`
	Location         string     `json:"location"`
	CropType         string     `json:"cropType"`
	Language         string     `json:"language"`
	Status           string     `json:"status"`
	IsActive         bool       `json:"isActive"`
	IsVerified       bool       `json:"isVerified"`
	RegisteredAt     time.Time  `json:"registeredAt"`
	ApprovedAt       *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy       string     `json:"approvedBy,omitempty"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	SuspensionReason string     `json:"suspensionReason,omitempty"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Admin is the public view of an administrator.
type Admin struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	MFAEnabled  bool       `json:"mfaEnabled"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// RequestOTPRequest starts an email-verified registration.
type RequestOTPRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// RequestOTPResponse tells the caller how long the code stays valid.
type RequestOTPResponse struct {
	Message string `json:"message"`

	// ExpiresIn is the code lifetime in seconds.
	ExpiresIn int `json:"expiresIn"`
}

// RegisterRequest is the direct registration body.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	Location string `json:"location"`
	CropType string `json:"cropType"`
	Language string `json:"language,omitempty"`
}

// VerifyOTPRequest completes an OTP registration: the profile plus the code.
type VerifyOTPRequest struct {
	RegisterRequest
	OTP string `json:"otp"`
}

// RegisterResponse carries the new account. Token is only present when the
// account is approved on creation.
type RegisterResponse struct {
	Message string `json:"message"`
	Farmer  Farmer `json:"farmer"`
	Token   string `json:"token,omitempty"`
}

// LoginRequest is used by the farmer login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// FarmerLoginResponse is returned on a successful farmer login.
type FarmerLoginResponse struct {
	Token  string `json:"token"`
	Farmer Farmer `json:"farmer"`
}

// AdminLoginRequest is used by the admin login. TOTPCode is required once
// the admin has enabled a second factor.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totpCode,omitempty"`
}

// AdminLoginResponse is returned on a successful admin login.
type AdminLoginResponse struct {
	Token string `json:"token"`
	Admin Admin  `json:"admin"`
}

// UpdateProfileRequest changes profile fields. Nil fields are left alone.
type UpdateProfileRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Location *string `json:"location,omitempty"`
	CropType *string `json:"cropType,omitempty"`
	Language *string `json:"language,omitempty"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProfileResponse wraps the caller's own account.
type ProfileResponse struct {
	Farmer Farmer `json:"farmer"`
}

// FarmerListResponse is one page of the admin farmer listing.
type FarmerListResponse struct {
	Farmers    []Farmer   `json:"farmers"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes a page of results.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// StatusChangeRequest is the body of approve, reject and suspend.
type StatusChangeRequest struct {
	Reason string `json:"reason,omitempty"`
}

// OverrideRequest forces a farmer into any status.
type OverrideRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// FarmerActionResponse is returned by the admin state transitions.
type FarmerActionResponse struct {
	Message string `json:"message"`
	Farmer  Farmer `json:"farmer"`
}

// StatsResponse summarises the registrations.
type StatsResponse struct {
	Total     int      `json:"total"`
	Pending   int      `json:"pending"`
	Approved  int      `json:"approved"`
	Rejected  int      `json:"rejected"`
	Suspended int      `json:"suspended"`
	Recent    []Farmer `json:"recent"`
}

// Subsidy is a government scheme farmers can apply to.
type Subsidy struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Amount          float64    `json:"amount"`
	Eligibility     string     `json:"eligibility"`
	Category        string     `json:"category"`
	State           string     `json:"state"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	ApplicationLink string     `json:"applicationLink,omitempty"`
	ContactInfo     string     `json:"contactInfo,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SubsidyRequest creates or replaces a subsidy.
type SubsidyRequest struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Amount          float64    `json:"amount"`
	Eligibility     string     `json:"eligibility"`
	Category        string     `json:"category"`
	State           string     `json:"state,omitempty"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	ApplicationLink string     `json:"applicationLink,omitempty"`
	ContactInfo     string     `json:"contactInfo,omitempty"`
}

// SubsidyResponse wraps a single subsidy.
type SubsidyResponse struct {
	Subsidy Subsidy `json:"subsidy"`
}

// SubsidyListResponse lists subsidies.
type SubsidyListResponse struct {
	Subsidies []Subsidy `json:"subsidies"`
}

// Notification is an admin broadcast.
type Notification struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	Type            string     `json:"type"`
	Priority        string     `json:"priority"`
	TargetAudience  string     `json:"targetAudience"`
	TargetLocations []string   `json:"targetLocations,omitempty"`
	TargetCrops     []string   `json:"targetCrops,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedBy       string     `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`

	// Read is only set on the farmer listing.
	Read bool `json:"read"`
}

// NotificationRequest broadcasts a notification.
type NotificationRequest struct {
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	Type            string     `json:"type,omitempty"`
	Priority        string     `json:"priority,omitempty"`
	TargetAudience  string     `json:"targetAudience,omitempty"`
	TargetLocations []string   `json:"targetLocations,omitempty"`
	TargetCrops     []string   `json:"targetCrops,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// NotificationResponse wraps a single notification.
type NotificationResponse struct {
	Notification Notification `json:"notification"`
}

// NotificationListResponse lists notifications.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}

// Price is one commodity quote.
type Price struct {
	Commodity  string  `json:"commodity"`
	Market     string  `json:"market"`
	District   string  `json:"district"`
	State      string  `json:"state"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
	ModalPrice float64 `json:"modalPrice"`
	Unit       string  `json:"unit"`
	Date       string  `json:"date"`
	Source     string  `json:"source,omitempty"`
}

// MarketPricesResponse is the latest price set.
type MarketPricesResponse struct {
	Prices    []Price   `json:"prices"`
	FetchedAt time.Time `json:"fetchedAt"`
	Source    string    `json:"source"`
	Stale     bool      `json:"stale"`
}

// MarketPrice is a price entered from the admin console.
type MarketPrice struct {
	ID        string    `json:"id"`
	Commodity string    `json:"commodity"`
	Market    string    `json:"market"`
	District  string    `json:"district,omitempty"`
	State     string    `json:"state"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	Price     float64   `json:"price"`
	MinPrice  float64   `json:"minPrice"`
	MaxPrice  float64   `json:"maxPrice"`
	PriceDate time.Time `json:"priceDate"`
	IsActive  bool      `json:"isActive"`
	CreatedBy string    `json:"createdBy"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarketPriceRequest adds or replaces a price. Omitted bounds default to
// price; an omitted isActive keeps the current flag on update.
type MarketPriceRequest struct {
	Commodity string     `json:"commodity"`
	Market    string     `json:"market"`
	District  string     `json:"district,omitempty"`
	State     string     `json:"state,omitempty"`
	Category  string     `json:"category,omitempty"`
	Unit      string     `json:"unit,omitempty"`
	Price     float64    `json:"price"`
	MinPrice  *float64   `json:"minPrice,omitempty"`
	MaxPrice  *float64   `json:"maxPrice,omitempty"`
	PriceDate *time.Time `json:"priceDate,omitempty"`
	IsActive  *bool      `json:"isActive,omitempty"`
}

// MarketPriceResponse wraps a single price.
type MarketPriceResponse struct {
	Price MarketPrice `json:"price"`
}

// MarketPriceListResponse lists admin-entered prices.
type MarketPriceListResponse struct {
	Count  int           `json:"count"`
	Prices []MarketPrice `json:"prices"`
}

// MarketStatsResponse summarises the admin-entered prices.
type MarketStatsResponse struct {
	TotalPrices       int           `json:"totalPrices"`
	ActivePrices      int           `json:"activePrices"`
	UniqueCommodities int           `json:"uniqueCommodities"`
	RecentUpdates     int           `json:"recentUpdates"`
	LastUpdated       *time.Time    `json:"lastUpdated"`
	Prices            []MarketPrice `json:"prices"`
}

// MarketPriceQuery filters ListMarketPrices. Zero values are left out.
type MarketPriceQuery struct {
	Category        string
	Market          string
	Search          string
	Limit           int
	IncludeInactive bool
}

// WeatherResponse is the current weather for a location.
type WeatherResponse struct {
	Location     string    `json:"location"`
	TemperatureC float64   `json:"temperatureC"`
	FeelsLikeC   float64   `json:"feelsLikeC"`
	Humidity     int       `json:"humidity"`
	WindKph      float64   `json:"windKph"`
	Description  string    `json:"description"`
	FetchedAt    time.Time `json:"fetchedAt"`
	Stale        bool      `json:"stale"`
}

// MFAEnrollResponse returns the TOTP secret to load into an authenticator.
type MFAEnrollResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// MFACodeRequest carries a TOTP code.
type MFACodeRequest struct {
	Code string `json:"code"`
}
