package portalsdk

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	reasonRequired = "required"

	// MinPasswordLength applies to every farmer and admin password.
	MinPasswordLength = 8
	maxPasswordLength = 128
)

var (
	reEmail  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reMobile = regexp.MustCompile(`^[6-9]\d{9}$`)
	reOTP    = regexp.MustCompile(`^\d{6}$`)
)

// Enumerations accepted on the wire.
var (
	CropTypes         = []string{"rice", "wheat", "vegetables", "fruits", "pulses", "sugarcane", "cotton", "other"}
	Languages         = []string{"english", "kannada", "hindi"}
	SubsidyCategories = []string{"fertilizer", "seeds", "equipment", "irrigation", "loan", "insurance", "training", "other"}
	NotificationTypes = []string{"info", "warning", "success", "alert", "announcement"}
	Priorities        = []string{"low", "medium", "high", "urgent"}
	Audiences         = []string{"all", "approved", "pending", "location", "crop"}
	FarmerStatuses    = []string{"pending", "approved", "rejected", "suspended"}
	PriceCategories   = []string{"vegetable", "fruit", "grain", "spice", "other"}
	PriceUnits        = []string{"kg", "quintal", "ton", "piece", "dozen", "liter"}
)

// CheckEmail returns a reason when s is not an email address, or "".
func CheckEmail(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return reasonRequired
	case len(s) > 254 || !reEmail.MatchString(s):
		return "must be a valid email address"
	}
	return ""
}

// CheckMobile validates a 10-digit Indian mobile number.
func CheckMobile(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return reasonRequired
	case !reMobile.MatchString(s):
		return "must be a 10-digit mobile number starting with 6-9"
	}
	return ""
}

// CheckFullName requires 3-100 characters.
func CheckFullName(s string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	switch {
	case n == 0:
		return reasonRequired
	case n < 3 || n > 100:
		return "must be 3-100 characters"
	}
	return ""
}

// CheckLocation requires a non-empty location of at most 100 characters.
func CheckLocation(s string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	switch {
	case n == 0:
		return reasonRequired
	case n > 100:
		return "too long (max 100)"
	}
	return ""
}

// CheckPassword enforces the password length bounds.
func CheckPassword(s string) string {
	switch {
	case s == "":
		return reasonRequired
	case len(s) < MinPasswordLength:
		return "too short (min 8)"
	case len(s) > maxPasswordLength:
		return "too long (max 128)"
	}
	return ""
}

// CheckOneOf requires s to be one of allowed.
func CheckOneOf(s string, allowed []string) string {
	switch {
	case s == "":
		return reasonRequired
	case !slices.Contains(allowed, s):
		return "must be one of " + strings.Join(allowed, ", ")
	}
	return ""
}

func checkURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "must be an http or https URL"
	}
	return ""
}

func maxLen(errs map[string]string, field, s string, n int) {
	if utf8.RuneCountInString(s) > n {
		errs[field] = "too long"
	}
}

func set(errs map[string]string, field, reason string) {
	if reason != "" {
		errs[field] = reason
	}
}

func result(errs map[string]string) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the request fields. Returns a map of field names to
// reasons, or nil if all fields are valid.
func (r RequestOTPRequest) Validate() map[string]string {
	errs := make(map[string]string)
	set(errs, "email", CheckEmail(r.Email))
	set(errs, "fullName", CheckFullName(r.FullName))
	return result(errs)
}

// Validate checks the registration profile.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)
	set(errs, "fullName", CheckFullName(r.FullName))
	set(errs, "email", CheckEmail(r.Email))
	set(errs, "mobile", CheckMobile(r.Mobile))
	set(errs, "password", CheckPassword(r.Password))
	set(errs, "location", CheckLocation(r.Location))
	set(errs, "cropType", CheckOneOf(r.CropType, CropTypes))
	if r.Language != "" {
		set(errs, "language", CheckOneOf(r.Language, Languages))
	}
	return result(errs)
}

// Validate checks the profile and the code format.
func (r VerifyOTPRequest) Validate() map[string]string {
	errs := r.RegisterRequest.Validate()
	if errs == nil {
		errs = make(map[string]string)
	}
	switch {
	case r.OTP == "":
		errs["otp"] = reasonRequired
	case !reOTP.MatchString(r.OTP):
		errs["otp"] = "must be 6 digits"
	}
	return result(errs)
}

// Validate only checks presence so login never leaks format rules.
func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Email) == "" {
		errs["email"] = reasonRequired
	}
	if r.Password == "" {
		errs["password"] = reasonRequired
	}
	return result(errs)
}

// Validate only checks presence.
func (r AdminLoginRequest) Validate() map[string]string {
	return LoginRequest{Email: r.Email, Password: r.Password}.Validate()
}

// Validate checks the fields that are present.
func (r UpdateProfileRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.FullName != nil {
		set(errs, "fullName", CheckFullName(*r.FullName))
	}
	if r.Mobile != nil {
		set(errs, "mobile", CheckMobile(*r.Mobile))
	}
	if r.Location != nil {
		set(errs, "location", CheckLocation(*r.Location))
	}
	if r.CropType != nil {
		set(errs, "cropType", CheckOneOf(*r.CropType, CropTypes))
	}
	if r.Language != nil {
		set(errs, "language", CheckOneOf(*r.Language, Languages))
	}
	if len(errs) == 0 && r == (UpdateProfileRequest{}) {
		errs["body"] = "no fields to update"
	}
	return result(errs)
}

// Validate checks the new password.
func (r ChangePasswordRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.CurrentPassword == "" {
		errs["currentPassword"] = reasonRequired
	}
	set(errs, "newPassword", CheckPassword(r.NewPassword))
	if r.NewPassword != "" && r.NewPassword == r.CurrentPassword {
		errs["newPassword"] = "must differ from the current password"
	}
	return result(errs)
}

// ValidateRejection bounds the optional reason.
func (r StatusChangeRequest) ValidateRejection() map[string]string {
	errs := make(map[string]string)
	maxLen(errs, "reason", r.Reason, 500)
	return result(errs)
}

// Validate checks the target status.
func (r OverrideRequest) Validate() map[string]string {
	errs := make(map[string]string)
	set(errs, "status", CheckOneOf(r.Status, FarmerStatuses))
	maxLen(errs, "reason", r.Reason, 500)
	return result(errs)
}

// Validate checks a subsidy body.
func (r SubsidyRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Title) == "" {
		errs["title"] = reasonRequired
	}
	maxLen(errs, "title", r.Title, 200)
	if strings.TrimSpace(r.Description) == "" {
		errs["description"] = reasonRequired
	}
	maxLen(errs, "description", r.Description, 2000)
	if r.Amount < 0 {
		errs["amount"] = "must not be negative"
	}
	if strings.TrimSpace(r.Eligibility) == "" {
		errs["eligibility"] = reasonRequired
	}
	maxLen(errs, "eligibility", r.Eligibility, 1000)
	set(errs, "category", CheckOneOf(r.Category, SubsidyCategories))
	if r.ApplicationLink != "" {
		set(errs, "applicationLink", checkURL(r.ApplicationLink))
	}
	maxLen(errs, "contactInfo", r.ContactInfo, 500)
	return result(errs)
}

// Validate checks a broadcast body. Empty type, priority and audience take
// their defaults on the server.
func (r NotificationRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Title) == "" {
		errs["title"] = reasonRequired
	}
	maxLen(errs, "title", r.Title, 200)
	if strings.TrimSpace(r.Message) == "" {
		errs["message"] = reasonRequired
	}
	maxLen(errs, "message", r.Message, 2000)
	if r.Type != "" {
		set(errs, "type", CheckOneOf(r.Type, NotificationTypes))
	}
	if r.Priority != "" {
		set(errs, "priority", CheckOneOf(r.Priority, Priorities))
	}
	if r.TargetAudience != "" {
		set(errs, "targetAudience", CheckOneOf(r.TargetAudience, Audiences))
	}
	switch r.TargetAudience {
	case "location":
		if len(r.TargetLocations) == 0 {
			errs["targetLocations"] = "required for location audience"
		}
	case "crop":
		if len(r.TargetCrops) == 0 {
			errs["targetCrops"] = "required for crop audience"
		}
		for _, c := range r.TargetCrops {
			if !slices.Contains(CropTypes, c) {
				errs["targetCrops"] = "must be one of " + strings.Join(CropTypes, ", ")
				break
			}
		}
	}
	return result(errs)
}

// Validate checks a market price body. Empty category, unit and state take
// their defaults on the server.
func (r MarketPriceRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Commodity) == "" {
		errs["commodity"] = reasonRequired
	}
	maxLen(errs, "commodity", r.Commodity, 100)
	if strings.TrimSpace(r.Market) == "" {
		errs["market"] = reasonRequired
	}
	maxLen(errs, "market", r.Market, 100)
	maxLen(errs, "district", r.District, 100)
	maxLen(errs, "state", r.State, 100)
	if r.Category != "" {
		set(errs, "category", CheckOneOf(r.Category, PriceCategories))
	}
	if r.Unit != "" {
		set(errs, "unit", CheckOneOf(r.Unit, PriceUnits))
	}
	if r.Price <= 0 {
		errs["price"] = "must be positive"
	}
	if r.MinPrice != nil && (*r.MinPrice < 0 || *r.MinPrice > r.Price) {
		errs["minPrice"] = "must be between 0 and price"
	}
	if r.MaxPrice != nil && *r.MaxPrice < r.Price {
		errs["maxPrice"] = "must not be below price"
	}
	return result(errs)
}

// Validate checks the TOTP code format.
func (r MFACodeRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if !reOTP.MatchString(strings.TrimSpace(r.Code)) {
		errs["code"] = "must be 6 digits"
	}
	return result(errs)
}
