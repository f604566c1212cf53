package portalsdk_test

import (
	"strings"
	"testing"

	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/stretchr/testify/require"
)

func validRegister() portalsdk.RegisterRequest {
	return portalsdk.RegisterRequest{
		FullName: "Ravi Kumar",
		Email:    "ravi@farm.in",
		Mobile:   "9876543210",
		Password: "s3cretpass",
		Location: "Mandya",
		CropType: "rice",
	}
}

func TestRegisterRequestValidate(t *testing.T) {
	t.Parallel()

	require.Nil(t, validRegister().Validate())

	tests := []struct {
		name   string
		mutate func(*portalsdk.RegisterRequest)
		field  string
	}{
		{"missing name", func(r *portalsdk.RegisterRequest) { r.FullName = " " }, "fullName"},
		{"short name", func(r *portalsdk.RegisterRequest) { r.FullName = "Al" }, "fullName"},
		{"long name", func(r *portalsdk.RegisterRequest) { r.FullName = strings.Repeat("a", 101) }, "fullName"},
		{"bad email", func(r *portalsdk.RegisterRequest) { r.Email = "ravi@farm" }, "email"},
		{"mobile starts with 5", func(r *portalsdk.RegisterRequest) { r.Mobile = "5876543210" }, "mobile"},
		{"mobile too short", func(r *portalsdk.RegisterRequest) { r.Mobile = "987654321" }, "mobile"},
		{"short password", func(r *portalsdk.RegisterRequest) { r.Password = "1234567" }, "password"},
		{"missing location", func(r *portalsdk.RegisterRequest) { r.Location = "" }, "location"},
		{"unknown crop", func(r *portalsdk.RegisterRequest) { r.CropType = "coffee" }, "cropType"},
		{"unknown language", func(r *portalsdk.RegisterRequest) { r.Language = "french" }, "language"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := validRegister()
			tc.mutate(&req)
			errs := req.Validate()
			require.Contains(t, errs, tc.field)
			require.Len(t, errs, 1)
		})
	}
}

func TestVerifyOTPRequestValidate(t *testing.T) {
	t.Parallel()

	req := portalsdk.VerifyOTPRequest{RegisterRequest: validRegister(), OTP: "123456"}
	require.Nil(t, req.Validate())

	req.OTP = "12a456"
	require.Equal(t, map[string]string{"otp": "must be 6 digits"}, req.Validate())

	req.OTP = ""
	req.Email = ""
	errs := req.Validate()
	require.Contains(t, errs, "otp")
	require.Contains(t, errs, "email")
}

func TestLoginRequestValidateOnlyChecksPresence(t *testing.T) {
	t.Parallel()

	require.Nil(t, portalsdk.LoginRequest{Email: "not-an-email", Password: "x"}.Validate())
	require.Len(t, portalsdk.LoginRequest{}.Validate(), 2)
}

func TestUpdateProfileRequestValidate(t *testing.T) {
	t.Parallel()

	require.Contains(t, portalsdk.UpdateProfileRequest{}.Validate(), "body")

	loc := "Hassan"
	require.Nil(t, portalsdk.UpdateProfileRequest{Location: &loc}.Validate())

	bad := "123"
	errs := portalsdk.UpdateProfileRequest{Mobile: &bad, Location: &loc}.Validate()
	require.Equal(t, []string{"mobile"}, keys(errs))
}

func TestChangePasswordRequestValidate(t *testing.T) {
	t.Parallel()

	require.Nil(t, portalsdk.ChangePasswordRequest{CurrentPassword: "oldpassword", NewPassword: "newpassword"}.Validate())
	require.Contains(t, portalsdk.ChangePasswordRequest{CurrentPassword: "samepassword", NewPassword: "samepassword"}.Validate(), "newPassword")
	require.Contains(t, portalsdk.ChangePasswordRequest{NewPassword: "newpassword"}.Validate(), "currentPassword")
}

func TestSubsidyRequestValidate(t *testing.T) {
	t.Parallel()

	ok := portalsdk.SubsidyRequest{
		Title:       "Drip irrigation",
		Description: "90% subsidy on drip kits",
		Amount:      25000,
		Eligibility: "Small and marginal farmers",
		Category:    "irrigation",
	}
	require.Nil(t, ok.Validate())

	bad := ok
	bad.Amount = -1
	bad.Category = "gold"
	bad.ApplicationLink = "ftp://example.com"
	errs := bad.Validate()
	require.Contains(t, errs, "amount")
	require.Contains(t, errs, "category")
	require.Contains(t, errs, "applicationLink")
}

func TestNotificationRequestValidate(t *testing.T) {
	t.Parallel()

	require.Nil(t, portalsdk.NotificationRequest{Title: "Rain alert", Message: "Heavy rain expected"}.Validate())

	errs := portalsdk.NotificationRequest{Title: "t", Message: "m", TargetAudience: "location"}.Validate()
	require.Contains(t, errs, "targetLocations")

	errs = portalsdk.NotificationRequest{Title: "t", Message: "m", TargetAudience: "crop", TargetCrops: []string{"coffee"}}.Validate()
	require.Contains(t, errs, "targetCrops")

	errs = portalsdk.NotificationRequest{Title: "t", Message: "m", TargetAudience: "everyone"}.Validate()
	require.Contains(t, errs, "targetAudience")
}

func TestOverrideAndRejectionValidate(t *testing.T) {
	t.Parallel()

	require.Nil(t, portalsdk.OverrideRequest{Status: "approved"}.Validate())
	require.Contains(t, portalsdk.OverrideRequest{Status: "deleted"}.Validate(), "status")
	require.Nil(t, portalsdk.StatusChangeRequest{}.ValidateRejection())
	require.Contains(t, portalsdk.StatusChangeRequest{Reason: strings.Repeat("x", 501)}.ValidateRejection(), "reason")
	require.Nil(t, portalsdk.StatusChangeRequest{Reason: "Documents missing"}.ValidateRejection())
}

func TestMarketPriceRequestValidate(t *testing.T) {
	t.Parallel()

	require.Nil(t, portalsdk.MarketPriceRequest{Commodity: "Tomato", Market: "Kolar", Price: 24}.Validate())

	low, high := 20.0, 30.0
	require.Nil(t, portalsdk.MarketPriceRequest{
		Commodity: "Tomato", Market: "Kolar", Category: "vegetable", Unit: "kg", Price: 24, MinPrice: &low, MaxPrice: &high,
	}.Validate())

	errs := portalsdk.MarketPriceRequest{Category: "dairy", Unit: "gallon"}.Validate()
	require.ElementsMatch(t, []string{"commodity", "market", "category", "unit", "price"}, keys(errs))

	errs = portalsdk.MarketPriceRequest{Commodity: "Tomato", Market: "Kolar", Price: 24, MinPrice: &high, MaxPrice: &low}.Validate()
	require.Contains(t, errs, "minPrice")
	require.Contains(t, errs, "maxPrice")
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
