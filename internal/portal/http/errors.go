package http

import (
	"errors"
	"net/http"

	"github.com/agriconnect/farmerportal/internal/portal/otp"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/jwtx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

var otpCodes = map[otp.Reason]string{
	otp.ReasonNotFound:        portalsdk.ErrorCodeOTPNotFound,
	otp.ReasonExpired:         portalsdk.ErrorCodeOTPExpired,
	otp.ReasonTooManyAttempts: portalsdk.ErrorCodeOTPTooManyAttempts,
	otp.ReasonInvalidCode:     portalsdk.ErrorCodeOTPInvalid,
}

var otpMessages = map[otp.Reason]string{
	otp.ReasonNotFound:        "No verification code was requested for this email",
	otp.ReasonExpired:         "The verification code has expired, request a new one",
	otp.ReasonTooManyAttempts: "Too many attempts, request a new code",
	otp.ReasonInvalidCode:     "The verification code is incorrect",
}

// apiError maps a service error onto its wire form. Unknown errors become a
// 500 with a generic message.
func apiError(err error) *portalsdk.APIError {
	var (
		verr *service.ValidationError
		ferr *service.ForbiddenError
		oerr *service.OTPError
	)
	switch {
	case errors.As(err, &verr):
		return portalsdk.NewValidationError(verr.Fields)
	case errors.Is(err, httpx.ErrBadJSON):
		return portalsdk.NewAPIError(http.StatusBadRequest, portalsdk.ErrorCodeValidation, "Request body must be a JSON object")
	case errors.As(err, &ferr):
		e := portalsdk.NewAPIError(http.StatusForbidden, portalsdk.ErrorCodeAccountNotActive, forbiddenMessage(ferr.Status))
		e.Status = ferr.Status
		e.Reason = ferr.Reason
		return e
	case errors.As(err, &oerr):
		code, ok := otpCodes[oerr.Reason]
		if !ok {
			code = portalsdk.ErrorCodeOTPInvalid
		}
		return portalsdk.NewAPIError(http.StatusBadRequest, code, otpMessages[oerr.Reason])
	case errors.Is(err, service.ErrInvalidCredentials):
		return portalsdk.NewAPIError(http.StatusUnauthorized, portalsdk.ErrorCodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, jwtx.ErrExpired):
		return portalsdk.NewAPIError(http.StatusUnauthorized, portalsdk.ErrorCodeInvalidToken, "Token expired")
	case errors.Is(err, service.ErrUnauthorized):
		return portalsdk.NewAPIError(http.StatusUnauthorized, portalsdk.ErrorCodeInvalidToken, "Authentication required")
	case errors.Is(err, service.ErrMFARequired):
		return portalsdk.NewAPIError(http.StatusUnauthorized, portalsdk.ErrorCodeMFARequired, "A TOTP code is required")
	case errors.Is(err, service.ErrMFAInvalid):
		return portalsdk.NewAPIError(http.StatusUnauthorized, portalsdk.ErrorCodeMFAInvalid, "The TOTP code is incorrect")
	case errors.Is(err, service.ErrMFANotEnrolled), errors.Is(err, service.ErrMFANotEnabled), errors.Is(err, service.ErrMFAAlreadyEnabled):
		return portalsdk.NewAPIError(http.StatusConflict, portalsdk.ErrorCodeConflict, err.Error())
	case errors.Is(err, service.ErrInsufficientRole):
		return portalsdk.NewAPIError(http.StatusForbidden, portalsdk.ErrorCodeForbidden, "Insufficient permissions")
	case errors.Is(err, service.ErrConflict):
		return portalsdk.NewAPIError(http.StatusConflict, portalsdk.ErrorCodeConflict, "Email or mobile already registered")
	case errors.Is(err, service.ErrAlreadyApproved):
		return portalsdk.NewAPIError(http.StatusConflict, portalsdk.ErrorCodeAlreadyApproved, "Farmer is already approved")
	case errors.Is(err, service.ErrInvalidTransition):
		return portalsdk.NewAPIError(http.StatusConflict, portalsdk.ErrorCodeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return portalsdk.NewAPIError(http.StatusNotFound, portalsdk.ErrorCodeNotFound, "Not found")
	case errors.Is(err, otp.ErrDelivery):
		return portalsdk.NewAPIError(http.StatusBadGateway, portalsdk.ErrorCodeInternal, "Could not send the verification email")
	}
	return portalsdk.NewAPIError(http.StatusInternalServerError, portalsdk.ErrorCodeInternal, "Internal server error")
}

func forbiddenMessage(status string) string {
	switch status {
	case portalsdk.AccountStatusPending:
		return "Account is pending admin approval"
	case portalsdk.AccountStatusRejected:
		return "Account registration was rejected"
	case portalsdk.AccountStatusSuspended:
		return "Account is suspended"
	case portalsdk.AccountStatusUnverified:
		return "Email address is not verified"
	}
	return "Account is not active"
}

// writeError logs err and writes its mapped response. Server-side failures
// log at error, the rest at debug.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apiError(err)
	log := slogx.FromContext(r.Context())
	if e.StatusCode >= 500 {
		log.Error("request failed", "error", err, "status", e.StatusCode)
	} else {
		log.Debug("request rejected", "error", err, "status", e.StatusCode, "code", e.Code)
	}
	if e.StatusCode == http.StatusUnauthorized && e.Code == portalsdk.ErrorCodeInvalidToken {
		httpx.WriteBearerChallenge(w, e.Message)
	}
	e.WriteError(w)
}

// writeValidation writes a 400 for non-empty details and reports whether it
// did.
func writeValidation(w http.ResponseWriter, details map[string]string) bool {
	if len(details) == 0 {
		return false
	}
	portalsdk.NewValidationError(details).WriteError(w)
	return true
}

// decode reads the JSON body into dst, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}
