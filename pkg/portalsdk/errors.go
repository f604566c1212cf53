package portalsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agriconnect/farmerportal/pkg/httpx"
)

// Error codes carried in ErrorResponse.Error.
const (
	ErrorCodeValidation         = "validation_error"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeAccountNotActive   = "account_not_active"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeConflict           = "conflict"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeAlreadyApproved    = "already_approved"
	ErrorCodeInvalidTransition  = "invalid_transition"
	ErrorCodeOTPNotFound        = "otp_not_found"
	ErrorCodeOTPExpired         = "otp_expired"
	ErrorCodeOTPTooManyAttempts = "otp_too_many_attempts"
	ErrorCodeOTPInvalid         = "otp_invalid"
	ErrorCodeMFARequired        = "mfa_required"
	ErrorCodeMFAInvalid         = "mfa_invalid"
	ErrorCodeRateLimited        = "rate_limit_exceeded"
	ErrorCodeInternal           = "internal_error"
)

// Values of ErrorResponse.Status on 403 responses.
const (
	AccountStatusPending    = "PENDING"
	AccountStatusRejected   = "REJECTED"
	AccountStatusSuspended  = "SUSPENDED"
	AccountStatusInactive   = "INACTIVE"
	AccountStatusUnverified = "UNVERIFIED"
)

// APIError is a non-2xx response. The server writes it with WriteError and
// the client returns it from every call.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Status     string
	Reason     string
	Details    map[string]string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes e in the wire shape matching its code.
func (e *APIError) WriteError(w http.ResponseWriter) {
	if e.Code == ErrorCodeValidation {
		httpx.WriteJSON(w, e.StatusCode, ValidationErrorResponse{
			Error:   e.Code,
			Message: e.Message,
			Details: e.Details,
		})
		return
	}
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{
		Error:   e.Code,
		Message: e.Message,
		Status:  e.Status,
		Reason:  e.Reason,
	})
}

// NewAPIError creates an APIError with the given status code, error code and
// message.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Message: message}
}

// NewValidationError creates a 400 carrying per-field details.
func NewValidationError(details map[string]string) *APIError {
	return &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeValidation,
		Message:    "request validation failed",
		Details:    details,
	}
}

// parseErrorResponse turns a non-2xx response body into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var raw struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Status  string            `json:"status"`
		Reason  string            `json:"reason"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(body, &raw); err == nil && raw.Error != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       raw.Error,
			Message:    raw.Message,
			Status:     raw.Status,
			Reason:     raw.Reason,
			Details:    raw.Details,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       ErrorCodeInternal,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
