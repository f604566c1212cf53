package http

import (
	"context"
	"net/http"

	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
)

// MFAHandler handles the admin TOTP endpoints.
type MFAHandler struct {
	MFA *service.MFAService
}

// HandleEnroll handles POST /api/admin/mfa/enroll
//
//	@Summary		Start TOTP enrollment
//	@Description	Generates a secret for the calling admin. Login keeps working without a code until the enrollment is confirmed.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	portalsdk.MFAEnrollResponse
//	@Failure		409	{object}	portalsdk.ErrorResponse	"MFA already enabled"
//	@Router			/api/admin/mfa/enroll [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	enr, err := h.MFA.Enroll(ctx, a.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, portalsdk.MFAEnrollResponse{Secret: enr.Secret, URL: enr.URL})
}

// HandleConfirm handles POST /api/admin/mfa/confirm
//
//	@Summary		Confirm TOTP enrollment
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	portalsdk.MFACodeRequest	true	"Current TOTP code"
//	@Success		204
//	@Failure		401	{object}	portalsdk.ErrorResponse	"mfa_invalid"
//	@Failure		409	{object}	portalsdk.ErrorResponse	"Not enrolled or already enabled"
//	@Router			/api/admin/mfa/confirm [post].
func (h *MFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, h.MFA.Confirm)
}

// HandleDisable handles POST /api/admin/mfa/disable
//
//	@Summary		Disable TOTP
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	portalsdk.MFACodeRequest	true	"Current TOTP code"
//	@Success		204
//	@Failure		401	{object}	portalsdk.ErrorResponse	"mfa_invalid"
//	@Router			/api/admin/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, h.MFA.Disable)
}

func (h *MFAHandler) withCode(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, adminID, code string) error) {
	ctx := r.Context()
	a, _ := AdminFromContext(ctx)

	var req portalsdk.MFACodeRequest
	if !decode(w, r, &req) {
		return
	}
	if writeValidation(w, req.Validate()) {
		return
	}
	if err := fn(ctx, a.ID, req.Code); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
